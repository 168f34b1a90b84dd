// Package quiz runs the quiz attempt lifecycle: start, answer, submit and
// results. Scoring happens once, at submit time.
package quiz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"lms/apperr"
	"lms/logger"
	courseModels "lms/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GradeInvalidator drops cached grades after a student's scores change.
type GradeInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID uint) error
}

// SubmissionNotifier is told about every successful submit, after commit.
type SubmissionNotifier interface {
	QuizSubmitted(ctx context.Context, ev SubmissionEvent)
}

type SubmissionEvent struct {
	StudentID       uint      `json:"student_id"`
	ActivityID      uint      `json:"activity_id"`
	QuizID          uint      `json:"quiz_id"`
	AttemptID       uint      `json:"attempt_id"`
	Score           float64   `json:"score"`
	TotalPoints     float64   `json:"total_points"`
	PercentageScore float64   `json:"percentage_score"`
	Passed          bool      `json:"passed"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

type Options struct {
	Clock func() time.Time
	// DueWindow is added to the activity's creation time when it has no due date.
	DueWindow                time.Duration
	DefaultPassingPercentage float64
	Invalidator              GradeInvalidator
	Notifier                 SubmissionNotifier
}

type Service struct {
	db   *gorm.DB
	log  *logger.Logger
	opts Options
}

func NewService(db *gorm.DB, baseLog *logger.Logger, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.DueWindow <= 0 {
		opts.DueWindow = 7 * 24 * time.Hour
	}
	if opts.DefaultPassingPercentage <= 0 {
		opts.DefaultPassingPercentage = 70
	}
	return &Service{db: db, log: baseLog.With("service", "QuizService"), opts: opts}
}

type StartResult struct {
	Attempt          *courseModels.QuizAttempt `json:"attempt"`
	Quiz             *courseModels.Quiz        `json:"quiz,omitempty"`
	AlreadyCompleted bool                      `json:"already_completed"`
	Resumed          bool                      `json:"resumed"`
	Deadline         time.Time                 `json:"deadline"`
}

type AnswerInput struct {
	QuestionID       uint
	SelectedOptionID *uint
	AnswerText       string
}

type SubmitResult struct {
	Attempt           *courseModels.QuizAttempt `json:"attempt"`
	Score             float64                   `json:"score"`
	TotalPoints       float64                   `json:"total_points"`
	PercentageScore   float64                   `json:"percentage_score"`
	Passed            bool                      `json:"passed"`
	PassingPercentage float64                   `json:"passing_percentage"`
	Message           string                    `json:"message"`
}

type AttemptResults struct {
	Attempt           *courseModels.QuizAttempt `json:"attempt"`
	Questions         []courseModels.Question   `json:"questions"`
	TotalPoints       float64                   `json:"total_points"`
	PercentageScore   float64                   `json:"percentage_score"`
	Passed            bool                      `json:"passed"`
	PassingPercentage float64                   `json:"passing_percentage"`
}

// lockRow adds SELECT ... FOR UPDATE where the dialect supports it. sqlite
// serialises writers on its own.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) passing(activity *courseModels.Activity) float64 {
	if activity.PassingPercentage > 0 {
		return activity.PassingPercentage
	}
	return s.opts.DefaultPassingPercentage
}

func (s *Service) loadActivity(tx *gorm.DB, activityID uint) (*courseModels.Activity, error) {
	var rows []courseModels.Activity
	if err := tx.Where("id = ? AND is_deleted = ?", activityID, false).Limit(1).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to load activity")
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.NotFound, "Activity not found")
	}
	return &rows[0], nil
}

func (s *Service) loadQuiz(tx *gorm.DB, activityID uint) (*courseModels.Quiz, error) {
	var rows []courseModels.Quiz
	if err := tx.Where("activity_id = ? AND is_deleted = ?", activityID, false).Limit(1).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to load quiz")
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.NotFound, "This activity has no quiz")
	}
	return &rows[0], nil
}

// loadOwnedAttempt locks the attempt and checks ownership.
func (s *Service) loadOwnedAttempt(tx *gorm.DB, studentID, attemptID uint) (*courseModels.QuizAttempt, error) {
	var rows []courseModels.QuizAttempt
	if err := lockRow(tx).Where("id = ? AND is_deleted = ?", attemptID, false).Limit(1).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to load attempt")
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.NotFound, "Quiz attempt not found")
	}
	if rows[0].UserID != studentID {
		return nil, apperr.New(apperr.Unauthorized, "You are not allowed to access this quiz attempt")
	}
	return &rows[0], nil
}

func (s *Service) loadQuestions(tx *gorm.DB, quizID uint) ([]courseModels.Question, error) {
	var questions []courseModels.Question
	err := tx.Where("quiz_id = ? AND is_deleted = ?", quizID, false).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_deleted = ?", false).Order("order_index asc, id asc")
		}).
		Order("order_index asc, id asc").
		Find(&questions).Error
	return questions, apperr.Wrap(err, "Failed to load questions")
}

func (s *Service) invalidate(ctx context.Context, studentID uint) {
	if s.opts.Invalidator == nil {
		return
	}
	if err := s.opts.Invalidator.InvalidateStudent(ctx, studentID); err != nil {
		s.log.Warn("grade cache invalidation failed", "user_id", studentID, "error", err)
	}
}

// Start opens or resumes the student's attempt on a quiz activity.
func (s *Service) Start(ctx context.Context, studentID, activityID uint) (*StartResult, error) {
	now := s.opts.Clock()
	var out *StartResult
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the activity row lock serialises concurrent starts on one quiz
		activity, err := s.loadActivity(lockRow(tx), activityID)
		if err != nil {
			return err
		}
		quiz, err := s.loadQuiz(tx, activity.ID)
		if err != nil {
			return err
		}

		var existing []courseModels.QuizAttempt
		if err := tx.Where("user_id = ? AND quiz_id = ? AND activity_id = ? AND is_deleted = ?", studentID, quiz.ID, activity.ID, false).
			Order("id asc").Limit(1).Find(&existing).Error; err != nil {
			return apperr.Wrap(err, "Failed to load attempt")
		}

		deadline := activity.Deadline(s.opts.DueWindow)
		if len(existing) > 0 && existing[0].IsCompleted {
			out = &StartResult{Attempt: &existing[0], AlreadyCompleted: true, Deadline: deadline}
			return nil
		}
		if now.After(deadline) {
			return apperr.New(apperr.DeadlinePassed, fmt.Sprintf("The deadline for this quiz passed on %s", deadline.Format("2006-01-02 15:04 MST")))
		}

		questions, err := s.loadQuestions(tx, quiz.ID)
		if err != nil {
			return err
		}
		quiz.Questions = questions

		if len(existing) > 0 {
			attempt := &existing[0]
			if err := tx.Model(attempt).Updates(map[string]interface{}{
				"last_accessed_at": now,
				"total_questions":  len(questions),
			}).Error; err != nil {
				return apperr.Wrap(err, "Failed to resume attempt")
			}
			attempt.LastAccessedAt = now
			attempt.TotalQuestions = len(questions)
			out = &StartResult{Attempt: attempt, Quiz: quiz, Resumed: true, Deadline: deadline}
			return nil
		}

		attempt := &courseModels.QuizAttempt{
			UserID:         studentID,
			QuizID:         quiz.ID,
			ActivityID:     activity.ID,
			StartedAt:      now,
			LastAccessedAt: now,
			TotalQuestions: len(questions),
		}
		if err := tx.Create(attempt).Error; err != nil {
			return apperr.Wrap(err, "Failed to create attempt")
		}
		created = true
		out = &StartResult{Attempt: attempt, Quiz: quiz, Deadline: deadline}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.log.Info("quiz attempt started", "user_id", studentID, "activity_id", activityID, "attempt_id", out.Attempt.ID)
		s.invalidate(ctx, studentID)
	}
	return out, nil
}

// SubmitAnswer stores or replaces the answer to one question. Correctness is
// not evaluated until Submit.
func (s *Service) SubmitAnswer(ctx context.Context, studentID, attemptID uint, in AnswerInput) (*courseModels.Answer, error) {
	text := strings.TrimSpace(in.AnswerText)
	if in.SelectedOptionID == nil && text == "" {
		return nil, apperr.Invalid("Please select an option or enter an answer", map[string]string{
			"answer": "selected_option_id or answer_text is required",
		})
	}
	now := s.opts.Clock()
	var answer courseModels.Answer

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.loadOwnedAttempt(tx, studentID, attemptID)
		if err != nil {
			return err
		}
		if attempt.IsSubmitted {
			return apperr.New(apperr.AlreadySubmitted, "This quiz has already been submitted; answers can no longer be changed")
		}

		var questions []courseModels.Question
		if err := tx.Where("id = ? AND quiz_id = ? AND is_deleted = ?", in.QuestionID, attempt.QuizID, false).
			Limit(1).Find(&questions).Error; err != nil {
			return apperr.Wrap(err, "Failed to load question")
		}
		if len(questions) == 0 {
			return apperr.New(apperr.NotFound, "Question not found in this quiz")
		}

		if in.SelectedOptionID != nil {
			var n int64
			if err := tx.Model(&courseModels.Option{}).
				Where("id = ? AND question_id = ? AND is_deleted = ?", *in.SelectedOptionID, in.QuestionID, false).
				Count(&n).Error; err != nil {
				return apperr.Wrap(err, "Failed to load option")
			}
			if n == 0 {
				return apperr.Invalid("The selected option does not belong to this question", map[string]string{
					"selected_option_id": "unknown option for this question",
				})
			}
		}

		var existing []courseModels.Answer
		if err := tx.Where("attempt_id = ? AND question_id = ?", attempt.ID, in.QuestionID).
			Limit(1).Find(&existing).Error; err != nil {
			return apperr.Wrap(err, "Failed to load answer")
		}
		if len(existing) > 0 {
			answer = existing[0]
			if err := tx.Model(&answer).Updates(map[string]interface{}{
				"selected_option_id": in.SelectedOptionID,
				"answer_text":        text,
				"answered_at":        now,
			}).Error; err != nil {
				return apperr.Wrap(err, "Failed to save answer")
			}
			answer.SelectedOptionID = in.SelectedOptionID
			answer.AnswerText = text
			answer.AnsweredAt = now
		} else {
			answer = courseModels.Answer{
				AttemptID:        attempt.ID,
				QuestionID:       in.QuestionID,
				SelectedOptionID: in.SelectedOptionID,
				AnswerText:       text,
				AnsweredAt:       now,
			}
			if err := tx.Create(&answer).Error; err != nil {
				return apperr.Wrap(err, "Failed to save answer")
			}
		}

		var answered int64
		if err := tx.Model(&courseModels.Answer{}).Where("attempt_id = ?", attempt.ID).Count(&answered).Error; err != nil {
			return apperr.Wrap(err, "Failed to count answers")
		}
		return apperr.Wrap(tx.Model(attempt).Updates(map[string]interface{}{
			"completed_questions": answered,
			"last_accessed_at":    now,
		}).Error, "Failed to update attempt")
	})
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func isCorrect(q *courseModels.Question, a *courseModels.Answer) bool {
	if a.SelectedOptionID != nil {
		for _, o := range q.Options {
			if o.ID == *a.SelectedOptionID {
				return o.IsCorrect
			}
		}
		return false
	}
	expected := strings.TrimSpace(q.CorrectAnswer)
	return expected != "" && strings.EqualFold(strings.TrimSpace(a.AnswerText), expected)
}

// Submit scores every answer and closes the attempt. The answered count is
// re-read under the attempt lock, in the same transaction as the score write.
func (s *Service) Submit(ctx context.Context, studentID, attemptID uint) (*SubmitResult, error) {
	now := s.opts.Clock()
	var out *SubmitResult
	var event SubmissionEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.loadOwnedAttempt(tx, studentID, attemptID)
		if err != nil {
			return err
		}
		if attempt.IsSubmitted {
			return apperr.New(apperr.AlreadySubmitted, "You have already submitted this quiz")
		}
		activity, err := s.loadActivity(tx, attempt.ActivityID)
		if err != nil {
			return err
		}
		questions, err := s.loadQuestions(tx, attempt.QuizID)
		if err != nil {
			return err
		}

		byID := make(map[uint]*courseModels.Question, len(questions))
		var total float64
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
			total += questions[i].Points
		}

		var answers []courseModels.Answer
		if err := tx.Where("attempt_id = ?", attempt.ID).Order("id asc").Find(&answers).Error; err != nil {
			return apperr.Wrap(err, "Failed to load answers")
		}
		answered := 0
		for _, a := range answers {
			if _, ok := byID[a.QuestionID]; ok {
				answered++
			}
		}
		if answered < len(questions) {
			return apperr.New(apperr.IncompleteAnswers,
				fmt.Sprintf("Please answer all questions before submitting (%d of %d answered)", answered, len(questions)))
		}

		var score float64
		for i := range answers {
			a := &answers[i]
			correct, points := false, 0.0
			if q, ok := byID[a.QuestionID]; ok && isCorrect(q, a) {
				correct, points = true, q.Points
			}
			score += points
			if err := tx.Model(a).Updates(map[string]interface{}{
				"is_correct":    correct,
				"points_earned": points,
			}).Error; err != nil {
				return apperr.Wrap(err, "Failed to score answer")
			}
			a.IsCorrect, a.PointsEarned = correct, points
		}

		pct := 0.0
		if total > 0 {
			pct = round2(score / total * 100)
		}
		spent := int64(now.Sub(attempt.StartedAt) / time.Second)
		if spent < 0 {
			spent = 0
		}
		if err := tx.Model(attempt).Updates(map[string]interface{}{
			"is_completed":        true,
			"is_submitted":        true,
			"score":               score,
			"percentage_score":    pct,
			"time_spent":          spent,
			"submitted_at":        now,
			"last_accessed_at":    now,
			"completed_questions": answered,
		}).Error; err != nil {
			return apperr.Wrap(err, "Failed to submit attempt")
		}
		attempt.IsCompleted, attempt.IsSubmitted = true, true
		attempt.Score, attempt.PercentageScore = score, &pct
		attempt.TimeSpent, attempt.SubmittedAt = spent, &now
		attempt.LastAccessedAt, attempt.CompletedQuestions = now, answered
		attempt.Answers = answers

		if err := mirrorProgress(tx, attempt, total); err != nil {
			return err
		}

		passing := s.passing(activity)
		passed := pct >= passing
		msg := fmt.Sprintf("Quiz submitted. You scored %.2f%%; the passing score is %.0f%%.", pct, passing)
		if passed {
			msg = fmt.Sprintf("Congratulations! You passed with %.2f%%.", pct)
		}
		out = &SubmitResult{
			Attempt:           attempt,
			Score:             score,
			TotalPoints:       total,
			PercentageScore:   pct,
			Passed:            passed,
			PassingPercentage: passing,
			Message:           msg,
		}
		event = SubmissionEvent{
			StudentID:       studentID,
			ActivityID:      attempt.ActivityID,
			QuizID:          attempt.QuizID,
			AttemptID:       attempt.ID,
			Score:           score,
			TotalPoints:     total,
			PercentageScore: pct,
			Passed:          passed,
			SubmittedAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quiz submitted", "user_id", studentID, "attempt_id", attemptID, "percentage", out.PercentageScore, "passed", out.Passed)
	s.invalidate(ctx, studentID)
	if s.opts.Notifier != nil {
		s.opts.Notifier.QuizSubmitted(ctx, event)
	}
	return out, nil
}

// mirrorProgress writes the submitted result into the unified progress row.
func mirrorProgress(tx *gorm.DB, attempt *courseModels.QuizAttempt, total float64) error {
	var attempts int64
	if err := tx.Model(&courseModels.QuizAttempt{}).
		Where("user_id = ? AND activity_id = ? AND is_deleted = ?", attempt.UserID, attempt.ActivityID, false).
		Count(&attempts).Error; err != nil {
		return apperr.Wrap(err, "Failed to count attempts")
	}
	score, max := attempt.Score, total
	pct := *attempt.PercentageScore
	started := attempt.StartedAt
	row := courseModels.ActivityProgress{
		UserID:          attempt.UserID,
		ActivityID:      attempt.ActivityID,
		Score:           &score,
		MaxScore:        &max,
		PercentageScore: &pct,
		IsCompleted:     true,
		IsSubmitted:     true,
		Attempts:        int(attempts),
		StartedAt:       &started,
		CompletedAt:     attempt.SubmittedAt,
		SubmittedAt:     attempt.SubmittedAt,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "activity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "max_score", "percentage_score", "is_completed", "is_submitted",
			"attempts", "started_at", "completed_at", "submitted_at", "updated_at",
		}),
	}).Create(&row).Error
	return apperr.Wrap(err, "Failed to record progress")
}

// Results returns the submitted or in-progress attempt with its answers.
func (s *Service) Results(ctx context.Context, studentID, attemptID uint) (*AttemptResults, error) {
	db := s.db.WithContext(ctx)

	var rows []courseModels.QuizAttempt
	if err := db.Where("id = ? AND is_deleted = ?", attemptID, false).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_id asc") }).
		Preload("Answers.SelectedOption").
		Limit(1).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to load attempt")
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.NotFound, "Quiz attempt not found")
	}
	attempt := &rows[0]
	if attempt.UserID != studentID {
		return nil, apperr.New(apperr.Unauthorized, "You are not allowed to view these results")
	}

	activity, err := s.loadActivity(db, attempt.ActivityID)
	if err != nil {
		return nil, err
	}
	questions, err := s.loadQuestions(db, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, q := range questions {
		total += q.Points
	}

	res := &AttemptResults{
		Attempt:           attempt,
		Questions:         questions,
		TotalPoints:       total,
		PassingPercentage: s.passing(activity),
	}
	if attempt.PercentageScore != nil {
		res.PercentageScore = *attempt.PercentageScore
		res.Passed = attempt.IsSubmitted && res.PercentageScore >= res.PassingPercentage
	}
	return res, nil
}

// ResyncProgress rewrites the progress mirror of a submitted attempt from the
// attempt row itself.
func ResyncProgress(tx *gorm.DB, attempt *courseModels.QuizAttempt) error {
	if !attempt.IsSubmitted || attempt.PercentageScore == nil {
		return apperr.New(apperr.Validation, "Attempt has not been submitted")
	}
	var total float64
	if err := tx.Model(&courseModels.Question{}).
		Where("quiz_id = ? AND is_deleted = ?", attempt.QuizID, false).
		Select("COALESCE(SUM(points), 0)").Scan(&total).Error; err != nil {
		return apperr.Wrap(err, "Failed to total quiz points")
	}
	return mirrorProgress(tx, attempt, total)
}
