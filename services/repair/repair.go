// Package repair rebuilds derived grading state from the rows it is derived
// from: attempt answer counts, the unified progress mirror and cached skill
// assessments.
package repair

import (
	"context"
	"sort"
	"time"

	"lms/logger"
	courseModels "lms/models/course"
	"lms/services/grading"
	quizService "lms/services/quiz"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Report struct {
	Since               time.Time     `json:"since"`
	AttemptsRecounted   int           `json:"attempts_recounted"`
	ProgressResynced    int           `json:"progress_resynced"`
	SkillsReassessed    int           `json:"skills_reassessed"`
	StudentsInvalidated int           `json:"students_invalidated"`
	Duration            time.Duration `json:"duration"`
}

type Service struct {
	db          *gorm.DB
	log         *logger.Logger
	assessor    *grading.Assessor
	invalidator quizService.GradeInvalidator
	clock       func() time.Time
}

func NewService(db *gorm.DB, baseLog *logger.Logger, engine *grading.Engine, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:          db,
		log:         baseLog.With("service", "GradeRepair"),
		assessor:    engine.Assessor(),
		invalidator: engine,
		clock:       clock,
	}
}

// Window returns the start of the day days before t. days <= 0 means all
// history and yields the zero time.
func Window(t time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.With(t).BeginningOfDay().AddDate(0, 0, -days)
}

type studentSet map[uint]struct{}

func (s studentSet) add(id uint) { s[id] = struct{}{} }

func (s studentSet) sorted() []uint {
	out := make([]uint, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func since(q *gorm.DB, column string, t time.Time) *gorm.DB {
	if t.IsZero() {
		return q
	}
	return q.Where(column+" >= ?", t)
}

// Run repairs every row touched since the window start and drops the
// affected students' cached grades.
func (s *Service) Run(ctx context.Context, windowDays int) (Report, error) {
	started := s.clock()
	rep := Report{Since: Window(started, windowDays)}
	touched := studentSet{}

	n, err := s.recount(ctx, rep.Since, touched)
	if err != nil {
		return rep, err
	}
	rep.AttemptsRecounted = n

	if n, err = s.resync(ctx, rep.Since, touched); err != nil {
		return rep, err
	}
	rep.ProgressResynced = n

	var progressed []uint
	if err := since(s.db.WithContext(ctx).Model(&courseModels.ActivityProgress{}), "updated_at", rep.Since).
		Where("is_deleted = ?", false).
		Distinct().Pluck("user_id", &progressed).Error; err != nil {
		return rep, errors.Wrap(err, "list progressed students")
	}
	for _, id := range progressed {
		touched.add(id)
	}

	for _, studentID := range touched.sorted() {
		n, err := s.ReassessSkills(ctx, studentID)
		if err != nil {
			return rep, err
		}
		rep.SkillsReassessed += n
		if err := s.invalidator.InvalidateStudent(ctx, studentID); err != nil {
			s.log.Warn("[GRADE-REPAIR] cache invalidation failed", "student_id", studentID, "error", err)
			continue
		}
		rep.StudentsInvalidated++
	}

	rep.Duration = s.clock().Sub(started)
	s.log.Info("[GRADE-REPAIR] finished",
		"since", rep.Since, "recounted", rep.AttemptsRecounted, "resynced", rep.ProgressResynced,
		"skills", rep.SkillsReassessed, "students", rep.StudentsInvalidated)
	return rep, nil
}

// recount resets completed_questions to the number of distinct questions
// with an answer row.
func (s *Service) recount(ctx context.Context, from time.Time, touched studentSet) (int, error) {
	db := s.db.WithContext(ctx)

	var attempts []courseModels.QuizAttempt
	if err := since(db.Where("is_deleted = ?", false), "updated_at", from).
		Order("id asc").Find(&attempts).Error; err != nil {
		return 0, errors.Wrap(err, "load attempts")
	}
	if len(attempts) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	var counts []struct {
		AttemptID uint
		Answered  int
	}
	if err := db.Model(&courseModels.Answer{}).
		Select("attempt_id, COUNT(DISTINCT question_id) AS answered").
		Where("attempt_id IN ?", ids).
		Group("attempt_id").Scan(&counts).Error; err != nil {
		return 0, errors.Wrap(err, "count answers")
	}
	answered := make(map[uint]int, len(counts))
	for _, c := range counts {
		answered[c.AttemptID] = c.Answered
	}

	fixed := 0
	for _, a := range attempts {
		want := answered[a.ID]
		if a.CompletedQuestions == want {
			continue
		}
		if err := db.Model(&courseModels.QuizAttempt{}).Where("id = ?", a.ID).
			Update("completed_questions", want).Error; err != nil {
			return fixed, errors.Wrapf(err, "recount attempt %d", a.ID)
		}
		s.log.Debug("[GRADE-REPAIR] recounted attempt", "attempt_id", a.ID, "was", a.CompletedQuestions, "now", want)
		touched.add(a.UserID)
		fixed++
	}
	return fixed, nil
}

// resync rewrites the progress mirror for every submitted attempt.
func (s *Service) resync(ctx context.Context, from time.Time, touched studentSet) (int, error) {
	var attempts []courseModels.QuizAttempt
	if err := since(s.db.WithContext(ctx).
		Where("is_submitted = ? AND is_deleted = ? AND percentage_score IS NOT NULL", true, false),
		"submitted_at", from).
		Order("id asc").Find(&attempts).Error; err != nil {
		return 0, errors.Wrap(err, "load submitted attempts")
	}

	synced := 0
	for i := range attempts {
		a := &attempts[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return quizService.ResyncProgress(tx, a)
		})
		if err != nil {
			return synced, err
		}
		touched.add(a.UserID)
		synced++
	}
	return synced, nil
}

// ReassessSkills recomputes the stored assessment of every skill in the
// student's enrolled courses.
func (s *Service) ReassessSkills(ctx context.Context, studentID uint) (int, error) {
	db := s.db.WithContext(ctx)
	courses := db.Model(&courseModels.Enrollment{}).Select("course_id").
		Where("user_id = ? AND is_deleted = ?", studentID, false)
	modules := db.Model(&courseModels.Module{}).Select("id").
		Where("course_id IN (?) AND is_deleted = ?", courses, false)

	var skills []courseModels.Skill
	if err := db.Where("module_id IN (?) AND is_deleted = ?", modules, false).
		Order("id asc").Find(&skills).Error; err != nil {
		return 0, errors.Wrap(err, "load skills")
	}
	for i := range skills {
		if _, err := s.assessor.Assess(ctx, studentID, &skills[i]); err != nil {
			return i, err
		}
	}
	return len(skills), nil
}
