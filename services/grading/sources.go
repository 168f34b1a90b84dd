package grading

import (
	"context"
	"time"

	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SourceResult is what one score source knows about a (student, activity)
// pair. Percentage nil means the source has a row but no score yet.
type SourceResult struct {
	Score       *float64
	MaxScore    *float64
	Percentage  *float64
	IsCompleted bool
	IsSubmitted bool
	Attempts    int
	StartedAt   *time.Time
	SubmittedAt *time.Time
}

// ScoreSource is one provider in a resolution plan. Lookup returns (nil, nil)
// when the source has no row for the pair.
type ScoreSource interface {
	Name() string
	Lookup(ctx context.Context, db *gorm.DB, studentID uint, activity *courseModels.Activity) (*SourceResult, error)
}

func percentOf(score, max *float64) *float64 {
	if score == nil || max == nil || *max <= 0 {
		return nil
	}
	p := *score / *max * 100
	return &p
}

// quizAttemptSource reads the student's attempt. Its percentage is computed
// from question-level correctness at submit time and wins over everything.
type quizAttemptSource struct{}

func (quizAttemptSource) Name() string { return "quiz_attempt" }

func (quizAttemptSource) Lookup(ctx context.Context, db *gorm.DB, studentID uint, activity *courseModels.Activity) (*SourceResult, error) {
	var attempts []courseModels.QuizAttempt
	if err := db.WithContext(ctx).
		Where("user_id = ? AND activity_id = ? AND is_deleted = ?", studentID, activity.ID, false).
		Order("id desc").Limit(1).
		Find(&attempts).Error; err != nil {
		return nil, errors.Wrap(err, "load quiz attempt")
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	attempt := attempts[0]

	var total float64
	if err := db.WithContext(ctx).
		Model(&courseModels.Question{}).
		Where("quiz_id = ? AND is_deleted = ?", attempt.QuizID, false).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return nil, errors.Wrap(err, "sum quiz points")
	}

	started := attempt.StartedAt
	score := attempt.Score
	res := &SourceResult{
		Score:       &score,
		MaxScore:    &total,
		IsCompleted: attempt.IsCompleted,
		IsSubmitted: attempt.IsSubmitted,
		Attempts:    1,
		StartedAt:   &started,
		SubmittedAt: attempt.SubmittedAt,
	}
	if attempt.IsSubmitted && attempt.PercentageScore != nil {
		p := *attempt.PercentageScore
		res.Percentage = &p
	}
	return res, nil
}

// activityProgressSource is the unified progress record: its stored
// percentage first, then score/max_score.
type activityProgressSource struct{}

func (activityProgressSource) Name() string { return "activity_progress" }

func (activityProgressSource) Lookup(ctx context.Context, db *gorm.DB, studentID uint, activity *courseModels.Activity) (*SourceResult, error) {
	var rows []courseModels.ActivityProgress
	if err := db.WithContext(ctx).
		Where("user_id = ? AND activity_id = ? AND is_deleted = ?", studentID, activity.ID, false).
		Order("id desc").Limit(1).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load activity progress")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	res := &SourceResult{
		Score:       row.Score,
		MaxScore:    row.MaxScore,
		IsCompleted: row.IsCompleted,
		IsSubmitted: row.IsSubmitted,
		Attempts:    row.Attempts,
		StartedAt:   row.StartedAt,
		SubmittedAt: row.SubmittedAt,
	}
	if res.SubmittedAt == nil {
		res.SubmittedAt = row.CompletedAt
	}
	if row.PercentageScore != nil {
		p := *row.PercentageScore
		res.Percentage = &p
	} else {
		res.Percentage = percentOf(row.Score, row.MaxScore)
	}
	return res, nil
}

// legacyRowSource reads the percentage column of student_activity_progress.
type legacyRowSource struct{}

func (legacyRowSource) Name() string { return "legacy_activity_progress" }

func (legacyRowSource) Lookup(ctx context.Context, db *gorm.DB, studentID uint, activity *courseModels.Activity) (*SourceResult, error) {
	var rows []courseModels.LegacyActivityProgress
	if err := db.WithContext(ctx).
		Where("user_id = ? AND activity_id = ? AND is_deleted = ?", studentID, activity.ID, false).
		Order("id desc").Limit(1).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load legacy activity progress")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &SourceResult{
		Percentage:  row.Percentage,
		IsCompleted: row.IsCompleted,
		IsSubmitted: row.IsCompleted,
		StartedAt:   row.StartedAt,
		SubmittedAt: row.CompletedAt,
	}, nil
}

// typeTableSource reads one of the per-type legacy tables.
type typeTableSource struct {
	table string
}

func (s typeTableSource) Name() string { return s.table }

func (s typeTableSource) Lookup(ctx context.Context, db *gorm.DB, studentID uint, activity *courseModels.Activity) (*SourceResult, error) {
	var rows []courseModels.TypeProgress
	if err := db.WithContext(ctx).
		Table(s.table).
		Where("user_id = ? AND activity_id = ? AND is_deleted = ?", studentID, activity.ID, false).
		Order("id desc").Limit(1).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "load %s", s.table)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	res := &SourceResult{
		Score:       row.Score,
		MaxScore:    row.MaxScore,
		Percentage:  row.Percentage,
		IsCompleted: row.IsCompleted,
		IsSubmitted: row.IsCompleted,
		Attempts:    row.Attempts,
		StartedAt:   row.StartedAt,
		SubmittedAt: row.SubmittedAt,
	}
	if res.Percentage == nil {
		res.Percentage = percentOf(row.Score, row.MaxScore)
	}
	return res, nil
}
