package grading

import (
	"context"
	"time"

	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// LessonCompletionSource answers how many of a module's lessons a student has
// completed.
type LessonCompletionSource interface {
	CompletedLessons(ctx context.Context, studentID, moduleID uint) (int64, error)
}

// lessonCompletionTable counts distinct completed, non-deleted lessons.
type lessonCompletionTable struct {
	db *gorm.DB
}

func NewLessonCompletionTable(db *gorm.DB) LessonCompletionSource {
	return lessonCompletionTable{db: db}
}

func (s lessonCompletionTable) CompletedLessons(ctx context.Context, studentID, moduleID uint) (int64, error) {
	db := s.db.WithContext(ctx)
	live := db.Model(&courseModels.Lesson{}).Select("id").
		Where("module_id = ? AND is_deleted = ?", moduleID, false)

	var n int64
	err := db.Model(&courseModels.LessonCompletion{}).
		Where("user_id = ? AND module_id = ? AND is_deleted = ?", studentID, moduleID, false).
		Where("lesson_id IN (?)", live).
		Distinct("lesson_id").
		Count(&n).Error
	return n, errors.Wrap(err, "count completed lessons")
}

// TypeBreakdown is the per-activity-type view of a module. It is reported
// alongside the grade; module_score does not use it.
type TypeBreakdown struct {
	Type         courseModels.ActivityType `json:"type"`
	Weight       float64                   `json:"weight"`
	Count        int                       `json:"count"`
	Completed    int                       `json:"completed"`
	AverageScore float64                   `json:"average_score"`
}

type ModuleGrade struct {
	ModuleID            uint            `json:"module_id"`
	Title               string          `json:"title"`
	Weight              *float64        `json:"weight"`
	LessonScore         float64         `json:"lesson_score"`
	ActivityScore       float64         `json:"activity_score"`
	ModuleScore         float64         `json:"module_score"`
	LetterGrade         string          `json:"letter_grade"`
	TotalLessons        int64           `json:"total_lessons"`
	CompletedLessons    int64           `json:"completed_lessons"`
	TotalActivities     int             `json:"total_activities"`
	CompletedActivities int             `json:"completed_activities"`
	OverdueActivities   int             `json:"overdue_activities"`
	Status              Status          `json:"status"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	Breakdown           []TypeBreakdown `json:"breakdown"`
	Activities          []ActivityScore `json:"activities"`
}

type ModuleCalculator struct {
	db       *gorm.DB
	resolver *Resolver
	lessons  LessonCompletionSource
	weights  Weights
}

func NewModuleCalculator(db *gorm.DB, resolver *Resolver, lessons LessonCompletionSource, weights Weights) *ModuleCalculator {
	if lessons == nil {
		lessons = NewLessonCompletionTable(db)
	}
	return &ModuleCalculator{db: db, resolver: resolver, lessons: lessons, weights: weights}
}

func (c *ModuleCalculator) Calculate(ctx context.Context, studentID uint, module *courseModels.Module) (ModuleGrade, error) {
	db := c.db.WithContext(ctx)
	grade := ModuleGrade{
		ModuleID:      module.ID,
		Title:         module.Title,
		Weight:        module.Weight,
		LessonScore:   100,
		ActivityScore: 100,
	}

	if err := db.Model(&courseModels.Lesson{}).
		Where("module_id = ? AND is_deleted = ?", module.ID, false).
		Count(&grade.TotalLessons).Error; err != nil {
		return grade, errors.Wrap(err, "count lessons")
	}
	if grade.TotalLessons > 0 {
		done, err := c.lessons.CompletedLessons(ctx, studentID, module.ID)
		if err != nil {
			return grade, err
		}
		if done > grade.TotalLessons {
			done = grade.TotalLessons
		}
		grade.CompletedLessons = done
		grade.LessonScore = float64(done) / float64(grade.TotalLessons) * 100
	}

	var activities []courseModels.Activity
	if err := db.Where("module_id = ? AND is_deleted = ?", module.ID, false).
		Order("order_index asc, id asc").
		Find(&activities).Error; err != nil {
		return grade, errors.Wrap(err, "load module activities")
	}
	scores, err := c.resolver.ResolveAll(ctx, studentID, activities)
	if err != nil {
		return grade, err
	}
	grade.Activities = scores
	grade.TotalActivities = len(scores)

	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s.PercentageScore
			if s.Status == StatusCompleted {
				grade.CompletedActivities++
			}
			if s.IsOverdue {
				grade.OverdueActivities++
			}
		}
		grade.ActivityScore = sum / float64(len(scores))
	}
	grade.Breakdown = c.breakdown(scores)

	grade.ModuleScore = round2(grade.LessonScore*c.weights.LessonWeight + grade.ActivityScore*c.weights.ActivityWeight)
	grade.LessonScore = round2(grade.LessonScore)
	grade.ActivityScore = round2(grade.ActivityScore)
	grade.LetterGrade = LetterGrade(grade.ModuleScore)

	var completions []courseModels.ModuleCompletion
	if err := db.Where("user_id = ? AND module_id = ? AND is_deleted = ?", studentID, module.ID, false).
		Order("completed_at asc").Limit(1).
		Find(&completions).Error; err != nil {
		return grade, errors.Wrap(err, "load module completion")
	}
	switch {
	case len(completions) > 0:
		grade.Status = StatusCompleted
		grade.CompletedAt = &completions[0].CompletedAt
	case grade.CompletedActivities == 0:
		grade.Status = StatusNotStarted
	case grade.CompletedActivities == grade.TotalActivities:
		grade.Status = StatusReadyToComplete
	default:
		grade.Status = StatusInProgress
	}
	return grade, nil
}

func (c *ModuleCalculator) breakdown(scores []ActivityScore) []TypeBreakdown {
	out := make([]TypeBreakdown, 0, len(courseModels.ActivityTypes))
	for _, t := range courseModels.ActivityTypes {
		b := TypeBreakdown{Type: t, Weight: c.weights.activityWeight(t)}
		var sum float64
		for _, s := range scores {
			if s.Type != t {
				continue
			}
			b.Count++
			sum += s.PercentageScore
			if s.Status == StatusCompleted {
				b.Completed++
			}
		}
		if b.Count > 0 {
			b.AverageScore = round2(sum / float64(b.Count))
		}
		out = append(out, b)
	}
	return out
}
