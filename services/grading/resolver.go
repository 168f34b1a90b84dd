package grading

import (
	"context"
	"time"

	"lms/logger"
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusReadyToComplete Status = "ready_to_complete"
)

// ActivityScore is the single authoritative score tuple for one
// (student, activity) pair.
type ActivityScore struct {
	ActivityID      uint                      `json:"activity_id"`
	ModuleID        uint                      `json:"module_id"`
	Title           string                    `json:"title"`
	Type            courseModels.ActivityType `json:"type"`
	Score           float64                   `json:"score"`
	MaxScore        float64                   `json:"max_score"`
	PercentageScore float64                   `json:"percentage_score"`
	IsCompleted     bool                      `json:"is_completed"`
	IsSubmitted     bool                      `json:"is_submitted"`
	Status          Status                    `json:"status"`
	Attempts        int                       `json:"attempts"`
	Attempted       bool                      `json:"attempted"`
	Source          string                    `json:"source,omitempty"`
	StartedAt       *time.Time                `json:"started_at,omitempty"`
	SubmittedAt     *time.Time                `json:"submitted_at,omitempty"`
	DueDate         *time.Time                `json:"due_date,omitempty"`
	IsOverdue       bool                      `json:"is_overdue"`
}

// Resolver picks the first score source that yields a percentage, following
// a fixed plan per activity type.
type Resolver struct {
	db    *gorm.DB
	log   *logger.Logger
	clock func() time.Time
	plans map[courseModels.ActivityType][]ScoreSource
}

// NewResolver builds the per-type plans. Legacy tables that do not exist in
// this database are simply left out of the plans.
func NewResolver(db *gorm.DB, baseLog *logger.Logger, clock func() time.Time) *Resolver {
	r := &Resolver{
		db:    db,
		log:   baseLog.With("service", "ActivityScoreResolver"),
		clock: clock,
	}

	mig := db.Migrator()
	var legacyRow []ScoreSource
	if mig.HasTable(&courseModels.LegacyActivityProgress{}) {
		legacyRow = append(legacyRow, legacyRowSource{})
	} else {
		r.log.Warn("legacy progress table missing; source disabled", "table", "student_activity_progress")
	}
	typeTable := func(model interface{ TableName() string }) []ScoreSource {
		if mig.HasTable(model) {
			return []ScoreSource{typeTableSource{table: model.TableName()}}
		}
		r.log.Warn("legacy type table missing; source disabled", "table", model.TableName())
		return nil
	}

	plan := func(head []ScoreSource, tail ...[]ScoreSource) []ScoreSource {
		out := append([]ScoreSource{}, head...)
		for _, t := range tail {
			out = append(out, t...)
		}
		return out
	}
	unified := []ScoreSource{activityProgressSource{}}

	r.plans = map[courseModels.ActivityType][]ScoreSource{
		courseModels.ActivityQuiz:       plan([]ScoreSource{quizAttemptSource{}}, unified, legacyRow),
		courseModels.ActivityAssignment: plan(unified, legacyRow, typeTable(courseModels.AssignmentProgress{})),
		courseModels.ActivityExercise:   plan(unified, legacyRow, typeTable(courseModels.ProjectProgress{})),
		courseModels.ActivityAssessment: plan(unified, legacyRow, typeTable(courseModels.AssessmentProgress{})),
	}
	return r
}

// Plan returns the source names consulted for t, in order.
func (r *Resolver) Plan(t courseModels.ActivityType) []string {
	var names []string
	for _, s := range r.plans[t] {
		names = append(names, s.Name())
	}
	return names
}

// Resolve never fails for missing data: an activity nobody touched resolves
// to a zero, not-started score.
func (r *Resolver) Resolve(ctx context.Context, studentID uint, activity *courseModels.Activity) (ActivityScore, error) {
	out := ActivityScore{
		ActivityID: activity.ID,
		ModuleID:   activity.ModuleID,
		Title:      activity.Title,
		Type:       activity.Type,
		DueDate:    activity.DueDate,
		Status:     StatusNotStarted,
	}

	plan, ok := r.plans[activity.Type]
	if !ok {
		r.log.Warn("no score plan for activity type", "activity_id", activity.ID, "type", activity.Type)
	}

	var winner, partial *SourceResult
	for _, src := range plan {
		res, err := src.Lookup(ctx, r.db, studentID, activity)
		if err != nil {
			if isLegacy(src) {
				r.log.Warn("legacy score source failed; treating as no data", "source", src.Name(), "activity_id", activity.ID, "error", err)
				continue
			}
			return out, err
		}
		if res == nil {
			continue
		}
		if res.Percentage != nil {
			winner = res
			out.Source = src.Name()
			break
		}
		if partial == nil {
			partial = res
		}
	}

	switch {
	case winner != nil:
		out.Attempted = true
		out.PercentageScore = *winner.Percentage
		if winner.Score != nil {
			out.Score = *winner.Score
		} else {
			out.Score = out.PercentageScore
		}
		if winner.MaxScore != nil {
			out.MaxScore = *winner.MaxScore
		} else {
			out.MaxScore = 100
		}
		out.IsCompleted = winner.IsCompleted
		out.IsSubmitted = winner.IsSubmitted
		out.Attempts = winner.Attempts
		if out.Attempts < 1 {
			out.Attempts = 1
		}
		out.StartedAt = winner.StartedAt
		out.SubmittedAt = winner.SubmittedAt
		out.Status = classify(activity.Type, winner)
	case partial != nil:
		out.StartedAt = partial.StartedAt
		if partial.StartedAt != nil {
			out.Status = StatusInProgress
		}
	}

	out.IsOverdue = activity.DueDate != nil && r.clock().After(*activity.DueDate) && out.Status != StatusCompleted
	return out, nil
}

// ResolveAll resolves every activity for one student, preserving order.
func (r *Resolver) ResolveAll(ctx context.Context, studentID uint, activities []courseModels.Activity) ([]ActivityScore, error) {
	out := make([]ActivityScore, 0, len(activities))
	for i := range activities {
		s, err := r.Resolve(ctx, studentID, &activities[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func classify(t courseModels.ActivityType, res *SourceResult) Status {
	done := res.IsCompleted
	if t == courseModels.ActivityQuiz {
		done = res.IsCompleted && res.IsSubmitted
	}
	switch {
	case done:
		return StatusCompleted
	case res.StartedAt != nil:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

func isLegacy(src ScoreSource) bool {
	switch src.(type) {
	case legacyRowSource, typeTableSource:
		return true
	}
	return false
}
