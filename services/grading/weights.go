package grading

import (
	"lms/config"
	courseModels "lms/models/course"
)

// Weights is the immutable configuration every calculator is built with.
// Pass it by value; nothing in this package mutates it.
type Weights struct {
	// ActivityWeights is reported alongside the module breakdown. It does not
	// feed module_score, which is the plain mean of activity percentages.
	ActivityWeights map[courseModels.ActivityType]float64

	LessonWeight   float64
	ActivityWeight float64

	DefaultCompetencyThreshold float64
	DefaultPassingPercentage   float64

	ImprovementRate   float64
	LatePenaltyPerDay float64
	LatePenaltyCap    float64
}

func DefaultWeights() Weights {
	return NewWeights(config.DefaultGradingProfile())
}

func NewWeights(p config.GradingProfile) Weights {
	return Weights{
		ActivityWeights: map[courseModels.ActivityType]float64{
			courseModels.ActivityQuiz:       p.ActivityWeights.Quiz,
			courseModels.ActivityAssignment: p.ActivityWeights.Assignment,
			courseModels.ActivityAssessment: p.ActivityWeights.Assessment,
			courseModels.ActivityExercise:   p.ActivityWeights.Exercise,
		},
		LessonWeight:               p.ModuleComponents.Lesson,
		ActivityWeight:             p.ModuleComponents.Activity,
		DefaultCompetencyThreshold: p.DefaultCompetencyThreshold,
		DefaultPassingPercentage:   p.DefaultPassingPercentage,
		ImprovementRate:            p.ImprovementRate,
		LatePenaltyPerDay:          p.LatePenaltyPerDay,
		LatePenaltyCap:             p.LatePenaltyCap,
	}
}

// activityWeight copies out of the map so callers never hold a reference.
func (w Weights) activityWeight(t courseModels.ActivityType) float64 {
	return w.ActivityWeights[t]
}

// threshold returns the skill's configured threshold or the default.
func (w Weights) threshold(skill *courseModels.Skill) float64 {
	if skill != nil && skill.CompetencyThreshold > 0 {
		return skill.CompetencyThreshold
	}
	return w.DefaultCompetencyThreshold
}
