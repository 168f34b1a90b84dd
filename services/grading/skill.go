package grading

import (
	"context"
	"math"
	"time"

	"lms/apperr"
	"lms/logger"
	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Contribution is one linked activity's input to a skill assessment.
type Contribution struct {
	ActivityID uint    `json:"activity_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Attempts   int     `json:"attempts"`
	DaysLate   int     `json:"days_late"`
}

type Mastery struct {
	NormalizedScore   float64 `json:"normalized_score"`
	AttemptCount      int     `json:"attempt_count"`
	ImprovementFactor float64 `json:"improvement_factor"`
	DaysLate          int     `json:"days_late"`
	LatePenalty       float64 `json:"late_penalty"`
	FeedbackBonus     float64 `json:"feedback_bonus"`
	PeerReviewBonus   float64 `json:"peer_review_bonus"`
	FinalScore        float64 `json:"final_score"`
	MasteryLevel      string  `json:"mastery_level"`
	ConsistencyScore  float64 `json:"consistency_score"`
	ActivityCount     int     `json:"activity_count"`
}

// ComputeMastery is the pure scoring step of a skill assessment.
func (w Weights) ComputeMastery(threshold float64, contributions []Contribution) Mastery {
	m := Mastery{ImprovementFactor: 1, MasteryLevel: courseModels.MasteryNotMet}
	if len(contributions) == 0 {
		return m
	}
	m.ActivityCount = len(contributions)

	scores := make([]float64, len(contributions))
	var weighted, totalWeight float64
	for i, c := range contributions {
		s := clamp(c.Score, 0, 100)
		scores[i] = s
		weight := c.Weight
		if weight <= 0 {
			weight = 1
		}
		weighted += s * weight
		totalWeight += weight

		attempts := c.Attempts
		if attempts < 1 {
			attempts = 1
		}
		if attempts > m.AttemptCount {
			m.AttemptCount = attempts
		}
		if c.DaysLate > 0 {
			m.DaysLate += c.DaysLate
		}
	}
	m.NormalizedScore = weighted / totalWeight

	if m.AttemptCount > 1 {
		m.ImprovementFactor = 1 + math.Log(float64(m.AttemptCount))*w.ImprovementRate
	}
	m.LatePenalty = math.Min(w.LatePenaltyCap, float64(m.DaysLate)*w.LatePenaltyPerDay)

	final := m.NormalizedScore + (m.ImprovementFactor-1)*10 - m.LatePenalty + m.FeedbackBonus + m.PeerReviewBonus
	m.FinalScore = round2(clamp(final, 0, 100))
	m.NormalizedScore = round2(m.NormalizedScore)
	m.ImprovementFactor = math.Round(m.ImprovementFactor*10000) / 10000

	switch {
	case m.FinalScore >= threshold+15:
		m.MasteryLevel = courseModels.MasteryExceeds
	case m.FinalScore >= threshold:
		m.MasteryLevel = courseModels.MasteryMet
	}
	m.ConsistencyScore = consistency(scores)
	return m
}

// consistency is 100 - 2σ over the population, floored at 0.
func consistency(scores []float64) float64 {
	if len(scores) < 2 {
		return 100
	}
	var mean float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))
	return round2(math.Max(0, 100-2*math.Sqrt(variance)))
}

func daysLate(submitted, due *time.Time) int {
	if submitted == nil || due == nil || !submitted.After(*due) {
		return 0
	}
	return int(submitted.Sub(*due) / (24 * time.Hour))
}

type SkillResult struct {
	SkillID         uint           `json:"skill_id"`
	ModuleID        uint           `json:"module_id"`
	Name            string         `json:"name"`
	DifficultyLevel string         `json:"difficulty_level"`
	Weight          float64        `json:"weight"`
	Threshold       float64        `json:"threshold"`
	Contributions   []Contribution `json:"contributions"`
	AssessedAt      time.Time      `json:"assessed_at"`
	Mastery
}

// Assessor recomputes a student's mastery of a skill from current activity
// scores and caches the result in skill_assessments.
type Assessor struct {
	db       *gorm.DB
	log      *logger.Logger
	resolver *Resolver
	weights  Weights
	clock    func() time.Time
}

func NewAssessor(db *gorm.DB, baseLog *logger.Logger, resolver *Resolver, weights Weights, clock func() time.Time) *Assessor {
	return &Assessor{
		db:       db,
		log:      baseLog.With("service", "SkillAssessor"),
		resolver: resolver,
		weights:  weights,
		clock:    clock,
	}
}

func (a *Assessor) loadSkill(ctx context.Context, skillID uint) (*courseModels.Skill, error) {
	var skills []courseModels.Skill
	if err := a.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", skillID, false).
		Limit(1).Find(&skills).Error; err != nil {
		return nil, errors.Wrap(err, "load skill")
	}
	if len(skills) == 0 {
		return nil, apperr.New(apperr.NotFound, "Skill not found")
	}
	return &skills[0], nil
}

// AssessByID loads the skill then assesses it.
func (a *Assessor) AssessByID(ctx context.Context, studentID, skillID uint) (SkillResult, error) {
	skill, err := a.loadSkill(ctx, skillID)
	if err != nil {
		return SkillResult{}, err
	}
	return a.Assess(ctx, studentID, skill)
}

func (a *Assessor) Assess(ctx context.Context, studentID uint, skill *courseModels.Skill) (SkillResult, error) {
	db := a.db.WithContext(ctx)
	res := SkillResult{
		SkillID:         skill.ID,
		ModuleID:        skill.ModuleID,
		Name:            skill.Name,
		DifficultyLevel: skill.DifficultyLevel,
		Weight:          skill.Weight,
		Threshold:       a.weights.threshold(skill),
		Contributions:   []Contribution{},
	}

	var links []courseModels.SkillActivity
	if err := db.Where("skill_id = ? AND is_deleted = ?", skill.ID, false).
		Order("id asc").Find(&links).Error; err != nil {
		return res, errors.Wrap(err, "load skill links")
	}
	if len(links) > 0 {
		ids := make([]uint, len(links))
		linkWeight := make(map[uint]float64, len(links))
		for i, l := range links {
			ids[i] = l.ActivityID
			linkWeight[l.ActivityID] = l.Weight
		}
		var activities []courseModels.Activity
		if err := db.Where("id IN ? AND is_deleted = ?", ids, false).
			Order("id asc").Find(&activities).Error; err != nil {
			return res, errors.Wrap(err, "load skill activities")
		}
		for i := range activities {
			act := &activities[i]
			s, err := a.resolver.Resolve(ctx, studentID, act)
			if err != nil {
				return res, err
			}
			if !s.Attempted {
				continue
			}
			weight := linkWeight[act.ID]
			if weight <= 0 {
				weight = 1
			}
			res.Contributions = append(res.Contributions, Contribution{
				ActivityID: act.ID,
				Title:      act.Title,
				Score:      s.PercentageScore,
				Weight:     weight,
				Attempts:   s.Attempts,
				DaysLate:   daysLate(s.SubmittedAt, act.DueDate),
			})
		}
	}

	res.Mastery = a.weights.ComputeMastery(res.Threshold, res.Contributions)
	res.AssessedAt = a.clock()

	if err := a.store(ctx, studentID, skill.ID, res); err != nil {
		return res, err
	}
	return res, nil
}

func (a *Assessor) store(ctx context.Context, studentID, skillID uint, res SkillResult) error {
	row := courseModels.SkillAssessment{
		UserID:            studentID,
		SkillID:           skillID,
		NormalizedScore:   res.NormalizedScore,
		AttemptCount:      res.AttemptCount,
		ImprovementFactor: res.ImprovementFactor,
		DaysLate:          res.DaysLate,
		LatePenalty:       res.LatePenalty,
		FeedbackBonus:     res.FeedbackBonus,
		PeerReviewBonus:   res.PeerReviewBonus,
		FinalScore:        res.FinalScore,
		MasteryLevel:      res.MasteryLevel,
		ConsistencyScore:  res.ConsistencyScore,
		ActivityCount:     res.ActivityCount,
		AssessedAt:        res.AssessedAt,
	}
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "skill_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"normalized_score", "attempt_count", "improvement_factor", "days_late",
			"late_penalty", "feedback_bonus", "peer_review_bonus", "final_score",
			"mastery_level", "consistency_score", "activity_count", "assessed_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		a.log.Error("skill assessment upsert failed", "user_id", studentID, "skill_id", skillID, "error", err)
		return errors.Wrap(err, "upsert skill assessment")
	}
	return nil
}
