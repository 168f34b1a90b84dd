package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MasteryNotMet  = "not_met"
	MasteryMet     = "met"
	MasteryExceeds = "exceeds"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Skill is a competency assessed through the activities linked to it.
type Skill struct {
	gorm.Model
	ModuleID            uint            `json:"module_id" gorm:"index;not null"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	CompetencyThreshold float64         `json:"competency_threshold"` // 0 = institution default
	Weight              float64         `json:"weight"`               // percentage of the module competency
	DifficultyLevel     string          `json:"difficulty_level" gorm:"default:'beginner'"`
	Tags                datatypes.JSON  `json:"tags"`
	IsDeleted           bool            `json:"-" gorm:"default:false"`
	Activities          []SkillActivity `json:"activities,omitempty" gorm:"foreignKey:SkillID"`
}

// SkillActivity links an activity to a skill with a per-link weight.
type SkillActivity struct {
	gorm.Model
	SkillID    uint    `json:"skill_id" gorm:"uniqueIndex:idx_skill_activity;not null"`
	ActivityID uint    `json:"activity_id" gorm:"uniqueIndex:idx_skill_activity;not null"`
	Weight     float64 `json:"weight"` // 0 = 1.0
	IsDeleted  bool    `json:"-" gorm:"default:false"`
}

// SkillAssessment caches the last computed mastery of one student on one
// skill. It is recomputed on every read and never treated as authoritative.
type SkillAssessment struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"uniqueIndex:idx_skill_assessment_owner;not null"`
	SkillID           uint      `json:"skill_id" gorm:"uniqueIndex:idx_skill_assessment_owner;not null"`
	NormalizedScore   float64   `json:"normalized_score"`
	AttemptCount      int       `json:"attempt_count"`
	ImprovementFactor float64   `json:"improvement_factor"`
	DaysLate          int       `json:"days_late"`
	LatePenalty       float64   `json:"late_penalty"`
	FeedbackBonus     float64   `json:"feedback_bonus"`
	PeerReviewBonus   float64   `json:"peer_review_bonus"`
	FinalScore        float64   `json:"final_score"`
	MasteryLevel      string    `json:"mastery_level" gorm:"default:'not_met'"`
	ConsistencyScore  float64   `json:"consistency_score"`
	ActivityCount     int       `json:"activity_count"`
	AssessedAt        time.Time `json:"assessed_at"`
}
