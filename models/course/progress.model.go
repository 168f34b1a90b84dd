package course

import (
	"time"

	"gorm.io/gorm"
)

// ActivityProgress is the unified per-(student, activity) score record.
type ActivityProgress struct {
	gorm.Model
	UserID          uint       `json:"user_id" gorm:"uniqueIndex:idx_activity_progress_owner;not null"`
	ActivityID      uint       `json:"activity_id" gorm:"uniqueIndex:idx_activity_progress_owner;not null"`
	Score           *float64   `json:"score"`
	MaxScore        *float64   `json:"max_score"`
	PercentageScore *float64   `json:"percentage_score"`
	IsCompleted     bool       `json:"is_completed" gorm:"default:false"`
	IsSubmitted     bool       `json:"is_submitted" gorm:"default:false"`
	Attempts        int        `json:"attempts" gorm:"default:0"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	IsDeleted       bool       `json:"-" gorm:"default:false"`
}

// LegacyActivityProgress is the pre-unification progress row. Only the
// percentage column is still read.
type LegacyActivityProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"index;not null"`
	ActivityID  uint       `json:"activity_id" gorm:"index;not null"`
	Percentage  *float64   `json:"percentage"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	IsDeleted   bool       `json:"-" gorm:"default:false"`
}

func (LegacyActivityProgress) TableName() string { return "student_activity_progress" }

// TypeProgress is the shared column set of the legacy per-type tables.
type TypeProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"index;not null"`
	ActivityID  uint       `json:"activity_id" gorm:"index;not null"`
	Score       *float64   `json:"score"`
	MaxScore    *float64   `json:"max_score"`
	Percentage  *float64   `json:"percentage"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	Attempts    int        `json:"attempts" gorm:"default:0"`
	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	IsDeleted   bool       `json:"-" gorm:"default:false"`
}

type AssignmentProgress struct{ TypeProgress }

func (AssignmentProgress) TableName() string { return "assignment_progress" }

type ProjectProgress struct{ TypeProgress }

func (ProjectProgress) TableName() string { return "project_progress" }

type AssessmentProgress struct{ TypeProgress }

func (AssessmentProgress) TableName() string { return "assessment_progress" }
