package course

import (
	"time"

	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityQuiz       ActivityType = "quiz"
	ActivityAssignment ActivityType = "assignment"
	ActivityAssessment ActivityType = "assessment"
	ActivityExercise   ActivityType = "exercise"
)

// ActivityTypes lists every gradable type in reporting order.
var ActivityTypes = []ActivityType{ActivityQuiz, ActivityAssignment, ActivityAssessment, ActivityExercise}

// Activity is a gradable unit of work attached to a module.
type Activity struct {
	gorm.Model
	ModuleID          uint         `json:"module_id" gorm:"index;not null"`
	Title             string       `json:"title"`
	Type              ActivityType `json:"type" gorm:"index;not null"`
	DueDate           *time.Time   `json:"due_date"`
	PassingPercentage float64      `json:"passing_percentage"` // 0 = institution default
	OrderIndex        int          `json:"order_index" gorm:"default:0"`
	IsDeleted         bool         `json:"-" gorm:"default:false"`

	Quiz       *Quiz       `json:"quiz,omitempty" gorm:"foreignKey:ActivityID"`
	Assignment *Assignment `json:"assignment,omitempty" gorm:"foreignKey:ActivityID"`
}

// Deadline is the explicit due date, or CreatedAt+window when none is set.
func (a *Activity) Deadline(window time.Duration) time.Time {
	if a.DueDate != nil {
		return *a.DueDate
	}
	return a.CreatedAt.Add(window)
}

// Assignment holds the question sheet of an assignment-type activity.
type Assignment struct {
	gorm.Model
	ActivityID uint                 `json:"activity_id" gorm:"uniqueIndex;not null"`
	Title      string               `json:"title"`
	Questions  []AssignmentQuestion `json:"questions,omitempty" gorm:"foreignKey:AssignmentID"`
	IsDeleted  bool                 `json:"-" gorm:"default:false"`
}

type AssignmentQuestion struct {
	gorm.Model
	AssignmentID uint    `json:"assignment_id" gorm:"index;not null"`
	QuestionText string  `json:"question_text"`
	Points       float64 `json:"points"`
	OrderIndex   int     `json:"order_index" gorm:"default:0"`
	IsDeleted    bool    `json:"-" gorm:"default:false"`
}
