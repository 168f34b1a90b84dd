package course

import (
	"time"

	"gorm.io/gorm"
)

const (
	QuestionMultipleChoice = "MULTIPLE_CHOICE"
	QuestionShortAnswer    = "SHORT_ANSWER"
)

// Quiz is the ordered question set owned by a quiz-type activity.
type Quiz struct {
	gorm.Model
	ActivityID uint       `json:"activity_id" gorm:"uniqueIndex;not null"`
	Title      string     `json:"title"`
	Questions  []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	IsDeleted  bool       `json:"-" gorm:"default:false"`
}

// Question belongs to a quiz. CorrectAnswer is used for free-text questions.
type Question struct {
	gorm.Model
	QuizID        uint     `json:"quiz_id" gorm:"index;not null"`
	Text          string   `json:"text"`
	Type          string   `json:"type" gorm:"default:'MULTIPLE_CHOICE'"`
	Points        float64  `json:"points"`
	CorrectAnswer string   `json:"-"`
	OrderIndex    int      `json:"order_index" gorm:"default:0"`
	Options       []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
	IsDeleted     bool     `json:"-" gorm:"default:false"`
}

// Option represents an option for a multiple choice question
type Option struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"-" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `json:"-" gorm:"default:false"`
}

// QuizAttempt is one student's progress through one quiz-backed activity.
// The engine never deletes attempts; they are the audit trail for grades.
type QuizAttempt struct {
	gorm.Model
	UserID             uint       `json:"user_id" gorm:"index:idx_attempt_owner;not null"`
	QuizID             uint       `json:"quiz_id" gorm:"index:idx_attempt_owner;not null"`
	ActivityID         uint       `json:"activity_id" gorm:"index:idx_attempt_owner;not null"`
	StartedAt          time.Time  `json:"started_at"`
	LastAccessedAt     time.Time  `json:"last_accessed_at"`
	CompletedQuestions int        `json:"completed_questions" gorm:"default:0"`
	TotalQuestions     int        `json:"total_questions" gorm:"default:0"`
	IsCompleted        bool       `json:"is_completed" gorm:"default:false"`
	IsSubmitted        bool       `json:"is_submitted" gorm:"default:false"`
	TimeSpent          int64      `json:"time_spent" gorm:"default:0"` // seconds
	Score              float64    `json:"score" gorm:"default:0"`
	PercentageScore    *float64   `json:"percentage_score"`
	SubmittedAt        *time.Time `json:"submitted_at"`
	IsDeleted          bool       `json:"-" gorm:"default:false"`
	Answers            []Answer   `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

// Answer is keyed by (attempt, question); re-answering updates the row.
type Answer struct {
	gorm.Model
	AttemptID        uint      `json:"attempt_id" gorm:"uniqueIndex:idx_answer_attempt_question;not null"`
	QuestionID       uint      `json:"question_id" gorm:"uniqueIndex:idx_answer_attempt_question;not null"`
	SelectedOptionID *uint     `json:"selected_option_id"`
	AnswerText       string    `json:"answer_text"`
	PointsEarned     float64   `json:"points_earned" gorm:"default:0"`
	IsCorrect        bool      `json:"is_correct" gorm:"default:false"`
	AnsweredAt       time.Time `json:"answered_at"`
	SelectedOption   *Option   `json:"selected_option,omitempty" gorm:"foreignKey:SelectedOptionID"`
}
