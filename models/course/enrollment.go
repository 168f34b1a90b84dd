package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment links a student to a course. The grade engine only reads it.
type Enrollment struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"index;not null"`
	CourseID    uint       `json:"course_id" gorm:"index;not null"`
	Status      string     `json:"status" gorm:"default:'ENROLLED'"` // ENROLLED, IN_PROGRESS, COMPLETED
	CompletedAt *time.Time `json:"completed_at"`
	IsDeleted   bool       `json:"-" gorm:"default:false"`
}
