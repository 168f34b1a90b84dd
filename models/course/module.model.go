package course

import (
	"time"

	"gorm.io/gorm"
)

// Module represents a section/module within a course
type Module struct {
	gorm.Model
	CourseID    uint     `json:"course_id" gorm:"index;not null"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OrderIndex  int      `json:"order_index" gorm:"default:0"` // Module order in course
	Weight      *float64 `json:"weight"`                       // percentage of the course grade; nil = equal split
	IsDeleted   bool     `json:"-" gorm:"default:false"`
}

// ModuleCompletion is the explicit "module done" record written when a student
// closes out a module.
type ModuleCompletion struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	ModuleID    uint      `json:"module_id" gorm:"index;not null"`
	CompletedAt time.Time `json:"completed_at"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
}
