package course

import (
	"time"

	"gorm.io/gorm"
)

// Lesson is ungraded reading/video content inside a module.
type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	ContentType string `json:"content_type" gorm:"default:'TEXT'"` // TEXT, VIDEO, IMAGE
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `json:"-" gorm:"default:false"`
}

// LessonCompletion tracks a student's completion of a lesson
type LessonCompletion struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	LessonID    uint      `json:"lesson_id" gorm:"index;not null"`
	ModuleID    uint      `json:"module_id" gorm:"index;not null"`
	CompletedAt time.Time `json:"completed_at"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
}
