package course

import "gorm.io/gorm"

// Course represents a learning course
type Course struct {
	gorm.Model
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	IsPublished bool     `json:"is_published" gorm:"default:false"`
	IsDeleted   bool     `json:"-" gorm:"default:false"`
	Modules     []Module `json:"modules,omitempty" gorm:"foreignKey:CourseID"`
}
