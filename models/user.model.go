package models

import "gorm.io/gorm"

const (
	RoleStudent    = "STUDENT"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

// User is the identity row the grade engine joins against. Accounts are
// managed elsewhere; only the fields needed for rosters live here.
type User struct {
	gorm.Model
	Name      string `json:"name" gorm:"default:''"`
	Email     string `json:"email" gorm:"unique;not null"`
	Role      string `json:"role" gorm:"default:'STUDENT'"` // STUDENT, INSTRUCTOR, ADMIN
	IsBlocked bool   `json:"-" gorm:"default:false"`
	IsDeleted bool   `json:"-" gorm:"default:false"`
}
