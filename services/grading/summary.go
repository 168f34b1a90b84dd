package grading

import (
	"context"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type StudentSummary struct {
	StudentID         uint          `json:"student_id"`
	CourseCount       int           `json:"course_count"`
	OverallPercentage float64       `json:"overall_percentage"`
	GPA               float64       `json:"gpa"`
	LetterGrade       string        `json:"letter_grade"`
	Readiness         string        `json:"readiness"`
	CompletedCourses  int           `json:"completed_courses"`
	Courses           []CourseGrade `json:"courses"`
}

// Summarize rolls course grades into an overall percentage and GPA. The mean
// is per course, not weighted by enrollment.
func Summarize(studentID uint, grades []CourseGrade) StudentSummary {
	s := StudentSummary{
		StudentID:   studentID,
		LetterGrade: NoGrade,
		Readiness:   ReadinessNotReady,
		Courses:     []CourseGrade{},
	}
	if len(grades) == 0 {
		return s
	}
	var pct, gpa float64
	for _, g := range grades {
		pct += g.Percentage
		gpa += PercentageToGPA(g.Percentage)
		if g.Status == StatusCompleted {
			s.CompletedCourses++
		}
	}
	n := float64(len(grades))
	s.CourseCount = len(grades)
	s.OverallPercentage = round2(pct / n)
	s.GPA = round2(gpa / n)
	s.LetterGrade = LetterGrade(s.OverallPercentage)
	s.Readiness = Readiness(s.OverallPercentage)
	s.Courses = grades
	return s
}

type RosterEntry struct {
	StudentID uint        `json:"student_id"`
	Name      string      `json:"name"`
	Grade     CourseGrade `json:"grade"`
}

type Roster struct {
	CourseID     uint          `json:"course_id"`
	Title        string        `json:"title"`
	StudentCount int           `json:"student_count"`
	ClassAverage float64       `json:"class_average"`
	Students     []RosterEntry `json:"students"`
}

func enrolledCourses(ctx context.Context, db *gorm.DB, studentID uint) ([]courseModels.Course, error) {
	var courses []courseModels.Course
	enrolled := db.WithContext(ctx).Model(&courseModels.Enrollment{}).Select("course_id").
		Where("user_id = ? AND is_deleted = ?", studentID, false)
	err := db.WithContext(ctx).
		Where("id IN (?) AND is_deleted = ?", enrolled, false).
		Order("id asc").
		Find(&courses).Error
	return courses, errors.Wrap(err, "load enrolled courses")
}

func enrolledStudents(ctx context.Context, db *gorm.DB, courseID uint) ([]models.User, error) {
	var users []models.User
	enrolled := db.WithContext(ctx).Model(&courseModels.Enrollment{}).Select("user_id").
		Where("course_id = ? AND is_deleted = ?", courseID, false)
	err := db.WithContext(ctx).
		Where("id IN (?) AND is_deleted = ?", enrolled, false).
		Order("id asc").
		Find(&users).Error
	return users, errors.Wrap(err, "load enrolled students")
}
