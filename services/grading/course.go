package grading

import (
	"context"

	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type CourseGrade struct {
	CourseID         uint          `json:"course_id"`
	Title            string        `json:"title"`
	Percentage       float64       `json:"percentage"`
	LetterGrade      string        `json:"letter_grade"`
	GPA              float64       `json:"gpa"`
	Status           Status        `json:"status"`
	ModuleCount      int           `json:"module_count"`
	CompletedModules int           `json:"completed_modules"`
	Modules          []ModuleGrade `json:"modules"`
}

type CourseCalculator struct {
	db      *gorm.DB
	modules *ModuleCalculator
}

func NewCourseCalculator(db *gorm.DB, modules *ModuleCalculator) *CourseCalculator {
	return &CourseCalculator{db: db, modules: modules}
}

// moduleWeights returns each module's configured weight, or 100/n when unset.
func moduleWeights(modules []courseModels.Module) []float64 {
	out := make([]float64, len(modules))
	if len(modules) == 0 {
		return out
	}
	equal := 100 / float64(len(modules))
	for i, m := range modules {
		if m.Weight != nil {
			out[i] = *m.Weight
		} else {
			out[i] = equal
		}
	}
	return out
}

// weightedMean falls back to the plain mean when every weight is zero.
func weightedMean(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total > 0 {
		return sum / total
	}
	sum = 0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (c *CourseCalculator) loadModules(ctx context.Context, courseID uint) ([]courseModels.Module, error) {
	var modules []courseModels.Module
	err := c.db.WithContext(ctx).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index asc, id asc").
		Find(&modules).Error
	return modules, errors.Wrap(err, "load course modules")
}

func (c *CourseCalculator) Calculate(ctx context.Context, studentID uint, course *courseModels.Course) (CourseGrade, error) {
	grade := CourseGrade{CourseID: course.ID, Title: course.Title, Status: StatusNotStarted}

	modules, err := c.loadModules(ctx, course.ID)
	if err != nil {
		return grade, err
	}
	grade.ModuleCount = len(modules)

	scores := make([]float64, 0, len(modules))
	for i := range modules {
		mg, err := c.modules.Calculate(ctx, studentID, &modules[i])
		if err != nil {
			return grade, err
		}
		if mg.Status == StatusCompleted {
			grade.CompletedModules++
		}
		scores = append(scores, mg.ModuleScore)
		grade.Modules = append(grade.Modules, mg)
	}

	grade.Percentage = round2(weightedMean(scores, moduleWeights(modules)))
	grade.LetterGrade = LetterGrade(grade.Percentage)
	grade.GPA = PercentageToGPA(grade.Percentage)

	switch {
	case grade.ModuleCount == 0, grade.CompletedModules == 0:
		grade.Status = StatusNotStarted
	case grade.CompletedModules == grade.ModuleCount:
		grade.Status = StatusCompleted
	default:
		grade.Status = StatusInProgress
	}
	return grade, nil
}
