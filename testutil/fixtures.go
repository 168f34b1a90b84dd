package testutil

import (
	"fmt"
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, db *gorm.DB, name string) *models.User {
	tb.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s@example.test", name), Role: models.RoleStudent}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, db *gorm.DB, title string) *courseModels.Course {
	tb.Helper()
	c := &courseModels.Course{Title: title, Status: "ACTIVE", IsPublished: true}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func Enroll(tb testing.TB, db *gorm.DB, userID, courseID uint) *courseModels.Enrollment {
	tb.Helper()
	e := &courseModels.Enrollment{UserID: userID, CourseID: courseID, Status: "ENROLLED"}
	if err := db.Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

// SeedModule creates a module; weight nil means "equal split".
func SeedModule(tb testing.TB, db *gorm.DB, courseID uint, title string, weight *float64) *courseModels.Module {
	tb.Helper()
	m := &courseModels.Module{CourseID: courseID, Title: title, Weight: weight}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func CompleteModule(tb testing.TB, db *gorm.DB, userID, moduleID uint, at time.Time) {
	tb.Helper()
	if err := db.Create(&courseModels.ModuleCompletion{UserID: userID, ModuleID: moduleID, CompletedAt: at}).Error; err != nil {
		tb.Fatalf("seed module completion: %v", err)
	}
}

func SeedLesson(tb testing.TB, db *gorm.DB, moduleID uint, title string) *courseModels.Lesson {
	tb.Helper()
	l := &courseModels.Lesson{ModuleID: moduleID, Title: title, IsPublished: true}
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func CompleteLesson(tb testing.TB, db *gorm.DB, userID uint, lesson *courseModels.Lesson, at time.Time) {
	tb.Helper()
	lc := &courseModels.LessonCompletion{UserID: userID, LessonID: lesson.ID, ModuleID: lesson.ModuleID, CompletedAt: at}
	if err := db.Create(lc).Error; err != nil {
		tb.Fatalf("seed lesson completion: %v", err)
	}
}

func SeedActivity(tb testing.TB, db *gorm.DB, moduleID uint, typ courseModels.ActivityType, due *time.Time) *courseModels.Activity {
	tb.Helper()
	a := &courseModels.Activity{ModuleID: moduleID, Title: string(typ) + " activity", Type: typ, DueDate: due}
	if err := db.Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}

// SeedQuiz attaches a quiz to activity with one multiple-choice question per
// entry in points. Every question gets two options; the first is correct.
func SeedQuiz(tb testing.TB, db *gorm.DB, activity *courseModels.Activity, points ...float64) *courseModels.Quiz {
	tb.Helper()
	q := &courseModels.Quiz{ActivityID: activity.ID, Title: activity.Title}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	for i, p := range points {
		question := courseModels.Question{
			QuizID:     q.ID,
			Text:       fmt.Sprintf("Question %d", i+1),
			Type:       courseModels.QuestionMultipleChoice,
			Points:     p,
			OrderIndex: i,
		}
		if err := db.Create(&question).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		options := []courseModels.Option{
			{QuestionID: question.ID, Text: "right", IsCorrect: true, OrderIndex: 0},
			{QuestionID: question.ID, Text: "wrong", IsCorrect: false, OrderIndex: 1},
		}
		if err := db.Create(&options).Error; err != nil {
			tb.Fatalf("seed options: %v", err)
		}
		question.Options = options
		q.Questions = append(q.Questions, question)
	}
	return q
}

// SeedTextQuestion appends a free-text question to quiz.
func SeedTextQuestion(tb testing.TB, db *gorm.DB, quiz *courseModels.Quiz, points float64, correct string) *courseModels.Question {
	tb.Helper()
	question := &courseModels.Question{
		QuizID:        quiz.ID,
		Text:          "Explain",
		Type:          courseModels.QuestionShortAnswer,
		Points:        points,
		CorrectAnswer: correct,
		OrderIndex:    len(quiz.Questions),
	}
	if err := db.Create(question).Error; err != nil {
		tb.Fatalf("seed text question: %v", err)
	}
	quiz.Questions = append(quiz.Questions, *question)
	return question
}

// SeedProgress writes a unified progress row with the given percentage.
func SeedProgress(tb testing.TB, db *gorm.DB, userID, activityID uint, percentage float64, completedAt time.Time) *courseModels.ActivityProgress {
	tb.Helper()
	p := &courseModels.ActivityProgress{
		UserID:          userID,
		ActivityID:      activityID,
		PercentageScore: &percentage,
		IsCompleted:     true,
		IsSubmitted:     true,
		Attempts:        1,
		StartedAt:       &completedAt,
		CompletedAt:     &completedAt,
		SubmittedAt:     &completedAt,
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}

func SeedSkill(tb testing.TB, db *gorm.DB, moduleID uint, name string, threshold, weight float64) *courseModels.Skill {
	tb.Helper()
	s := &courseModels.Skill{
		ModuleID:            moduleID,
		Name:                name,
		CompetencyThreshold: threshold,
		Weight:              weight,
		DifficultyLevel:     courseModels.DifficultyBeginner,
		Tags:                datatypes.JSON([]byte(`[]`)),
	}
	if err := db.Create(s).Error; err != nil {
		tb.Fatalf("seed skill: %v", err)
	}
	return s
}

func LinkSkill(tb testing.TB, db *gorm.DB, skillID, activityID uint, weight float64) {
	tb.Helper()
	if err := db.Create(&courseModels.SkillActivity{SkillID: skillID, ActivityID: activityID, Weight: weight}).Error; err != nil {
		tb.Fatalf("seed skill link: %v", err)
	}
}

func Float(v float64) *float64 { return &v }

func Time(t time.Time) *time.Time { return &t }
