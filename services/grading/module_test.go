package grading

import (
	"context"
	"testing"
	"time"

	courseModels "lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModuleCalculator(t *testing.T, f *resolverFixture, lessons LessonCompletionSource) *ModuleCalculator {
	t.Helper()
	return NewModuleCalculator(f.db, f.resolver(t), lessons, DefaultWeights())
}

func loadModule(t *testing.T, f *resolverFixture) *courseModels.Module {
	t.Helper()
	var m courseModels.Module
	require.NoError(t, f.db.First(&m, f.module).Error)
	return &m
}

func TestModuleGrade_UnattemptedActivityCountsAsZero(t *testing.T) {
	f := newResolverFixture(t)
	quiz := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityQuiz, nil)
	testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssignment, nil)
	testutil.SeedProgress(t, f.db, f.student, quiz.ID, 80, f.clock.Now())

	g, err := newModuleCalculator(t, f, nil).Calculate(context.Background(), f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, 40.0, g.ActivityScore)
	assert.Equal(t, 100.0, g.LessonScore)
	assert.Equal(t, 52.0, g.ModuleScore)
	assert.Equal(t, StatusInProgress, g.Status)
	assert.Equal(t, 1, g.CompletedActivities)

	require.Len(t, g.Breakdown, len(courseModels.ActivityTypes))
	assert.Equal(t, courseModels.ActivityQuiz, g.Breakdown[0].Type)
	assert.Equal(t, 30.0, g.Breakdown[0].Weight)
	assert.Equal(t, 80.0, g.Breakdown[0].AverageScore)
	assert.Equal(t, 0.0, g.Breakdown[1].AverageScore)
}

func TestModuleGrade_EmptyModuleIsFullCredit(t *testing.T) {
	f := newResolverFixture(t)

	g, err := newModuleCalculator(t, f, nil).Calculate(context.Background(), f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.ActivityScore)
	assert.Equal(t, 100.0, g.LessonScore)
	assert.Equal(t, 100.0, g.ModuleScore)
	assert.Equal(t, StatusNotStarted, g.Status)
}

func TestModuleGrade_LessonCompletion(t *testing.T) {
	f := newResolverFixture(t)
	at := f.clock.Now()
	l1 := testutil.SeedLesson(t, f.db, f.module, "Intro")
	testutil.SeedLesson(t, f.db, f.module, "Vectors")
	testutil.SeedLesson(t, f.db, f.module, "Velocity")
	l4 := testutil.SeedLesson(t, f.db, f.module, "Acceleration")
	testutil.CompleteLesson(t, f.db, f.student, l1, at)
	testutil.CompleteLesson(t, f.db, f.student, l1, at.Add(time.Minute))
	testutil.CompleteLesson(t, f.db, f.student, l4, at)

	g, err := newModuleCalculator(t, f, nil).Calculate(context.Background(), f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, int64(4), g.TotalLessons)
	assert.Equal(t, int64(2), g.CompletedLessons)
	assert.Equal(t, 50.0, g.LessonScore)
	assert.Equal(t, 90.0, g.ModuleScore)
}

type fixedLessons int64

func (n fixedLessons) CompletedLessons(context.Context, uint, uint) (int64, error) {
	return int64(n), nil
}

func TestModuleGrade_InjectedLessonSource(t *testing.T) {
	f := newResolverFixture(t)
	testutil.SeedLesson(t, f.db, f.module, "One")
	testutil.SeedLesson(t, f.db, f.module, "Two")

	g, err := newModuleCalculator(t, f, fixedLessons(1)).Calculate(context.Background(), f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, 50.0, g.LessonScore)
}

func TestModuleGrade_Status(t *testing.T) {
	f := newResolverFixture(t)
	a1 := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssignment, nil)
	a2 := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityExercise, nil)
	calc := newModuleCalculator(t, f, nil)
	ctx := context.Background()

	testutil.SeedProgress(t, f.db, f.student, a1.ID, 70, f.clock.Now())
	g, err := calc.Calculate(ctx, f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, g.Status)

	testutil.SeedProgress(t, f.db, f.student, a2.ID, 90, f.clock.Now())
	g, err = calc.Calculate(ctx, f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, StatusReadyToComplete, g.Status)
	assert.Equal(t, 80.0, g.ActivityScore)

	testutil.CompleteModule(t, f.db, f.student, f.module, f.clock.Now())
	g, err = calc.Calculate(ctx, f.student, loadModule(t, f))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, g.Status)
	require.NotNil(t, g.CompletedAt)
}
