package grading

import (
	"context"
	"testing"
	"time"

	courseModels "lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type resolverFixture struct {
	db      *gorm.DB
	clock   *testutil.Clock
	student uint
	module  uint
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	db := testutil.DB(t)
	student := testutil.SeedUser(t, db, "student")
	course := testutil.SeedCourse(t, db, "Physics")
	mod := testutil.SeedModule(t, db, course.ID, "Motion", nil)
	return &resolverFixture{
		db:      db,
		clock:   testutil.NewClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)),
		student: student.ID,
		module:  mod.ID,
	}
}

func (f *resolverFixture) resolver(t *testing.T) *Resolver {
	return NewResolver(f.db, testutil.Logger(t), f.clock.Now)
}

func TestResolve_OverdueNeverStarted(t *testing.T) {
	f := newResolverFixture(t)
	due := f.clock.Now().Add(-3 * 24 * time.Hour)
	act := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssignment, &due)

	got, err := f.resolver(t).Resolve(context.Background(), f.student, act)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, got.Status)
	assert.True(t, got.IsOverdue)
	assert.False(t, got.Attempted)
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, 0.0, got.PercentageScore)
	assert.False(t, got.IsCompleted)
}

func TestResolve_CompletedIsNeverOverdue(t *testing.T) {
	f := newResolverFixture(t)
	due := f.clock.Now().Add(-24 * time.Hour)
	act := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssessment, &due)
	testutil.SeedProgress(t, f.db, f.student, act.ID, 88, due.Add(-time.Hour))

	got, err := f.resolver(t).Resolve(context.Background(), f.student, act)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.False(t, got.IsOverdue)
	assert.Equal(t, 88.0, got.PercentageScore)
	assert.Equal(t, "activity_progress", got.Source)
}

func TestResolve_ScoreOverMaxFallback(t *testing.T) {
	f := newResolverFixture(t)
	act := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityExercise, nil)
	started := f.clock.Now()
	require.NoError(t, f.db.Create(&courseModels.ActivityProgress{
		UserID:     f.student,
		ActivityID: act.ID,
		Score:      testutil.Float(18),
		MaxScore:   testutil.Float(24),
		StartedAt:  &started,
	}).Error)

	got, err := f.resolver(t).Resolve(context.Background(), f.student, act)
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.PercentageScore)
	assert.Equal(t, 18.0, got.Score)
	assert.Equal(t, 24.0, got.MaxScore)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestResolve_LegacySources(t *testing.T) {
	f := newResolverFixture(t)
	legacyAct := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssignment, nil)
	typedAct := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssessment, nil)
	done := f.clock.Now()

	require.NoError(t, f.db.Create(&courseModels.LegacyActivityProgress{
		UserID: f.student, ActivityID: legacyAct.ID, Percentage: testutil.Float(64), IsCompleted: true, CompletedAt: &done,
	}).Error)
	require.NoError(t, f.db.Create(&courseModels.AssessmentProgress{TypeProgress: courseModels.TypeProgress{
		UserID: f.student, ActivityID: typedAct.ID, Score: testutil.Float(9), MaxScore: testutil.Float(10), IsCompleted: true, SubmittedAt: &done,
	}}).Error)

	r := f.resolver(t)
	got, err := r.Resolve(context.Background(), f.student, legacyAct)
	require.NoError(t, err)
	assert.Equal(t, 64.0, got.PercentageScore)
	assert.Equal(t, "legacy_activity_progress", got.Source)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = r.Resolve(context.Background(), f.student, typedAct)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.PercentageScore)
	assert.Equal(t, "assessment_progress", got.Source)
}

func TestResolve_MissingLegacyTablesAreSkipped(t *testing.T) {
	f := newResolverFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&courseModels.LegacyActivityProgress{}, &courseModels.AssignmentProgress{}))
	act := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityAssignment, nil)

	r := f.resolver(t)
	assert.Equal(t, []string{"activity_progress"}, r.Plan(courseModels.ActivityAssignment))
	assert.Equal(t, []string{"activity_progress", "project_progress"}, r.Plan(courseModels.ActivityExercise))

	got, err := r.Resolve(context.Background(), f.student, act)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, got.Status)
	assert.Equal(t, 0.0, got.PercentageScore)
}

func TestResolve_QuizAttemptWinsOverProgress(t *testing.T) {
	f := newResolverFixture(t)
	act := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityQuiz, nil)
	quiz := testutil.SeedQuiz(t, f.db, act, 4, 6)
	now := f.clock.Now()

	require.NoError(t, f.db.Create(&courseModels.QuizAttempt{
		UserID: f.student, QuizID: quiz.ID, ActivityID: act.ID,
		StartedAt: now, LastAccessedAt: now, TotalQuestions: 2, CompletedQuestions: 2,
		IsCompleted: true, IsSubmitted: true, Score: 4, PercentageScore: testutil.Float(40), SubmittedAt: &now,
	}).Error)
	testutil.SeedProgress(t, f.db, f.student, act.ID, 100, now)

	got, err := f.resolver(t).Resolve(context.Background(), f.student, act)
	require.NoError(t, err)
	assert.Equal(t, "quiz_attempt", got.Source)
	assert.Equal(t, 40.0, got.PercentageScore)
	assert.Equal(t, 4.0, got.Score)
	assert.Equal(t, 10.0, got.MaxScore)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestResolve_UnsubmittedAttemptIsInProgress(t *testing.T) {
	f := newResolverFixture(t)
	act := testutil.SeedActivity(t, f.db, f.module, courseModels.ActivityQuiz, nil)
	quiz := testutil.SeedQuiz(t, f.db, act, 5)
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&courseModels.QuizAttempt{
		UserID: f.student, QuizID: quiz.ID, ActivityID: act.ID, StartedAt: now, LastAccessedAt: now, TotalQuestions: 1,
	}).Error)

	got, err := f.resolver(t).Resolve(context.Background(), f.student, act)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.False(t, got.Attempted)
	assert.Equal(t, 0.0, got.PercentageScore)
}
