package grading

import (
	"context"
	"sync"
	"testing"
	"time"

	"lms/apperr"
	courseModels "lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(3, nil)
	assert.Equal(t, uint(3), s.StudentID)
	assert.Equal(t, 0, s.CourseCount)
	assert.Equal(t, 0.0, s.OverallPercentage)
	assert.Equal(t, 0.0, s.GPA)
	assert.Equal(t, NoGrade, s.LetterGrade)
	assert.NotNil(t, s.Courses)
}

func TestSummarize_MeanOfCoursesAndGPA(t *testing.T) {
	s := Summarize(1, []CourseGrade{{Percentage: 95}, {Percentage: 81}})
	assert.Equal(t, 88.0, s.OverallPercentage)
	assert.Equal(t, "B+", s.LetterGrade)
	// (4.0 + 2.7) / 2
	assert.Equal(t, 3.35, s.GPA)
	assert.Equal(t, ReadinessAdvanced, s.Readiness)
}

type engineFixture struct {
	engine  *Engine
	cache   *MemoryCache
	clock   *testutil.Clock
	student uint
	course  *courseModels.Course
	first   *courseModels.Activity
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	cache := NewMemoryCache(clock.Now)

	student := testutil.SeedUser(t, db, "gil")
	course := testutil.SeedCourse(t, db, "Music")
	testutil.Enroll(t, db, student.ID, course.ID)
	mod := testutil.SeedModule(t, db, course.ID, "Rhythm", nil)
	act := testutil.SeedActivity(t, db, mod.ID, courseModels.ActivityAssignment, nil)

	engine := NewEngine(db, testutil.Logger(t), EngineOptions{
		Weights: DefaultWeights(),
		Clock:   clock.Now,
		Cache:   cache,
		TTL:     time.Minute,
	})
	return &engineFixture{engine: engine, cache: cache, clock: clock, student: student.ID, course: course, first: act}
}

func TestEngine_CachesUntilInvalidated(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	g, err := f.engine.StudentCourseGrades(ctx, f.student, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, g.Percentage)

	testutil.SeedProgress(t, f.engine.db, f.student, f.first.ID, 100, f.clock.Now())

	g, err = f.engine.StudentCourseGrades(ctx, f.student, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, g.Percentage, "served from cache")

	require.NoError(t, f.engine.InvalidateStudent(ctx, f.student))
	g, err = f.engine.StudentCourseGrades(ctx, f.student, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.Percentage)
}

func TestEngine_CacheExpires(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.StudentSummary(ctx, f.student)
	require.NoError(t, err)
	testutil.SeedProgress(t, f.engine.db, f.student, f.first.ID, 50, f.clock.Now())

	f.clock.Advance(2 * time.Minute)
	s, err := f.engine.StudentSummary(ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CourseCount)
	assert.Equal(t, 60.0, s.OverallPercentage)
}

func TestEngine_StudentSummaryWithoutEnrollments(t *testing.T) {
	f := newEngineFixture(t)
	other := testutil.SeedUser(t, f.engine.db, "hal")

	s, err := f.engine.StudentSummary(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, NoGrade, s.LetterGrade)
	assert.Equal(t, 0.0, s.GPA)
}

func TestEngine_Roster(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	second := testutil.SeedUser(t, f.engine.db, "ivy")
	testutil.Enroll(t, f.engine.db, second.ID, f.course.ID)
	testutil.SeedProgress(t, f.engine.db, second.ID, f.first.ID, 100, f.clock.Now())

	roster, err := f.engine.CourseStudentGrades(ctx, f.course.ID)
	require.NoError(t, err)
	require.Equal(t, 2, roster.StudentCount)
	assert.Equal(t, 20.0, roster.Students[0].Grade.Percentage)
	assert.Equal(t, 100.0, roster.Students[1].Grade.Percentage)
	assert.Equal(t, 60.0, roster.ClassAverage)
}

func TestEngine_UnknownCourse(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.engine.StudentCourseGrades(context.Background(), f.student, 404)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.engine.CourseStudentGrades(context.Background(), 404)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestEngine_ConcurrentReadsAgree(t *testing.T) {
	f := newEngineFixture(t)
	testutil.SeedProgress(t, f.engine.db, f.student, f.first.ID, 75, f.clock.Now())

	var wg sync.WaitGroup
	results := make([]float64, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := f.engine.StudentCourseGrades(context.Background(), f.student, f.course.ID)
			results[i], errs[i] = g.Percentage, err
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 80.0, results[i])
	}
}

// writeDuringLessonCount changes the student's grades while a read of module
// target is still in progress.
type writeDuringLessonCount struct {
	LessonCompletionSource
	target uint
	during func()
	once   sync.Once
}

func (w *writeDuringLessonCount) CompletedLessons(ctx context.Context, studentID, moduleID uint) (int64, error) {
	if moduleID == w.target {
		w.once.Do(w.during)
	}
	return w.LessonCompletionSource.CompletedLessons(ctx, studentID, moduleID)
}

func TestEngine_InvalidationDuringComputeIsNotCached(t *testing.T) {
	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	student := testutil.SeedUser(t, db, "jo")
	course := testutil.SeedCourse(t, db, "Art")
	testutil.Enroll(t, db, student.ID, course.ID)
	first := testutil.SeedModule(t, db, course.ID, "Colour", nil)
	act := testutil.SeedActivity(t, db, first.ID, courseModels.ActivityAssignment, nil)
	second := testutil.SeedModule(t, db, course.ID, "Form", nil)
	testutil.SeedLesson(t, db, second.ID, "Shapes")

	var engine *Engine
	hook := &writeDuringLessonCount{LessonCompletionSource: NewLessonCompletionTable(db), target: second.ID}
	hook.during = func() {
		testutil.SeedProgress(t, db, student.ID, act.ID, 100, clock.Now())
		require.NoError(t, engine.InvalidateStudent(ctx, student.ID))
	}
	engine = NewEngine(db, testutil.Logger(t), EngineOptions{
		Weights: DefaultWeights(),
		Clock:   clock.Now,
		Lessons: hook,
		Cache:   NewMemoryCache(clock.Now),
	})

	// (20 + 80) / 2, computed before the progress row landed
	g, err := engine.StudentCourseGrades(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, g.Percentage)

	// (100 + 80) / 2
	g, err = engine.StudentCourseGrades(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, g.Percentage, "stale in-flight result must not be cached")
}
