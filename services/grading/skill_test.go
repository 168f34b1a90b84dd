package grading

import (
	"context"
	"math"
	"testing"
	"time"

	"lms/apperr"
	courseModels "lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMastery_SinglePerfectScoreExceeds(t *testing.T) {
	m := DefaultWeights().ComputeMastery(70, []Contribution{{Score: 100, Weight: 1, Attempts: 1}})

	assert.Equal(t, 100.0, m.FinalScore)
	assert.Equal(t, courseModels.MasteryExceeds, m.MasteryLevel)
	assert.Equal(t, 1.0, m.ImprovementFactor)
	assert.Equal(t, 100.0, m.ConsistencyScore)
	assert.Equal(t, 1, m.ActivityCount)
}

func TestComputeMastery_Empty(t *testing.T) {
	m := DefaultWeights().ComputeMastery(70, nil)

	assert.Equal(t, 0.0, m.FinalScore)
	assert.Equal(t, 0.0, m.NormalizedScore)
	assert.Equal(t, 0.0, m.ConsistencyScore)
	assert.Equal(t, courseModels.MasteryNotMet, m.MasteryLevel)
}

func TestComputeMastery_ClampsAboveHundred(t *testing.T) {
	m := DefaultWeights().ComputeMastery(70, []Contribution{
		{Score: 100, Weight: 1, Attempts: 10},
		{Score: 130, Weight: 1, Attempts: 1},
	})

	assert.Greater(t, m.ImprovementFactor, 1.0)
	assert.Equal(t, 100.0, m.NormalizedScore)
	assert.Equal(t, 100.0, m.FinalScore)
	assert.Equal(t, 10, m.AttemptCount)
}

func TestComputeMastery_LatePenaltyIsCapped(t *testing.T) {
	w := DefaultWeights()

	m := w.ComputeMastery(70, []Contribution{{Score: 80, Weight: 1, DaysLate: 3}})
	assert.Equal(t, 6.0, m.LatePenalty)
	assert.Equal(t, 74.0, m.FinalScore)
	assert.Equal(t, courseModels.MasteryMet, m.MasteryLevel)

	m = w.ComputeMastery(70, []Contribution{{Score: 20, Weight: 1, DaysLate: 40}})
	assert.Equal(t, 30.0, m.LatePenalty)
	assert.Equal(t, 0.0, m.FinalScore)
	assert.Equal(t, courseModels.MasteryNotMet, m.MasteryLevel)
}

func TestComputeMastery_WeightedMeanAndImprovement(t *testing.T) {
	m := DefaultWeights().ComputeMastery(70, []Contribution{
		{Score: 60, Weight: 3, Attempts: 2},
		{Score: 100, Weight: 1, Attempts: 1},
	})

	assert.Equal(t, 70.0, m.NormalizedScore)
	want := 1 + math.Log(2)*0.035
	assert.InDelta(t, want, m.ImprovementFactor, 0.0001)
	assert.InDelta(t, 70+(want-1)*10, m.FinalScore, 0.01)
	// population stddev of {60, 100} is 20
	assert.Equal(t, 60.0, m.ConsistencyScore)
}

func TestComputeMastery_ErraticScoresFloorConsistency(t *testing.T) {
	m := DefaultWeights().ComputeMastery(70, []Contribution{
		{Score: 0, Weight: 1},
		{Score: 100, Weight: 1},
	})
	assert.Equal(t, 0.0, m.ConsistencyScore)
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, daysLate(nil, &due))
	assert.Equal(t, 0, daysLate(testutil.Time(due.Add(-time.Hour)), &due))
	assert.Equal(t, 0, daysLate(testutil.Time(due.Add(23*time.Hour)), &due))
	assert.Equal(t, 2, daysLate(testutil.Time(due.Add(49*time.Hour)), &due))
}

func TestAssessor_AssessUpsertsOneRow(t *testing.T) {
	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	student := testutil.SeedUser(t, db, "ada")
	course := testutil.SeedCourse(t, db, "Algebra")
	mod := testutil.SeedModule(t, db, course.ID, "Linear equations", nil)
	act := testutil.SeedActivity(t, db, mod.ID, courseModels.ActivityAssignment, nil)
	skill := testutil.SeedSkill(t, db, mod.ID, "Solving for x", 70, 100)
	testutil.LinkSkill(t, db, skill.ID, act.ID, 0)
	testutil.SeedProgress(t, db, student.ID, act.ID, 100, clock.Now())

	resolver := NewResolver(db, testutil.Logger(t), clock.Now)
	assessor := NewAssessor(db, testutil.Logger(t), resolver, DefaultWeights(), clock.Now)

	first, err := assessor.AssessByID(ctx, student.ID, skill.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.FinalScore)
	assert.Equal(t, courseModels.MasteryExceeds, first.MasteryLevel)
	require.Len(t, first.Contributions, 1)
	assert.Equal(t, 1.0, first.Contributions[0].Weight)

	clock.Advance(time.Hour)
	second, err := assessor.AssessByID(ctx, student.ID, skill.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Mastery, second.Mastery)

	var rows []courseModels.SkillAssessment
	require.NoError(t, db.Where("user_id = ? AND skill_id = ?", student.ID, skill.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].FinalScore)
	assert.Equal(t, courseModels.MasteryExceeds, rows[0].MasteryLevel)
	assert.True(t, rows[0].AssessedAt.Equal(clock.Now()))
}

func TestAssessor_NoAttemptsIsEmptyResult(t *testing.T) {
	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	student := testutil.SeedUser(t, db, "bo")
	course := testutil.SeedCourse(t, db, "Biology")
	mod := testutil.SeedModule(t, db, course.ID, "Cells", nil)
	act := testutil.SeedActivity(t, db, mod.ID, courseModels.ActivityQuiz, nil)
	skill := testutil.SeedSkill(t, db, mod.ID, "Cell anatomy", 0, 0)
	testutil.LinkSkill(t, db, skill.ID, act.ID, 2)

	resolver := NewResolver(db, testutil.Logger(t), clock.Now)
	assessor := NewAssessor(db, testutil.Logger(t), resolver, DefaultWeights(), clock.Now)

	res, err := assessor.AssessByID(context.Background(), student.ID, skill.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, res.Threshold)
	assert.Equal(t, 0.0, res.FinalScore)
	assert.Equal(t, courseModels.MasteryNotMet, res.MasteryLevel)
	assert.Empty(t, res.Contributions)
}

func TestAssessor_LateSubmissionPenalised(t *testing.T) {
	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	student := testutil.SeedUser(t, db, "cy")
	course := testutil.SeedCourse(t, db, "Chemistry")
	mod := testutil.SeedModule(t, db, course.ID, "Bonds", nil)
	due := clock.Now().Add(-5 * 24 * time.Hour)
	act := testutil.SeedActivity(t, db, mod.ID, courseModels.ActivityExercise, &due)
	skill := testutil.SeedSkill(t, db, mod.ID, "Covalent bonds", 70, 100)
	testutil.LinkSkill(t, db, skill.ID, act.ID, 1)
	testutil.SeedProgress(t, db, student.ID, act.ID, 90, due.Add(3*24*time.Hour+time.Hour))

	resolver := NewResolver(db, testutil.Logger(t), clock.Now)
	assessor := NewAssessor(db, testutil.Logger(t), resolver, DefaultWeights(), clock.Now)

	res, err := assessor.AssessByID(context.Background(), student.ID, skill.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DaysLate)
	assert.Equal(t, 6.0, res.LatePenalty)
	assert.Equal(t, 84.0, res.FinalScore)
	assert.Equal(t, courseModels.MasteryMet, res.MasteryLevel)
}

func TestAssessor_UnknownSkill(t *testing.T) {
	db := testutil.DB(t)
	clock := testutil.NewClock(time.Now())
	resolver := NewResolver(db, testutil.Logger(t), clock.Now)
	assessor := NewAssessor(db, testutil.Logger(t), resolver, DefaultWeights(), clock.Now)

	_, err := assessor.AssessByID(context.Background(), 1, 999)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
