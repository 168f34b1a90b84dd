package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterGradeAndGPA(t *testing.T) {
	cases := []struct {
		pct    float64
		letter string
		gpa    float64
	}{
		{100, "A+", 4.0},
		{97, "A+", 4.0},
		{96.99, "A", 4.0},
		{93, "A", 4.0},
		{90, "A-", 3.7},
		{88, "B+", 3.3},
		{85, "B", 3.0},
		{80, "B-", 2.7},
		{79.5, "C+", 2.3},
		{73, "C", 2.0},
		{70, "C-", 1.7},
		{67, "D+", 1.3},
		{63, "D", 1.0},
		{60, "D-", 0.7},
		{59.99, "F", 0.0},
		{0, "F", 0.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.letter, LetterGrade(tc.pct), "letter for %v", tc.pct)
		assert.Equal(t, tc.gpa, PercentageToGPA(tc.pct), "gpa for %v", tc.pct)
	}
}

func TestReadiness(t *testing.T) {
	assert.Equal(t, ReadinessAdvanced, Readiness(85))
	assert.Equal(t, ReadinessProficient, Readiness(84.99))
	assert.Equal(t, ReadinessProficient, Readiness(70))
	assert.Equal(t, ReadinessDeveloping, Readiness(50))
	assert.Equal(t, ReadinessNotReady, Readiness(49.9))
}
