package grading

import "math"

type gradeBucket struct {
	min    float64
	letter string
	gpa    float64
}

// gradeScale is shared by letter grades and GPA points everywhere.
var gradeScale = []gradeBucket{
	{97, "A+", 4.0},
	{93, "A", 4.0},
	{90, "A-", 3.7},
	{87, "B+", 3.3},
	{83, "B", 3.0},
	{80, "B-", 2.7},
	{77, "C+", 2.3},
	{73, "C", 2.0},
	{70, "C-", 1.7},
	{67, "D+", 1.3},
	{63, "D", 1.0},
	{60, "D-", 0.7},
	{math.Inf(-1), "F", 0.0},
}

const NoGrade = "N/A"

func bucketFor(percentage float64) gradeBucket {
	for _, b := range gradeScale {
		if percentage >= b.min {
			return b
		}
	}
	return gradeScale[len(gradeScale)-1]
}

// LetterGrade maps a 0-100 percentage to A+ … F.
func LetterGrade(percentage float64) string {
	return bucketFor(percentage).letter
}

// PercentageToGPA maps a 0-100 percentage to the 4.0 scale.
func PercentageToGPA(percentage float64) float64 {
	return bucketFor(percentage).gpa
}

// Readiness classifies an overall competency score.
func Readiness(score float64) string {
	switch {
	case score >= 85:
		return ReadinessAdvanced
	case score >= 70:
		return ReadinessProficient
	case score >= 50:
		return ReadinessDeveloping
	default:
		return ReadinessNotReady
	}
}

const (
	ReadinessAdvanced   = "Advanced"
	ReadinessProficient = "Proficient"
	ReadinessDeveloping = "Developing"
	ReadinessNotReady   = "Not Ready"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
