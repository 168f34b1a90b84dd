package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// GradingProfile carries the per-institution constants of the grade engine.
// Zero values in a YAML file keep the defaults.
type GradingProfile struct {
	ActivityWeights struct {
		Quiz       float64 `yaml:"quiz"`
		Assignment float64 `yaml:"assignment"`
		Assessment float64 `yaml:"assessment"`
		Exercise   float64 `yaml:"exercise"`
	} `yaml:"activity_weights"`

	ModuleComponents struct {
		Lesson   float64 `yaml:"lesson"`
		Activity float64 `yaml:"activity"`
	} `yaml:"module_components"`

	DefaultCompetencyThreshold float64 `yaml:"default_competency_threshold"`
	DefaultPassingPercentage   float64 `yaml:"default_passing_percentage"`

	ImprovementRate   float64 `yaml:"improvement_rate"`
	LatePenaltyPerDay float64 `yaml:"late_penalty_per_day"`
	LatePenaltyCap    float64 `yaml:"late_penalty_cap"`
}

// DefaultGradingProfile returns the stock weights.
func DefaultGradingProfile() GradingProfile {
	var p GradingProfile
	p.ActivityWeights.Quiz = 30
	p.ActivityWeights.Assignment = 15
	p.ActivityWeights.Assessment = 35
	p.ActivityWeights.Exercise = 20
	p.ModuleComponents.Lesson = 0.20
	p.ModuleComponents.Activity = 0.80
	p.DefaultCompetencyThreshold = 70
	p.DefaultPassingPercentage = 70
	p.ImprovementRate = 0.035
	p.LatePenaltyPerDay = 2.0
	p.LatePenaltyCap = 30
	return p
}

// LoadGradingProfile reads a YAML profile on top of the defaults. An empty
// path returns the defaults.
func LoadGradingProfile(path string) (GradingProfile, error) {
	p := DefaultGradingProfile()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrapf(err, "read grading profile %s", path)
	}
	var override GradingProfile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return p, errors.Wrapf(err, "parse grading profile %s", path)
	}
	p.merge(override)
	if sum := p.ModuleComponents.Lesson + p.ModuleComponents.Activity; sum <= 0 {
		return p, errors.Errorf("grading profile %s: module component weights sum to %v", path, sum)
	}
	return p, nil
}

func (p *GradingProfile) merge(o GradingProfile) {
	setIf := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setIf(&p.ActivityWeights.Quiz, o.ActivityWeights.Quiz)
	setIf(&p.ActivityWeights.Assignment, o.ActivityWeights.Assignment)
	setIf(&p.ActivityWeights.Assessment, o.ActivityWeights.Assessment)
	setIf(&p.ActivityWeights.Exercise, o.ActivityWeights.Exercise)
	setIf(&p.ModuleComponents.Lesson, o.ModuleComponents.Lesson)
	setIf(&p.ModuleComponents.Activity, o.ModuleComponents.Activity)
	setIf(&p.DefaultCompetencyThreshold, o.DefaultCompetencyThreshold)
	setIf(&p.DefaultPassingPercentage, o.DefaultPassingPercentage)
	setIf(&p.ImprovementRate, o.ImprovementRate)
	setIf(&p.LatePenaltyPerDay, o.LatePenaltyPerDay)
	setIf(&p.LatePenaltyCap, o.LatePenaltyCap)
}
