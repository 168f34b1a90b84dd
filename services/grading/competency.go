package grading

import (
	"context"
	"fmt"
	"math"
	"sort"

	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ModuleCompetency struct {
	ModuleID uint          `json:"module_id"`
	Title    string        `json:"title"`
	Score    float64       `json:"score"`
	Skills   []SkillResult `json:"skills"`
}

type CourseCompetency struct {
	CourseID uint               `json:"course_id"`
	Title    string             `json:"title"`
	Score    float64            `json:"score"`
	Modules  []ModuleCompetency `json:"modules"`
}

type SkillScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Weakness struct {
	SkillID         uint     `json:"skill_id"`
	Name            string   `json:"name"`
	Score           float64  `json:"score"`
	Threshold       float64  `json:"threshold"`
	Gap             float64  `json:"gap"`
	Recommendations []string `json:"recommendations"`
}

type CompetencyReport struct {
	StudentID    uint               `json:"student_id"`
	OverallScore float64            `json:"overall_score"`
	Readiness    string             `json:"readiness"`
	Courses      []CourseCompetency `json:"courses"`
	Strengths    []SkillScore       `json:"strengths"`
	Weaknesses   []Weakness         `json:"weaknesses"`
}

// CompetencyCalculator rolls skill assessments up to module, course and
// student level.
type CompetencyCalculator struct {
	db       *gorm.DB
	assessor *Assessor
}

func NewCompetencyCalculator(db *gorm.DB, assessor *Assessor) *CompetencyCalculator {
	return &CompetencyCalculator{db: db, assessor: assessor}
}

// skillWeights uses each skill's weight, or an equal share of 100 when a
// skill has none.
func skillWeights(skills []courseModels.Skill) []float64 {
	out := make([]float64, len(skills))
	if len(skills) == 0 {
		return out
	}
	equal := 100 / float64(len(skills))
	for i, s := range skills {
		if s.Weight > 0 {
			out[i] = s.Weight
		} else {
			out[i] = equal
		}
	}
	return out
}

// Module returns ok=false when the module has no skills.
func (c *CompetencyCalculator) Module(ctx context.Context, studentID uint, module *courseModels.Module) (ModuleCompetency, bool, error) {
	mc := ModuleCompetency{ModuleID: module.ID, Title: module.Title, Skills: []SkillResult{}}

	var skills []courseModels.Skill
	if err := c.db.WithContext(ctx).
		Where("module_id = ? AND is_deleted = ?", module.ID, false).
		Order("id asc").Find(&skills).Error; err != nil {
		return mc, false, errors.Wrap(err, "load module skills")
	}
	if len(skills) == 0 {
		return mc, false, nil
	}

	weights := skillWeights(skills)
	var score float64
	for i := range skills {
		res, err := c.assessor.Assess(ctx, studentID, &skills[i])
		if err != nil {
			return mc, false, err
		}
		score += res.FinalScore * weights[i] / 100
		mc.Skills = append(mc.Skills, res)
	}
	mc.Score = round2(score)
	return mc, true, nil
}

// Course returns ok=false when no module of the course has skills.
func (c *CompetencyCalculator) Course(ctx context.Context, studentID uint, course *courseModels.Course) (CourseCompetency, bool, error) {
	cc := CourseCompetency{CourseID: course.ID, Title: course.Title, Modules: []ModuleCompetency{}}

	var modules []courseModels.Module
	if err := c.db.WithContext(ctx).
		Where("course_id = ? AND is_deleted = ?", course.ID, false).
		Order("order_index asc, id asc").Find(&modules).Error; err != nil {
		return cc, false, errors.Wrap(err, "load course modules")
	}

	var kept []courseModels.Module
	var scores []float64
	for i := range modules {
		mc, ok, err := c.Module(ctx, studentID, &modules[i])
		if err != nil {
			return cc, false, err
		}
		if !ok {
			continue
		}
		kept = append(kept, modules[i])
		scores = append(scores, mc.Score)
		cc.Modules = append(cc.Modules, mc)
	}
	if len(kept) == 0 {
		return cc, false, nil
	}
	cc.Score = round2(weightedMean(scores, moduleWeights(kept)))
	return cc, true, nil
}

// Report builds the student's competency profile across enrolled courses.
func (c *CompetencyCalculator) Report(ctx context.Context, studentID uint, courses []courseModels.Course) (CompetencyReport, error) {
	report := CompetencyReport{
		StudentID:  studentID,
		Courses:    []CourseCompetency{},
		Strengths:  []SkillScore{},
		Weaknesses: []Weakness{},
	}

	var all []SkillResult
	var total float64
	for i := range courses {
		cc, ok, err := c.Course(ctx, studentID, &courses[i])
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}
		total += cc.Score
		report.Courses = append(report.Courses, cc)
		for _, m := range cc.Modules {
			all = append(all, m.Skills...)
		}
	}
	if len(report.Courses) > 0 {
		report.OverallScore = round2(total / float64(len(report.Courses)))
	}
	report.Readiness = Readiness(report.OverallScore)
	report.Strengths = Strengths(all)
	report.Weaknesses = Weaknesses(all)
	return report, nil
}

// Strengths averages duplicate skill names, then keeps the skills at or above
// the nearest-rank 80th percentile, best first.
func Strengths(results []SkillResult) []SkillScore {
	out := []SkillScore{}
	if len(results) == 0 {
		return out
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	var names []string
	for _, r := range results {
		if _, seen := counts[r.Name]; !seen {
			names = append(names, r.Name)
		}
		sums[r.Name] += r.FinalScore
		counts[r.Name]++
	}
	collapsed := make([]SkillScore, 0, len(names))
	for _, n := range names {
		collapsed = append(collapsed, SkillScore{Name: n, Score: round2(sums[n] / float64(counts[n]))})
	}

	sorted := make([]float64, len(collapsed))
	for i, s := range collapsed {
		sorted[i] = s.Score
	}
	sort.Float64s(sorted)
	rank := int(math.Ceil(0.8 * float64(len(sorted))))
	cutoff := sorted[rank-1]

	for _, s := range collapsed {
		if s.Score >= cutoff {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Weaknesses lists skills below their own threshold, weakest first.
func Weaknesses(results []SkillResult) []Weakness {
	out := []Weakness{}
	for _, r := range results {
		if r.FinalScore >= r.Threshold {
			continue
		}
		out = append(out, Weakness{
			SkillID:         r.SkillID,
			Name:            r.Name,
			Score:           r.FinalScore,
			Threshold:       r.Threshold,
			Gap:             round2(r.Threshold - r.FinalScore),
			Recommendations: recommendations(r),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

func recommendations(r SkillResult) []string {
	recs := []string{}
	if r.FinalScore < 50 {
		recs = append(recs, fmt.Sprintf("Review the fundamentals of %s before moving on.", r.Name))
	}
	if r.AttemptCount >= 3 {
		recs = append(recs, "Several attempts have not closed the gap; try a different study approach or ask an instructor.")
	}
	if r.ActivityCount >= 2 && r.ConsistencyScore < 60 {
		recs = append(recs, "Results vary a lot between activities; practise regularly to stabilise performance.")
	}
	if r.DifficultyLevel == courseModels.DifficultyAdvanced && r.FinalScore < 60 {
		recs = append(recs, "This is an advanced skill; revisit its prerequisite skills first.")
	}
	if len(recs) == 0 {
		recs = append(recs, fmt.Sprintf("Complete more %s practice to reach the %.0f%% threshold.", r.Name, r.Threshold))
	}
	return recs
}
