package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lms/apperr"
	"lms/logger"
	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Engine is the read side of grading: the four grade queries plus the
// competency report, cached per student.
type Engine struct {
	db         *gorm.DB
	log        *logger.Logger
	courses    *CourseCalculator
	assessor   *Assessor
	competency *CompetencyCalculator
	cache      Cache
	ttl        time.Duration
	group      singleflight.Group
	gens       generations
}

// generations counts invalidations per student. A result computed under an
// older generation is never written to the cache.
type generations struct {
	mu sync.Mutex
	m  map[uint]uint64
}

func (g *generations) current(studentID uint) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m[studentID]
}

func (g *generations) bump(studentID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = map[uint]uint64{}
	}
	g.m[studentID]++
}

type EngineOptions struct {
	Weights Weights
	Clock   func() time.Time
	Lessons LessonCompletionSource
	// Cache may be nil, which disables caching.
	Cache Cache
	TTL   time.Duration
}

func NewEngine(db *gorm.DB, baseLog *logger.Logger, opts EngineOptions) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	resolver := NewResolver(db, baseLog, opts.Clock)
	modules := NewModuleCalculator(db, resolver, opts.Lessons, opts.Weights)
	assessor := NewAssessor(db, baseLog, resolver, opts.Weights, opts.Clock)
	return &Engine{
		db:         db,
		log:        baseLog.With("service", "GradeEngine"),
		courses:    NewCourseCalculator(db, modules),
		assessor:   assessor,
		competency: NewCompetencyCalculator(db, assessor),
		cache:      opts.Cache,
		ttl:        opts.TTL,
	}
}

// Assessor exposes the skill assessor to the repair job.
func (e *Engine) Assessor() *Assessor { return e.assessor }

// cached serves key from the cache, collapsing concurrent misses into one
// computation. Cache failures degrade to a direct computation.
func cached[T any](ctx context.Context, e *Engine, studentID uint, key string, compute func() (T, error)) (T, error) {
	var zero T
	if e.cache != nil {
		raw, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.log.Warn("grade cache read failed", "key", key, "error", err)
		} else if ok {
			var out T
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
			e.log.Warn("grade cache entry unreadable; recomputing", "key", key)
		}
	}

	gen := e.gens.current(studentID)
	v, err, _ := e.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		out, err := compute()
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			e.store(ctx, studentID, gen, key, out)
		}
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// store writes out unless the student was invalidated since gen was read. The
// second check drops an entry that raced with an invalidation's delete.
func (e *Engine) store(ctx context.Context, studentID uint, gen uint64, key string, out interface{}) {
	if e.gens.current(studentID) != gen {
		return
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, raw, e.ttl); err != nil {
		e.log.Warn("grade cache write failed", "key", key, "error", err)
		return
	}
	if e.gens.current(studentID) != gen {
		_ = e.cache.DeletePrefix(ctx, key)
	}
}

func (e *Engine) loadCourse(ctx context.Context, courseID uint) (*courseModels.Course, error) {
	var courses []courseModels.Course
	if err := e.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", courseID, false).
		Limit(1).Find(&courses).Error; err != nil {
		return nil, errors.Wrap(err, "load course")
	}
	if len(courses) == 0 {
		return nil, apperr.New(apperr.NotFound, "Course not found")
	}
	return &courses[0], nil
}

func (e *Engine) StudentCourseGrades(ctx context.Context, studentID, courseID uint) (CourseGrade, error) {
	return cached(ctx, e, studentID, courseKey(studentID, courseID), func() (CourseGrade, error) {
		course, err := e.loadCourse(ctx, courseID)
		if err != nil {
			return CourseGrade{}, err
		}
		return e.courses.Calculate(ctx, studentID, course)
	})
}

// CourseStudentGrades is the roster view. It is computed fresh on every call.
func (e *Engine) CourseStudentGrades(ctx context.Context, courseID uint) (Roster, error) {
	course, err := e.loadCourse(ctx, courseID)
	if err != nil {
		return Roster{}, err
	}
	roster := Roster{CourseID: course.ID, Title: course.Title, Students: []RosterEntry{}}

	students, err := enrolledStudents(ctx, e.db, course.ID)
	if err != nil {
		return roster, err
	}
	var total float64
	for _, s := range students {
		g, err := e.courses.Calculate(ctx, s.ID, course)
		if err != nil {
			return roster, err
		}
		total += g.Percentage
		roster.Students = append(roster.Students, RosterEntry{StudentID: s.ID, Name: s.Name, Grade: g})
	}
	roster.StudentCount = len(roster.Students)
	if roster.StudentCount > 0 {
		roster.ClassAverage = round2(total / float64(roster.StudentCount))
	}
	return roster, nil
}

// StudentSkillAssessment always recomputes and upserts the stored assessment.
func (e *Engine) StudentSkillAssessment(ctx context.Context, studentID, skillID uint) (SkillResult, error) {
	return e.assessor.AssessByID(ctx, studentID, skillID)
}

func (e *Engine) StudentSummary(ctx context.Context, studentID uint) (StudentSummary, error) {
	return cached(ctx, e, studentID, summaryKey(studentID), func() (StudentSummary, error) {
		courses, err := enrolledCourses(ctx, e.db, studentID)
		if err != nil {
			return StudentSummary{}, err
		}
		grades := make([]CourseGrade, 0, len(courses))
		for i := range courses {
			g, err := e.courses.Calculate(ctx, studentID, &courses[i])
			if err != nil {
				return StudentSummary{}, err
			}
			grades = append(grades, g)
		}
		return Summarize(studentID, grades), nil
	})
}

func (e *Engine) StudentCompetencyReport(ctx context.Context, studentID uint) (CompetencyReport, error) {
	return cached(ctx, e, studentID, competencyKey(studentID), func() (CompetencyReport, error) {
		courses, err := enrolledCourses(ctx, e.db, studentID)
		if err != nil {
			return CompetencyReport{}, err
		}
		return e.competency.Report(ctx, studentID, courses)
	})
}

// InvalidateStudent drops every cached projection of one student. Call it
// after any change to that student's answers, attempts or completions.
func (e *Engine) InvalidateStudent(ctx context.Context, studentID uint) error {
	e.gens.bump(studentID)
	if e.cache == nil {
		return nil
	}
	if err := e.cache.DeletePrefix(ctx, studentPrefix(studentID)); err != nil {
		e.log.Error("grade cache invalidation failed", "user_id", studentID, "error", err)
		return err
	}
	return nil
}
