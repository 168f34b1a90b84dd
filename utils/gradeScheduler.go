package utils

import (
	"context"
	"time"

	"lms/logger"
	"lms/services/repair"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Recalculator is the part of the repair service the scheduler drives.
type Recalculator interface {
	Run(ctx context.Context, windowDays int) (repair.Report, error)
}

// InitializeGradeScheduler registers the nightly grade repair and starts the
// cron runner. Stop the returned cron on shutdown.
func InitializeGradeScheduler(spec string, windowDays int, job Recalculator, baseLog *logger.Logger) (*cron.Cron, error) {
	log := baseLog.With("service", "GradeScheduler")
	log.Info("[GRADE-SCHEDULER] Initializing grade recalculation scheduler...", "spec", spec)

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		log.Info("[GRADE-SCHEDULER] Running grade recalculation...")
		RunGradeRecalculation(job, windowDays, log)
	}); err != nil {
		return nil, errors.Wrapf(err, "invalid RECALC_CRON %q", spec)
	}

	c.Start()
	log.Info("[GRADE-SCHEDULER] Grade scheduler started", "spec", spec, "window_days", windowDays)
	return c, nil
}

// RunGradeRecalculation runs one repair pass with a one hour ceiling.
func RunGradeRecalculation(job Recalculator, windowDays int, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	rep, err := job.Run(ctx, windowDays)
	if err != nil {
		log.Error("[GRADE-SCHEDULER] Grade recalculation failed", "error", err)
		return
	}
	log.Info("[GRADE-SCHEDULER] Grade recalculation done",
		"recounted", rep.AttemptsRecounted, "resynced", rep.ProgressResynced,
		"skills", rep.SkillsReassessed, "students", rep.StudentsInvalidated)
}
