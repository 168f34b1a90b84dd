package main

import (
	"context"
	"flag"
	"log"

	"lms/config"
	"lms/database"
	"lms/logger"
	"lms/services/grading"
	"lms/services/repair"
)

// Repairs derived grade state. Run with -days 0 to cover all history.
func main() {
	// Load config and connect to database
	config.LoadConfig()
	cfg := config.AppConfig

	days := flag.Int("days", cfg.RecalcWindowDays, "repair rows touched in the last N days; 0 for all history")
	flag.Parse()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	database.ConnectDb(appLog)

	profile, err := config.LoadGradingProfile(cfg.GradingProfile)
	if err != nil {
		log.Fatalf("Failed to load grading profile: %v", err)
	}
	engine := grading.NewEngine(database.Database.Db, appLog, grading.EngineOptions{
		Weights: grading.NewWeights(profile),
		Cache:   grading.OpenCache(cfg.RedisAddr, cfg.RedisPassword, appLog),
		TTL:     cfg.CacheTTL,
	})

	rep, err := repair.NewService(database.Database.Db, appLog, engine, nil).Run(context.Background(), *days)
	if err != nil {
		log.Fatalf("Recalculation failed: %v", err)
	}

	log.Printf("Window start: %v", rep.Since)
	log.Printf("Attempts recounted: %d", rep.AttemptsRecounted)
	log.Printf("Progress rows resynced: %d", rep.ProgressResynced)
	log.Printf("Skill assessments recomputed: %d", rep.SkillsReassessed)
	log.Printf("Students invalidated: %d", rep.StudentsInvalidated)
	log.Printf("Took %v", rep.Duration)
}
