package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"lms/config"
	gradingControllers "lms/controllers/grading"
	quizControllers "lms/controllers/quiz"
	"lms/database"
	"lms/logger"
	"lms/routers/gradeRoutes"
	"lms/routers/quizRoutes"
	"lms/services/grading"
	"lms/services/repair"
	quizService "lms/services/quiz"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	database.ConnectDb(appLog)
	db := database.Database.Db

	profile, err := config.LoadGradingProfile(cfg.GradingProfile)
	if err != nil {
		appLog.Fatal("Failed to load grading profile", "path", cfg.GradingProfile, "error", err)
	}

	weights := grading.NewWeights(profile)
	engine := grading.NewEngine(db, appLog, grading.EngineOptions{
		Weights: weights,
		Cache:   grading.OpenCache(cfg.RedisAddr, cfg.RedisPassword, appLog),
		TTL:     cfg.CacheTTL,
	})

	quizOpts := quizService.Options{
		DueWindow:                cfg.QuizDueWindow,
		DefaultPassingPercentage: weights.DefaultPassingPercentage,
		Invalidator:              engine,
	}
	if cfg.GradeWebhookURL != "" {
		quizOpts.Notifier = utils.NewGradeWebhook(cfg.GradeWebhookURL, cfg.GradeWebhookSecret, appLog)
	}
	quizzes := quizService.NewService(db, appLog, quizOpts)

	scheduler, err := utils.InitializeGradeScheduler(cfg.RecalcCron, cfg.RecalcWindowDays, repair.NewService(db, appLog, engine, nil), appLog)
	if err != nil {
		appLog.Fatal("Failed to start grade scheduler", "error", err)
	}
	defer scheduler.Stop()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	quizRoutes.SetupQuizRoutes(app, quizControllers.NewHandler(quizzes))
	gradeRoutes.SetupGradeRoutes(app, gradingControllers.NewHandler(engine))

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		appLog.Info("Shutting down...")
		_ = app.Shutdown()
	}()

	appLog.Info("Server is running", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Error("Server stopped", "error", err)
	}
}
