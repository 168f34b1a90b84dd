package database

import (
	"fmt"
	"strings"

	"lms/config"
	"lms/logger"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb opens the configured database, runs migrations and stores the
// handle in Database.
func ConnectDb(log *logger.Logger) {
	cfg := config.AppConfig
	dsn := cfg.DBDSN
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	db, err := Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatal("Failed to connect to database", "driver", cfg.DBDriver, "error", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance", "error", err)
	}

	sqlDB.SetMaxOpenConns(10)   // Maximum open connections
	sqlDB.SetMaxIdleConns(5)    // Maximum idle connections
	sqlDB.SetConnMaxLifetime(0) // No timeout

	log.Info("Running Migrations...")
	if err := Migrate(db); err != nil {
		log.Fatal("Migration failed", "error", err)
	}
	log.Info("Migrations completed successfully.")

	Database = DbInstance{Db: db}
}

// Open picks the gorm dialector for driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
}

func buildDSN(cfg *config.Config) string {
	switch strings.ToLower(cfg.DBDriver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case "sqlite", "sqlite3":
		return cfg.DBName
	default:
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
	}
}

// Models is every table the engine reads or writes, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&courseModels.Course{},
		&courseModels.Enrollment{},
		&courseModels.Module{},
		&courseModels.ModuleCompletion{},
		&courseModels.Lesson{},
		&courseModels.LessonCompletion{},
		&courseModels.Activity{},
		&courseModels.Quiz{},
		&courseModels.Question{},
		&courseModels.Option{},
		&courseModels.QuizAttempt{},
		&courseModels.Answer{},
		&courseModels.Assignment{},
		&courseModels.AssignmentQuestion{},
		&courseModels.ActivityProgress{},
		&courseModels.LegacyActivityProgress{},
		&courseModels.AssignmentProgress{},
		&courseModels.ProjectProgress{},
		&courseModels.AssessmentProgress{},
		&courseModels.Skill{},
		&courseModels.SkillActivity{},
		&courseModels.SkillAssessment{},
	}
}

// Migrate performs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
