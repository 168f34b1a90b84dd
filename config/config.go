package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    string
	LogMode string

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBDSN      string // overrides the individual DB_* parts when set

	JWTKey string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	GradingProfile string // optional YAML file with institution weights
	QuizDueWindow  time.Duration

	GradeWebhookURL    string
	GradeWebhookSecret string

	RecalcCron       string
	RecalcWindowDays int // 0 repairs all history
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:    getEnv("PORT", "3000"),
		LogMode: getEnv("LOG_MODE", "dev"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lms"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBDSN:      getEnv("DB_DSN", ""),

		JWTKey: getEnv("JWT_SECRET_KEY", "defaultSecret"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		GradingProfile: getEnv("GRADING_PROFILE", ""),
		QuizDueWindow:  getEnvDuration("QUIZ_DUE_WINDOW", 7*24*time.Hour),

		GradeWebhookURL:    getEnv("GRADE_WEBHOOK_URL", ""),
		GradeWebhookSecret: getEnv("GRADE_WEBHOOK_SECRET", ""),

		RecalcCron:       getEnv("RECALC_CRON", "30 2 * * *"),
		RecalcWindowDays: getEnvInt("RECALC_WINDOW_DAYS", 1),
	}

	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.RedisAddr == "" {
		log.Println("Warning: REDIS_ADDR not set. Grade cache falls back to process memory.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

// getEnvDuration accepts Go duration strings ("5m") or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	secs := getEnvInt(key, -1)
	if secs < 0 {
		log.Printf("Error converting environment variable %s to duration: %q", key, value)
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}
