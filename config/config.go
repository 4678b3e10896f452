package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIRONMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

const (
	DefaultMaxUploadBytes    = 16 * 1024 * 1024
	DefaultUploadFolder      = "uploads"
	DefaultAllowedExtensions = "pdf,ppt,pptx,doc,docx,xls,xlsx"
	DefaultReminderSchedule  = "0 0 8 * * *"
)

type EnvironmentVariable struct {
	GO_ENV   string
	LOG_MODE string
	PORT     int

	// Database
	DB_DRIVER    string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	SQLITE_PATH  string
	RESET_DB     bool

	// Uploads
	UPLOAD_FOLDER      string
	MAX_UPLOAD_BYTES   int
	ALLOWED_EXTENSIONS []string

	// LLM provider
	GEMINI_API_KEY          string
	LLM_REQUESTS_PER_SECOND float64
	LLM_MODEL_CACHE_TTL     time.Duration

	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string

	// Redis Configuration
	REDIS_URL string

	// HTTP
	ALLOWED_ORIGINS     string
	RATE_LIMIT_REQUESTS int
	RATE_LIMIT_WINDOW   time.Duration

	// Scheduler
	CRON_ENABLED      bool
	REMINDER_SCHEDULE string

	// DigitalOcean Spaces upload mirror
	DO_SPACES_KEY      string
	DO_SPACES_SECRET   string
	DO_SPACES_BUCKET   string
	DO_SPACES_REGION   string
	DO_SPACES_ENDPOINT string
}

func Get() (*EnvironmentVariable, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 5000
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:   os.Getenv("GO_ENV"),
		LOG_MODE: getString("LOG_MODE", "development"),
		PORT:     port,

		DB_DRIVER:    strings.ToLower(getString("DB_DRIVER", "postgres")),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getString("DB_HOST", "localhost"),
		DB_PORT:      getString("DB_PORT", "5432"),
		DB_SSL_MODE:  getString("DB_SSL_MODE", "disable"),
		SQLITE_PATH:  getString("SQLITE_PATH", "tutor.db"),
		RESET_DB:     getBool("RESET_DB", false),

		UPLOAD_FOLDER:      getString("UPLOAD_FOLDER", DefaultUploadFolder),
		MAX_UPLOAD_BYTES:   getInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		ALLOWED_EXTENSIONS: splitList(getString("ALLOWED_EXTENSIONS", DefaultAllowedExtensions)),

		GEMINI_API_KEY:          os.Getenv("GEMINI_API_KEY"),
		LLM_REQUESTS_PER_SECOND: getFloat("LLM_REQUESTS_PER_SECOND", 2),
		LLM_MODEL_CACHE_TTL:     getDuration("LLM_MODEL_CACHE_TTL", 10*time.Minute),

		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getString("JWT_ISSUER", "adaptive-tutor-api"),

		REDIS_URL: os.Getenv("REDIS_URL"),

		ALLOWED_ORIGINS:     getString("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		RATE_LIMIT_REQUESTS: getInt("RATE_LIMIT_REQUESTS", 120),
		RATE_LIMIT_WINDOW:   getDuration("RATE_LIMIT_WINDOW", time.Minute),

		CRON_ENABLED:      getBool("CRON_ENABLED", true),
		REMINDER_SCHEDULE: getString("REMINDER_SCHEDULE", DefaultReminderSchedule),

		DO_SPACES_KEY:      os.Getenv("DO_SPACES_KEY"),
		DO_SPACES_SECRET:   os.Getenv("DO_SPACES_SECRET"),
		DO_SPACES_BUCKET:   os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:   os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT: os.Getenv("DO_SPACES_ENDPOINT"),
	}

	if envVariables.GO_ENV == "production" && envVariables.JWT_SECRET == "" {
		return nil, errors.New("JWT_SECRET must be set in production")
	}

	return envVariables, nil
}

// IsExtensionAllowed reports whether ext (with or without the leading dot) is accepted for upload.
func (e *EnvironmentVariable) IsExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range e.ALLOWED_EXTENSIONS {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SpacesConfigured reports whether the upload mirror has enough settings to start.
func (e *EnvironmentVariable) SpacesConfigured() bool {
	return e.DO_SPACES_KEY != "" && e.DO_SPACES_SECRET != "" && e.DO_SPACES_BUCKET != "" && e.DO_SPACES_ENDPOINT != ""
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), ".")))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
