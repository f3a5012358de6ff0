package config

import (
	"os"
	"strconv"
)

// Config holds node configuration.
type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string
	SQLitePath  string
	ProfilesDir string
	Profile     string
	AdminAddr   string
	JWTSecret   string
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local generic postgres
		dbURL = "postgres://credence@localhost:5432/credence?sslmode=disable"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "credence.db"
	}

	profilesDir := os.Getenv("PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	profile := os.Getenv("PROFILE")
	if profile == "" {
		profile = "default"
	}

	return &Config{
		Port:        port,
		LogLevel:    logLevel,
		DatabaseURL: dbURL,
		SQLitePath:  sqlitePath,
		ProfilesDir: profilesDir,
		Profile:     profile,
		AdminAddr:   os.Getenv("ADMIN_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
}

// envInt64 reads an integer environment variable with a fallback.
func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
