package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port string
	Env  string

	DB    DatabaseConfig
	Redis RedisConfig
	Auth  AuthConfig
	Admin AdminBootstrapConfig
	CORS  CORSConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig contains token signing secrets and session-security parameters.
// Access and refresh tokens are signed with distinct secrets so that a leaked
// refresh key cannot forge access tokens or vice versa.
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string

	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
	ResetTokenTTL time.Duration
	MaxLoginFails int
	LockoutWindow time.Duration
	BcryptCost    int
	ResetURLBase  string
}

// AdminBootstrapConfig contains credentials for the one-time setup endpoint.
type AdminBootstrapConfig struct {
	Email    string
	Password string
}

// CORSConfig lists hosts allowed to call the API from a browser.
type CORSConfig struct {
	AllowedHosts []string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Auth
	cfg.Auth = AuthConfig{
		AccessSecret:  getEnv("JWT_SECRET_KEY", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET_KEY", ""),
		MaxLoginFails: getEnvInt("MAX_LOGIN_ATTEMPTS", 5),
		BcryptCost:    getEnvInt("BCRYPT_COST", 12),
		ResetURLBase:  getEnv("RESET_URL_BASE", "http://localhost:3000/admin/reset-password"),
	}

	var err error
	if cfg.Auth.AccessTTL, err = parseDurationEnv("ACCESS_TOKEN_TTL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.Auth.RefreshTTL, err = parseDurationEnv("REFRESH_TOKEN_TTL", "168h"); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.Auth.RememberMeTTL, err = parseDurationEnv("REMEMBER_ME_TTL", "720h"); err != nil {
		return nil, fmt.Errorf("invalid REMEMBER_ME_TTL: %w", err)
	}
	if cfg.Auth.ResetTokenTTL, err = parseDurationEnv("RESET_TOKEN_TTL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid RESET_TOKEN_TTL: %w", err)
	}
	if cfg.Auth.LockoutWindow, err = parseDurationEnv("LOCKOUT_DURATION", "15m"); err != nil {
		return nil, fmt.Errorf("invalid LOCKOUT_DURATION: %w", err)
	}

	// Bootstrap admin (one-time setup endpoint)
	cfg.Admin = AdminBootstrapConfig{
		Email:    getEnv("ADMIN_EMAIL", "admin@timelov.pl"),
		Password: getEnv("ADMIN_PASSWORD", ""),
	}

	// CORS
	cfg.CORS = CORSConfig{
		AllowedHosts: []string{
			"localhost:3000",
			"127.0.0.1:3000",
			getEnv("ADMIN_PANEL_HOST", "admin.timelov.pl"),
		},
	}

	// Basic validation for DB parameters — keeps messages concise and helpful.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.Auth.AccessSecret == "" {
		return nil, errors.New("JWT_SECRET_KEY must be set for authentication")
	}
	if cfg.Auth.RefreshSecret == "" {
		return nil, errors.New("JWT_REFRESH_SECRET_KEY must be set for authentication")
	}
	if cfg.Auth.AccessSecret == cfg.Auth.RefreshSecret {
		return nil, errors.New("JWT_SECRET_KEY and JWT_REFRESH_SECRET_KEY must differ")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be > 0")
	}
	return d, nil
}
