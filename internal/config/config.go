package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	// Server configuration
	Port            string
	AppEnv          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Logging
	LogLevel string

	// Storage. An empty DatabaseURL keeps state in memory only.
	DatabaseURL string

	// Redis relay for sync events. Disabled when RedisAddr is empty.
	Redis RedisConfig

	// JWT configuration
	JWTSecret string
	TokenTTL  time.Duration
	SeedUsers []string

	// Jobs
	ExpirySchedule   string
	SnapshotSchedule string

	// External services
	SendGrid SendGridConfig
	Twilio   TwilioConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Load reads .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		AppEnv:          getEnv("APP_ENV", "production"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 0),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     getStringSliceEnv("CORS_ORIGINS", []string{"*"}),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "smartparking:events"),
		},

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDurationEnv("TOKEN_TTL", time.Hour),
		SeedUsers: getStringSliceEnv("SEED_USERS", nil),

		ExpirySchedule:   getEnv("EXPIRY_SCHEDULE", "@every 1m"),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "@every 5m"),

		SendGrid: SendGridConfig{
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
			FromName:  getEnv("SENDGRID_FROM_NAME", "Smart Parking"),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Validate rejects settings the server cannot start with. Development mode
// gets a fixed JWT secret when none is set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET not set")
		}
		c.JWTSecret = "development-secret"
	}
	if c.ExpirySchedule == "" {
		return errors.New("EXPIRY_SCHEDULE cannot be empty")
	}
	return nil
}

// SeedUser is one entry of SEED_USERS, written as email:password:role[:phone].
type SeedUser struct {
	Email    string
	Password string
	Role     string
	Phone    string
}

func (c *Config) ParseSeedUsers() ([]SeedUser, error) {
	var out []SeedUser
	for _, raw := range c.SeedUsers {
		parts := strings.SplitN(raw, ":", 4)
		if len(parts) < 3 {
			return nil, errors.New("SEED_USERS entries must be email:password:role[:phone]")
		}
		u := SeedUser{Email: parts[0], Password: parts[1], Role: parts[2]}
		if len(parts) == 4 {
			u.Phone = parts[3]
		}
		out = append(out, u)
	}
	return out, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getStringSliceEnv splits a comma separated variable, dropping blanks.
func getStringSliceEnv(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
