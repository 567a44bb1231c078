package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Account  AccountConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins string
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
}

type AuthConfig struct {
	// Mode is "firebase" for ID tokens or "dev" for locally signed tokens.
	Mode      string
	JWTSecret string
	TokenTTL  time.Duration
}

type RedisConfig struct {
	URL          string
	InviteLimit  int
	InviteWindow time.Duration
	WriteLimit   int
	WriteWindow  time.Duration
}

type AccountConfig struct {
	GhostGracePeriod  time.Duration
	RecentLoginWindow time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	// Backend is "firestore" or "memory".
	Backend            string
	CascadeDeletesPerS int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Auth: AuthConfig{
			Mode:      getEnv("AUTH_MODE", "firebase"),
			JWTSecret: getEnv("JWT_SECRET_KEY", ""),
			TokenTTL:  getEnvAsDuration("DEV_TOKEN_TTL", 60*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			InviteLimit:  getEnvAsInt("INVITE_RATE_LIMIT", 20),
			InviteWindow: getEnvAsDuration("INVITE_RATE_WINDOW", time.Hour),
			WriteLimit:   getEnvAsInt("WRITE_RATE_LIMIT", 120),
			WriteWindow:  getEnvAsDuration("WRITE_RATE_WINDOW", time.Minute),
		},
		Account: AccountConfig{
			GhostGracePeriod:  getEnvAsDuration("GHOST_ACCOUNT_GRACE", 2*time.Minute),
			RecentLoginWindow: getEnvAsDuration("RECENT_LOGIN_WINDOW", 5*time.Minute),
		},
		App: AppConfig{
			Environment:        getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			Backend:            getEnv("BACKEND", "firestore"),
			CascadeDeletesPerS: getEnvAsInt("CASCADE_DELETES_PER_SECOND", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.App.Backend {
	case "firestore":
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required when BACKEND=firestore")
		}
	case "memory":
	default:
		return fmt.Errorf("BACKEND must be firestore or memory, got %q", c.App.Backend)
	}

	switch c.Auth.Mode {
	case "firebase":
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required when AUTH_MODE=firebase")
		}
	case "dev":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET_KEY is required when AUTH_MODE=dev")
		}
		if c.App.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=dev is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be firebase or dev, got %q", c.Auth.Mode)
	}

	if c.App.CascadeDeletesPerS <= 0 {
		return fmt.Errorf("CASCADE_DELETES_PER_SECOND must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
