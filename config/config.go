package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Zoom     ZoomConfig
	Email    EmailConfig
	Secrets  SecretsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/lms?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// ZoomAccount is one named server-to-server OAuth credential set.
// Multiple accounts may coexist, each scoped to a different host user.
type ZoomAccount struct {
	Name         string `json:"name"`
	AccountID    string `json:"account_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ZoomConfig holds provider integration settings.
type ZoomConfig struct {
	// WebhookSecret is the shared webhook secret token. May be empty before the
	// integration is configured; the receiver then drops events instead of
	// verifying them.
	WebhookSecret string
	// Accounts are named credential sets, looked up by name.
	Accounts []ZoomAccount
	// DefaultAccount is the account name used when a live class has none set.
	DefaultAccount string
	// DefaultAutoRecording is the recording mode for newly created meetings
	// ("cloud", "local" or "none").
	DefaultAutoRecording string
	// APIBaseURL and OAuthBaseURL allow overriding the provider endpoints (tests).
	APIBaseURL   string
	OAuthBaseURL string
	// TimeoutSec bounds each outbound provider call.
	TimeoutSec int
}

// Account returns the credential set with the given name, falling back to
// the default account when name is empty. Second result reports whether a
// usable account was found.
func (z ZoomConfig) Account(name string) (ZoomAccount, bool) {
	if name == "" {
		name = z.DefaultAccount
	}
	for _, a := range z.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return ZoomAccount{}, false
}

// EmailConfig for SMTP notification mail.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// SecretsConfig holds the key used to encrypt recording passcodes at rest.
type SecretsConfig struct {
	// RecordingKey is 32 bytes, hex-encoded in env (RECORDING_SECRET_KEY).
	RecordingKey []byte
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	accounts, err := parseZoomAccounts(os.Getenv("ZOOM_ACCOUNTS"))
	if err != nil {
		return nil, fmt.Errorf("parse ZOOM_ACCOUNTS: %w", err)
	}

	var recordingKey []byte
	if v := os.Getenv("RECORDING_SECRET_KEY"); v != "" {
		recordingKey, err = hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("decode RECORDING_SECRET_KEY: %w", err)
		}
		if len(recordingKey) != 32 {
			return nil, fmt.Errorf("RECORDING_SECRET_KEY must be 32 bytes, got %d", len(recordingKey))
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/lms?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lms"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Zoom: ZoomConfig{
			WebhookSecret:        os.Getenv("ZOOM_WEBHOOK_SECRET"),
			Accounts:             accounts,
			DefaultAccount:       getEnv("ZOOM_DEFAULT_ACCOUNT", ""),
			DefaultAutoRecording: getEnv("ZOOM_AUTO_RECORDING", "cloud"),
			APIBaseURL:           getEnv("ZOOM_API_BASE_URL", "https://api.zoom.us/v2"),
			OAuthBaseURL:         getEnv("ZOOM_OAUTH_BASE_URL", "https://zoom.us"),
			TimeoutSec:           getEnvInt("ZOOM_TIMEOUT_SEC", 30),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "LMS Live Classes"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Secrets: SecretsConfig{
			RecordingKey: recordingKey,
		},
	}
	if cfg.Zoom.DefaultAccount == "" && len(accounts) > 0 {
		cfg.Zoom.DefaultAccount = accounts[0].Name
	}
	return cfg, nil
}

// parseZoomAccounts reads the ZOOM_ACCOUNTS env var: a JSON array of credential
// sets, e.g. [{"name":"main","account_id":"...","client_id":"...","client_secret":"..."}].
func parseZoomAccounts(raw string) ([]ZoomAccount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var accounts []ZoomAccount
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, err
	}
	for i, a := range accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("account %d: name required", i)
		}
	}
	return accounts, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
