// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// データベースドライバ
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// セッションストア
const (
	SessionStoreMemory   = "memory"
	SessionStoreDatabase = "database"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DatabaseDriver string

	// Session
	SessionStore           string
	SessionMaxAge          int
	SessionCleanupSchedule string

	// Auth
	BcryptCost int

	// Task
	TaskOwnership string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や、列挙値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	// Optional fields with defaults
	cfg.DatabaseDriver = strings.ToLower(getEnvString("DATABASE_DRIVER", DriverPostgres))
	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStoreMemory))
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupSchedule = getEnvString("SESSION_CLEANUP_SCHEDULE", "@every 1h")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.TaskOwnership = strings.ToLower(getEnvString("TASK_OWNERSHIP", "open"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: must be %q or %q", c.DatabaseDriver, DriverPostgres, DriverSQLite)
	}

	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreDatabase:
	default:
		return fmt.Errorf("invalid SESSION_STORE %q: must be %q or %q", c.SessionStore, SessionStoreMemory, SessionStoreDatabase)
	}

	switch c.TaskOwnership {
	case "open", "strict":
	default:
		return fmt.Errorf("invalid TASK_OWNERSHIP %q: must be \"open\" or \"strict\"", c.TaskOwnership)
	}

	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("invalid SESSION_MAX_AGE %d: must be positive", c.SessionMaxAge)
	}

	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
