package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	AI        AIConfig
	Valkey    ValkeyConfig
	Notify    NotifyConfig
}

type AppConfig struct {
	Version        string
	Port           string
	Debug          bool
	Environment    string
	BasePath       string
	BasicAuth      []string
	TrustedProxies []string
	ServerID       string
	CredentialsKey string // enables at-rest encryption of stored tokens
}

type DatabaseConfig struct {
	Driver   string // "sqlite" (default) or "postgres"
	Host     string
	Port     int
	User     string
	Password string
	Name     string // file path for SQLite, database name for Postgres
}

type SchedulerConfig struct {
	UserID           string
	DispatchInterval int // seconds
	WatchInterval    int // seconds
	MaxRetries       int
	PublishTimeout   int // seconds, per publish call
}

type AIConfig struct {
	GeminiAPIKey   string
	OpenAIAPIKey   string
	GeminiModel    string
	OpenAIModel    string
	ProviderOrder  []string
	TrendingSource string // empty disables the trending topic scraper
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type NotifyConfig struct {
	WorkerPoolSize int
	QueueSize      int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	storageDir := getEnv("APP_STORAGE_DIR", "storages")
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Version:        "v1.2.0",
			Port:           getEnv("APP_PORT", "3000"),
			Debug:          getEnvBool("APP_DEBUG", false),
			Environment:    getEnv("APP_ENV", "development"),
			BasePath:       getEnv("APP_BASE_PATH", ""),
			BasicAuth:      splitNonEmpty(getEnv("APP_BASIC_AUTH", "")),
			TrustedProxies: splitNonEmpty(getEnv("APP_TRUSTED_PROXIES", "")),
			ServerID:       getEnv("APP_SERVER_ID", ""),
			CredentialsKey: getEnv("APP_CREDENTIALS_KEY", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postpilot"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", filepath.Join(storageDir, "postpilot.db")),
		},
		Scheduler: SchedulerConfig{
			UserID:           getEnv("SCHEDULER_USER_ID", "default"),
			DispatchInterval: getEnvInt("SCHEDULER_DISPATCH_INTERVAL", 60),
			WatchInterval:    getEnvInt("SCHEDULER_WATCH_INTERVAL", 30),
			MaxRetries:       getEnvInt("SCHEDULER_MAX_RETRIES", 3),
			PublishTimeout:   getEnvInt("SCHEDULER_PUBLISH_TIMEOUT", 60),
		},
		AI: AIConfig{
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			ProviderOrder:  splitNonEmpty(getEnv("AI_PROVIDER_ORDER", "gemini,openai")),
			TrendingSource: getEnv("AI_TRENDING_SOURCE", "https://dev.to"),
		},
		Valkey: ValkeyConfig{
			Enabled:   getEnvBool("VALKEY_ENABLED", false),
			Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			Password:  getEnv("VALKEY_PASSWORD", ""),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "postpilot"),
		},
		Notify: NotifyConfig{
			WorkerPoolSize: getEnvInt("NOTIFY_POOL_SIZE", 4),
			QueueSize:      getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		},
	}

	Global = cfg
	return cfg, nil
}

func splitNonEmpty(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
