// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// TextGenConfig provides settings for the text-generation capability.
type TextGenConfig interface {
	GetGeminiAPIKey() string
	GetTextModel() string
	GetVisionModel() string
	GetAITimeout() time.Duration
	GetAIRequestsPerSecond() float64
}

// GraphConfig provides settings for the semantic-search graph service.
type GraphConfig interface {
	GetGraphURL() string
	GetGraphAPIKey() string
	GetGraphTimeout() time.Duration
	IsGraphEnabled() bool
}

// TaskExecConfig provides settings for the external evaluation task service.
type TaskExecConfig interface {
	GetTaskExecURL() string
	GetTaskExecAPIKey() string
	GetTaskExecTimeout() time.Duration
}

// PipelineConfig provides tuning knobs for the evaluation pipeline.
type PipelineConfig interface {
	GetTaskPollInterval() time.Duration
	GetTaskStaleAfter() time.Duration
	GetDepartmentsFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	GeminiAPIKey        string
	TextModel           string
	VisionModel         string
	AITimeout           time.Duration
	AIRequestsPerSecond float64

	GraphURL     string
	GraphAPIKey  string
	GraphTimeout time.Duration

	TaskExecURL     string
	TaskExecAPIKey  string
	TaskExecTimeout time.Duration

	TaskPollInterval time.Duration
	TaskStaleAfter   time.Duration
	DepartmentsFile  string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in development.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is fine in production.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		CORSAllowAll:   getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:    splitAndTrim(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),

		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		TextModel:           getEnv("AI_TEXT_MODEL", "gemini-2.0-flash"),
		VisionModel:         getEnv("AI_VISION_MODEL", "gemini-2.0-flash"),
		AITimeout:           getDurationEnv("AI_TIMEOUT", 60*time.Second),
		AIRequestsPerSecond: getFloatEnv("AI_REQUESTS_PER_SECOND", 2),

		GraphURL:     os.Getenv("GRAPH_SERVICE_URL"),
		GraphAPIKey:  os.Getenv("GRAPH_SERVICE_API_KEY"),
		GraphTimeout: getDurationEnv("GRAPH_SERVICE_TIMEOUT", 15*time.Second),

		TaskExecURL:     os.Getenv("TASK_SERVICE_URL"),
		TaskExecAPIKey:  os.Getenv("TASK_SERVICE_API_KEY"),
		TaskExecTimeout: getDurationEnv("TASK_SERVICE_TIMEOUT", 30*time.Second),

		TaskPollInterval: getDurationEnv("TASK_POLL_INTERVAL", 30*time.Second),
		TaskStaleAfter:   getDurationEnv("TASK_STALE_AFTER", 45*time.Minute),
		DepartmentsFile:  os.Getenv("DEPARTMENTS_FILE"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TaskExecURL == "" {
		return nil, fmt.Errorf("TASK_SERVICE_URL is required")
	}

	return cfg, nil
}

// Interface implementations.

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetGeminiAPIKey() string          { return c.GeminiAPIKey }
func (c *Config) GetTextModel() string             { return c.TextModel }
func (c *Config) GetVisionModel() string           { return c.VisionModel }
func (c *Config) GetAITimeout() time.Duration      { return c.AITimeout }
func (c *Config) GetAIRequestsPerSecond() float64  { return c.AIRequestsPerSecond }

func (c *Config) GetGraphURL() string            { return c.GraphURL }
func (c *Config) GetGraphAPIKey() string         { return c.GraphAPIKey }
func (c *Config) GetGraphTimeout() time.Duration { return c.GraphTimeout }
func (c *Config) IsGraphEnabled() bool           { return c.GraphURL != "" }

func (c *Config) GetTaskExecURL() string            { return c.TaskExecURL }
func (c *Config) GetTaskExecAPIKey() string         { return c.TaskExecAPIKey }
func (c *Config) GetTaskExecTimeout() time.Duration { return c.TaskExecTimeout }

func (c *Config) GetTaskPollInterval() time.Duration { return c.TaskPollInterval }
func (c *Config) GetTaskStaleAfter() time.Duration   { return c.TaskStaleAfter }
func (c *Config) GetDepartmentsFile() string         { return c.DepartmentsFile }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloatEnv(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
