package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Batch   BatchConfig
	Session SessionConfig
	Log     LogConfig
}

// ServerConfig holds listener configuration for the HTTP and gRPC boundaries
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	UploadMaxBytes string
}

// LLMConfig holds configuration for the fallback resolver and its providers
type LLMConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	GeminiAPIKey string
	GeminiModel  string
	Temperature  float32
	Timeout      time.Duration
	RetryBackoff time.Duration
	MaxInFlight  int
	ExcerptChars int
}

// BatchConfig holds document processing configuration
type BatchConfig struct {
	Workers           int
	PreviewChars      int
	ZipMaxMemberBytes int64
	RulesFile         string
}

// SessionConfig holds review session lifecycle configuration
type SessionConfig struct {
	MaxSessions     int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Known fallback providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
	ProviderNone   = "none"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8081"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			UploadMaxBytes: getEnv("UPLOAD_MAX_BYTES", "64M"),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:  getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
			RetryBackoff: getEnvAsDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),
			MaxInFlight:  getEnvAsInt("LLM_MAX_IN_FLIGHT", 2),
			ExcerptChars: getEnvAsInt("LLM_EXCERPT_CHARS", 6000),
		},
		Batch: BatchConfig{
			Workers:           getEnvAsInt("BATCH_WORKERS", 4),
			PreviewChars:      getEnvAsInt("PREVIEW_CHARS", 2000),
			ZipMaxMemberBytes: getEnvAsInt64("ZIP_MAX_MEMBER_BYTES", 32<<20),
			RulesFile:         getEnv("RULES_FILE", ""),
		},
		Session: SessionConfig{
			MaxSessions:     getEnvAsInt("SESSION_MAX", 10),
			TTL:             getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. A missing LLM key is allowed:
// the fallback resolver then answers "Unknown".
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderMock, ProviderNone:
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("LLM_PROVIDER %q is not supported", c.LLM.Provider), ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 {
		return NewAppError(CodeConfig, "LLM_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.LLM.MaxInFlight <= 0 {
		return NewAppError(CodeConfig, "LLM_MAX_IN_FLIGHT must be positive", ErrInvalidInput)
	}
	if c.LLM.ExcerptChars <= 0 {
		return NewAppError(CodeConfig, "LLM_EXCERPT_CHARS must be positive", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError(CodeConfig, "BATCH_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Batch.PreviewChars <= 0 {
		return NewAppError(CodeConfig, "PREVIEW_CHARS must be positive", ErrInvalidInput)
	}
	if c.Session.MaxSessions <= 0 {
		return NewAppError(CodeConfig, "SESSION_MAX must be positive", ErrInvalidInput)
	}
	if c.Session.TTL <= 0 {
		return NewAppError(CodeConfig, "SESSION_TTL must be positive", ErrInvalidInput)
	}
	return nil
}

// HasLLMCredential reports whether the selected provider has what it needs to make calls.
func (c *Config) HasLLMCredential() bool {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		return c.LLM.APIKey != ""
	case ProviderGemini:
		return c.LLM.GeminiAPIKey != ""
	case ProviderMock:
		return true
	default:
		return false
	}
}
