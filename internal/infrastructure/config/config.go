package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Anthropic AnthropicConfig
	Session   SessionConfig
	Terminal  TerminalConfig
	Loop      LoopConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// AnthropicConfig holds the model API client configuration.
type AnthropicConfig struct {
	APIKey            string  `envconfig:"ANTHROPIC_API_KEY"`
	BaseURL           string  `envconfig:"ANTHROPIC_BASE_URL" default:"https://api.anthropic.com"`
	Model             string  `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-sonnet-20241022"`
	MaxTokens         int     `envconfig:"ANTHROPIC_MAX_TOKENS" default:"1024"`
	MaxRetries        int     `envconfig:"ANTHROPIC_MAX_RETRIES" default:"3"`
	RequestsPerSecond float64 `envconfig:"ANTHROPIC_RPS" default:"2"`
	PromptCaching     bool    `envconfig:"ANTHROPIC_PROMPT_CACHING" default:"true"`
}

// SessionConfig holds shell session configuration.
type SessionConfig struct {
	Shell          string        `envconfig:"SESSION_SHELL" default:"/bin/bash"`
	CommandTimeout time.Duration `envconfig:"SESSION_COMMAND_TIMEOUT" default:"120s"`
	PollInterval   time.Duration `envconfig:"SESSION_POLL_INTERVAL" default:"200ms"`
}

// TerminalConfig holds PTY session configuration.
type TerminalConfig struct {
	Shell       string `envconfig:"TERMINAL_SHELL" default:"/bin/bash"`
	MaxSessions int    `envconfig:"TERMINAL_MAX_SESSIONS" default:"8"`
	BufferSize  int    `envconfig:"TERMINAL_BUFFER_SIZE" default:"1048576"`
}

// LoopConfig holds agent loop configuration.
type LoopConfig struct {
	MaxOperations int           `envconfig:"LOOP_MAX_OPERATIONS" default:"5"`
	TaskTimeout   time.Duration `envconfig:"LOOP_TASK_TIMEOUT" default:"10m"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Anthropic: AnthropicConfig{
			BaseURL:           "https://api.anthropic.com",
			Model:             "claude-3-5-sonnet-20241022",
			MaxTokens:         1024,
			MaxRetries:        3,
			RequestsPerSecond: 2,
			PromptCaching:     true,
		},
		Session: SessionConfig{
			Shell:          "/bin/bash",
			CommandTimeout: 120 * time.Second,
			PollInterval:   200 * time.Millisecond,
		},
		Terminal: TerminalConfig{
			Shell:       "/bin/bash",
			MaxSessions: 8,
			BufferSize:  1 << 20,
		},
		Loop: LoopConfig{
			MaxOperations: 5,
			TaskTimeout:   10 * time.Minute,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
