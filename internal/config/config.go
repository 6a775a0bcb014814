package config

import (
	"time"

	"github.com/reelkit/reelkit/internal/commission"
	"github.com/reelkit/reelkit/internal/errclass"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/retry"
)

// Config represents the complete application configuration.
type Config struct {
	OpenAI     OpenAIConfig               `mapstructure:"openai"`
	Content    ContentConfig              `mapstructure:"content"`
	RateLimits map[string]ratelimit.Limit `mapstructure:"rate_limits"`
	Retry      RetryConfig                `mapstructure:"retry"`
	Scheduler  SchedulerConfig            `mapstructure:"scheduler"`
	Store      StoreConfig                `mapstructure:"store"`
	Server     ServerConfig               `mapstructure:"server"`
	Logging    LoggingConfig              `mapstructure:"logging"`
	Commission commission.Assumptions     `mapstructure:"commission"`
}

// OpenAIConfig holds chat-completions credentials and routing.
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	PromptFile string        `mapstructure:"prompt_file"`
}

// ContentConfig locates generated content and the product catalog.
type ContentConfig struct {
	Dir          string `mapstructure:"dir"`
	ProductsFile string `mapstructure:"products_file"`
}

// RetryConfig is the user-facing form of retry.Policy.
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseDelay    time.Duration `mapstructure:"base_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	RetryNetwork bool          `mapstructure:"retry_network"`
}

// SchedulerConfig controls the posting loop.
type SchedulerConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	Poster     string        `mapstructure:"poster"`
	WebhookURL string        `mapstructure:"webhook_url"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: simple, structured
	Profile string `mapstructure:"profile"`
}

// Policy converts the retry section into a retry.Policy.
func (c RetryConfig) Policy() retry.Policy {
	retryable := retry.NewCategorySet(errclass.CategoryRateLimit)
	if c.RetryNetwork {
		retryable = retry.DefaultRetryable()
	}
	return retry.Policy{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay,
		MaxDelay:   c.MaxDelay,
		Retryable:  retryable,
	}
}
