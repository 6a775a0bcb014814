// Package config loads reelkit configuration from .env files, an optional YAML
// config file, REELKIT_ environment variables, and built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/reelkit/reelkit/internal/errors"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "REELKIT"

const appName = "reelkit"

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults, env binding, and the
// config file (explicit path, or config.yaml in the standard locations).
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
	}

	// A missing config file is fine unless one was named explicitly.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("openai.prompt_file", "")

	// Content defaults
	v.SetDefault("content.dir", "./content")
	v.SetDefault("content.products_file", "./products.yaml")

	// Rate limit defaults (per service)
	v.SetDefault("rate_limits", map[string]any{
		"openai": map[string]any{"max_requests": 3, "interval": "1m"},
		"poster": map[string]any{"max_requests": 10, "interval": "1h"},
	})

	// Retry defaults
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.retry_network", true)

	// Scheduler defaults
	v.SetDefault("scheduler.interval", "4h")
	v.SetDefault("scheduler.poster", "log")
	v.SetDefault("scheduler.webhook_url", "")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Commission defaults
	v.SetDefault("commission.views", 10000)
	v.SetDefault("commission.ctr", 0.01)
	v.SetDefault("commission.conversion_rate", 0.02)
}

// Load decodes v into a Config, applies fallbacks, and stores it for GetConfig.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is required")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		cfg.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate reports every invalid setting in one CONFIG_INVALID envelope.
func (c *Config) Validate() error {
	if c == nil {
		return apperrors.NewConfigInvalidError("configuration is not loaded")
	}

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if base := strings.TrimSpace(c.OpenAI.BaseURL); base != "" {
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			add("openai.base_url must be an absolute URL")
		}
	}
	if c.OpenAI.Timeout < 0 {
		add("openai.timeout must not be negative")
	}
	if strings.TrimSpace(c.Content.Dir) == "" {
		add("content.dir is required")
	}

	names := make([]string, 0, len(c.RateLimits))
	for name := range c.RateLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.RateLimits[name].Validate(); err != nil {
			add("rate_limits.%s: %v", name, err)
		}
	}

	if c.Retry.MaxRetries < 0 {
		add("retry.max_retries must not be negative")
	}
	if c.Retry.BaseDelay <= 0 {
		add("retry.base_delay must be positive")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		add("retry.max_delay must be at least retry.base_delay")
	}

	if c.Scheduler.Interval <= 0 {
		add("scheduler.interval must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Scheduler.Poster)) {
	case "log":
	case "webhook":
		if strings.TrimSpace(c.Scheduler.WebhookURL) == "" {
			add("scheduler.webhook_url is required for the webhook poster")
		}
	default:
		add("scheduler.poster must be log or webhook")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535")
	}
	if err := c.Commission.Validate(); err != nil {
		add("commission: %v", err)
	}

	if len(problems) == 0 {
		return nil
	}

	envelope := apperrors.NewConfigInvalidError(strings.Join(problems, "; "))
	if updated, err := envelope.WithContext(map[string]interface{}{"problems": problems}); err == nil {
		envelope = updated
	}
	return envelope
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/reelkit, or ~/.config/reelkit.
func DefaultConfigDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DefaultDataDir returns $XDG_DATA_HOME/reelkit, or ~/.local/share/reelkit.
func DefaultDataDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// DefaultStorePath returns the path to the post log database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appName + ".db"
	}
	return filepath.Join(dataDir, appName+".db")
}
