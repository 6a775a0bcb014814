package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkit/reelkit/internal/errclass"
	"github.com/reelkit/reelkit/internal/ratelimit"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Same(t, cfg, GetConfig())

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "./content", cfg.Content.Dir)
	assert.Equal(t, ratelimit.Limit{MaxRequests: 3, Interval: time.Minute}, cfg.RateLimits["openai"])
	assert.Equal(t, ratelimit.Limit{MaxRequests: 10, Interval: time.Hour}, cfg.RateLimits["poster"])
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 4*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "libsql", cfg.Store.Driver)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_DATA_HOME"), "reelkit", "reelkit.db"), cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10000), cfg.Commission.Views)
	assert.InDelta(t, 0.02, cfg.Commission.ConversionRate, 1e-9)

	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "reelkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
openai:
  model: gpt-4.1
rate_limits:
  openai:
    max_requests: 20
    interval: 30s
  webhook:
    max_requests: 2
    interval: 1s
retry:
  retry_network: false
`), 0644))

	t.Setenv("REELKIT_SERVER_PORT", "9191")
	t.Setenv("REELKIT_RETRY_MAX_RETRIES", "5")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", cfg.OpenAI.Model)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, ratelimit.Limit{MaxRequests: 20, Interval: 30 * time.Second}, cfg.RateLimits["openai"])
	assert.Equal(t, ratelimit.Limit{MaxRequests: 2, Interval: time.Second}, cfg.RateLimits["webhook"])

	policy := cfg.Retry.Policy()
	assert.Equal(t, 5, policy.MaxRetries)
	assert.True(t, policy.Retryable.Has(errclass.CategoryRateLimit))
	assert.False(t, policy.Retryable.Has(errclass.CategoryNetwork))
}

func TestNewViperMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	t.Setenv("REELKIT_OPENAI_MODEL", "")
	require.NoError(t, os.Unsetenv("REELKIT_OPENAI_MODEL"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REELKIT_OPENAI_MODEL=from-dotenv\n"), 0644))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("REELKIT_OPENAI_MODEL"))

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.OpenAI.Model)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := &Config{
		OpenAI:     OpenAIConfig{BaseURL: "not a url"},
		RateLimits: map[string]ratelimit.Limit{"openai": {MaxRequests: 0, Interval: time.Second}},
		Retry:      RetryConfig{MaxRetries: -1, BaseDelay: time.Second, MaxDelay: time.Millisecond},
		Scheduler:  SchedulerConfig{Interval: time.Minute, Poster: "webhook"},
		Server:     ServerConfig{Port: 70000},
	}
	cfg.Commission.Views = -5

	err := cfg.Validate()
	require.Error(t, err)

	envelope, ok := err.(*gferrors.ErrorEnvelope)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_INVALID", envelope.Code)

	for _, want := range []string{
		"openai.base_url must be an absolute URL",
		"content.dir is required",
		"rate_limits.openai:",
		"retry.max_retries must not be negative",
		"retry.max_delay must be at least retry.base_delay",
		"scheduler.webhook_url is required for the webhook poster",
		"server.port must be between 1 and 65535",
		"commission:",
	} {
		assert.Contains(t, envelope.Message, want)
	}
	assert.Equal(t, 7, strings.Count(envelope.Message, "; "))
}
