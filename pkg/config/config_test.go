package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/blamebot/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "blamebot.db", cfg.Database.Path)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Pagination.PageSize)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.Timeout)

	assert.Equal(t, 3*time.Second, cfg.Guard.Deadline)
	assert.Equal(t, 1000, cfg.Guard.Capacity)
	assert.Equal(t, 500, cfg.Guard.Retain)

	assert.ErrorIs(t, cfg.RequireDiscord(), ErrMissingCredentials)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BLAMEBOT_DISCORD_TOKEN", "secret")
	t.Setenv("BLAMEBOT_DISCORD_APP_ID", "123")
	t.Setenv("BLAMEBOT_DATABASE_PATH", "/data/blames.db")
	t.Setenv("BLAMEBOT_REDIS_ENABLED", "true")
	t.Setenv("BLAMEBOT_REDIS_ADDR", "redis:6379")
	t.Setenv("BLAMEBOT_PAGINATION_PAGE_SIZE", "25")
	t.Setenv("BLAMEBOT_RETRY_BASE_DELAY", "250ms")
	t.Setenv("BLAMEBOT_GUARD_CAPACITY", "200")
	t.Setenv("BLAMEBOT_GUARD_RETAIN", "50")
	t.Setenv("BLAMEBOT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Discord.Token)
	assert.Equal(t, "123", cfg.Discord.AppID)
	assert.Equal(t, "/data/blames.db", cfg.Database.Path)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Pagination.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 200, cfg.Guard.Capacity)
	assert.Equal(t, 50, cfg.Guard.Retain)
	assert.NoError(t, cfg.RequireDiscord())
	assert.Equal(t, logging.LevelDebug, cfg.Logging().Level)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	content := `
discord:
  token: file-token
  app_id: "42"
pagination:
  page_size: 5
retry:
  max_retries: 5
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "42", cfg.Discord.AppID)
	assert.Equal(t, 5, cfg.Pagination.PageSize)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxRetries)
	assert.Equal(t, 2*time.Second, policy.Timeout)
	assert.Equal(t, time.Second, policy.BaseDelay)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BLAMEBOT_PAGINATION_PAGE_SIZE", "30")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:   DatabaseConfig{Path: "x.db"},
			Pagination: PaginationConfig{PageSize: 10},
			Retry:      RetryConfig{MaxRetries: 3, BaseDelay: time.Second, Timeout: 10 * time.Second},
			Guard:      GuardConfig{Deadline: 3 * time.Second, Capacity: 1000, Retain: 500},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero base delay", func(c *Config) { c.Retry.BaseDelay = 0 }, false},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, true},
		{"page size zero", func(c *Config) { c.Pagination.PageSize = 0 }, true},
		{"page size above limit", func(c *Config) { c.Pagination.PageSize = 26 }, true},
		{"no retries", func(c *Config) { c.Retry.MaxRetries = 0 }, true},
		{"negative base delay", func(c *Config) { c.Retry.BaseDelay = -time.Second }, true},
		{"zero timeout", func(c *Config) { c.Retry.Timeout = 0 }, true},
		{"zero deadline", func(c *Config) { c.Guard.Deadline = 0 }, true},
		{"retain equals capacity", func(c *Config) { c.Guard.Retain = 1000 }, true},
		{"retain above capacity", func(c *Config) { c.Guard.Retain = 2000 }, true},
		{"redis without addr", func(c *Config) { c.Redis = RedisConfig{Enabled: true} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicies(t *testing.T) {
	cfg := Config{
		Retry: RetryConfig{MaxRetries: 4, BaseDelay: 2 * time.Second, Timeout: 5 * time.Second},
		Guard: GuardConfig{Deadline: time.Second, Capacity: 100, Retain: 10},
		Log:   LogConfig{Level: "warn", Pretty: true},
	}

	assert.Equal(t, 4, cfg.RetryPolicy().MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryPolicy().BaseDelay)
	assert.Equal(t, 100, cfg.GuardPolicy().Capacity)
	assert.Equal(t, 10, cfg.GuardPolicy().Retain)

	lc := cfg.Logging()
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.True(t, lc.Pretty)
	assert.Equal(t, "blamebot", lc.Service)
}
