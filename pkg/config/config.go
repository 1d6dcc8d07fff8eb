// Package config loads blamebot configuration from defaults, an optional
// YAML file and BLAMEBOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/blamebot/pkg/idempotency"
	"github.com/Sternrassler/blamebot/pkg/logging"
	"github.com/Sternrassler/blamebot/pkg/retry"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BLAMEBOT_DISCORD_TOKEN.
const EnvPrefix = "BLAMEBOT"

// MaxPageSize is the Discord limit on embed fields.
const MaxPageSize = 25

// ErrMissingCredentials is returned by RequireDiscord.
var ErrMissingCredentials = errors.New("discord token and application id are required")

// Config represents the complete configuration of the bot.
type Config struct {
	Discord    DiscordConfig    `mapstructure:"discord"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Guard      GuardConfig      `mapstructure:"guard"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
}

// DiscordConfig contains the bot credentials.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
	AppID string `mapstructure:"app_id"`
	// GuildID limits command registration to one guild; empty registers globally.
	GuildID string `mapstructure:"guild_id"`
}

// DatabaseConfig contains the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig contains the optional shared dedupe store settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PaginationConfig contains the paginated view settings.
type PaginationConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// RetryConfig contains the data-access retry policy.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// GuardConfig contains the interaction dedupe settings.
type GuardConfig struct {
	Deadline time.Duration `mapstructure:"deadline"`
	Capacity int           `mapstructure:"capacity"`
	Retain   int           `mapstructure:"retain"`
}

// LogConfig contains the logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// HTTPConfig contains the health and metrics listener settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration. path may be empty, in which case blamebot.yaml
// is looked up in the working directory and ./configs; a missing file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("blamebot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	retryDefaults := retry.DefaultConfig()
	guardDefaults := idempotency.DefaultConfig()

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.app_id", "")
	v.SetDefault("discord.guild_id", "")

	v.SetDefault("database.path", "blamebot.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("pagination.page_size", 10)

	v.SetDefault("retry.max_retries", retryDefaults.MaxRetries)
	v.SetDefault("retry.base_delay", retryDefaults.BaseDelay)
	v.SetDefault("retry.timeout", retryDefaults.Timeout)

	v.SetDefault("guard.deadline", guardDefaults.Deadline)
	v.SetDefault("guard.capacity", guardDefaults.Capacity)
	v.SetDefault("guard.retain", guardDefaults.Retain)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("http.addr", ":8080")
}

// Validate rejects values the bot cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Pagination.PageSize < 1 || c.Pagination.PageSize > MaxPageSize {
		return fmt.Errorf("pagination.page_size must be between 1 and %d, got %d", MaxPageSize, c.Pagination.PageSize)
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("retry.max_retries must be >= 1, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got %s", c.Retry.BaseDelay)
	}
	if c.Retry.Timeout <= 0 {
		return fmt.Errorf("retry.timeout must be positive, got %s", c.Retry.Timeout)
	}
	if c.Guard.Deadline <= 0 {
		return fmt.Errorf("guard.deadline must be positive, got %s", c.Guard.Deadline)
	}
	if c.Guard.Capacity < 2 {
		return fmt.Errorf("guard.capacity must be >= 2, got %d", c.Guard.Capacity)
	}
	if c.Guard.Retain < 1 || c.Guard.Retain >= c.Guard.Capacity {
		return fmt.Errorf("guard.retain must be in [1, capacity), got %d", c.Guard.Retain)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	return nil
}

// RequireDiscord checks the credentials needed to talk to Discord.
func (c *Config) RequireDiscord() error {
	if c.Discord.Token == "" || c.Discord.AppID == "" {
		return ErrMissingCredentials
	}
	return nil
}

// RetryPolicy returns the executor configuration.
func (c *Config) RetryPolicy() retry.Config {
	return retry.Config{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		Timeout:    c.Retry.Timeout,
	}
}

// GuardPolicy returns the idempotency guard configuration.
func (c *Config) GuardPolicy() idempotency.Config {
	return idempotency.Config{
		Deadline: c.Guard.Deadline,
		Capacity: c.Guard.Capacity,
		Retain:   c.Guard.Retain,
	}
}

// Logging returns the logger configuration writing to stderr.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	cfg.Output = os.Stderr
	return cfg
}
