package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LOTALLOC"

// Config holds runtime settings read from LOTALLOC_* environment variables
type Config struct {
	APIBaseURL string        `mapstructure:"api_base_url" validate:"omitempty,url"`
	APITimeout time.Duration `mapstructure:"api_timeout" validate:"gt=0"`

	RedisAddress      string        `mapstructure:"redis_address"`
	CandidateCacheTTL time.Duration `mapstructure:"candidate_cache_ttl" validate:"gte=0"`
	CommitLockTTL     time.Duration `mapstructure:"commit_lock_ttl" validate:"gt=0"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around the order service
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gt=0"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures" validate:"gt=0"`
	FailureRatio        float64       `mapstructure:"failure_ratio" validate:"gte=0,lte=1"`
	MinRequests         uint32        `mapstructure:"min_requests"`
}

// Load reads the named env files, or .env when present, then the environment.
// A named file that cannot be read is an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// UsesRemoteAPI reports whether an order service URL is configured
func (c *Config) UsesRemoteAPI() bool {
	return c.APIBaseURL != ""
}

// UsesRedis reports whether a Redis address is configured
func (c *Config) UsesRedis() bool {
	return c.RedisAddress != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", "")
	v.SetDefault("api_timeout", 10*time.Second)
	v.SetDefault("redis_address", "")
	v.SetDefault("candidate_cache_ttl", 30*time.Second)
	v.SetDefault("commit_lock_ttl", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.failure_ratio", 0.5)
	v.SetDefault("breaker.min_requests", 10)
}
