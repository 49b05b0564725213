package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the service. Values come from an
// optional YAML file, overridden by environment variables, overridden by
// CLI flags.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Rate    RateConfig    `yaml:"rate"`
	Invoker InvokerConfig `yaml:"invoker"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
	// APIKey enables the static-key development verifier when set.
	APIKey string `yaml:"api_key"`
}

// RedisConfig configures the durable store backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// ProbeInterval controls how often the failover store re-checks a
	// backend that went away.
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// SessionConfig bounds the lifetime of sessions and turns.
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	TurnTimeout time.Duration `yaml:"turn_timeout"`
	// MaxItineraryGap is the largest unexplained idle window allowed
	// between consecutive activities in a day.
	MaxItineraryGap time.Duration `yaml:"max_itinerary_gap"`
}

// RateConfig configures the per-client request gate.
type RateConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// InvokerConfig configures stage-call resilience.
type InvokerConfig struct {
	Attempts       int           `yaml:"attempts"`
	BaseBackoff    time.Duration `yaml:"base_backoff"`
	JitterFraction float64       `yaml:"jitter_fraction"`
	StageTimeout   time.Duration `yaml:"stage_timeout"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "8080",
			AllowedOrigins: "*",
		},
		Redis: RedisConfig{
			ProbeInterval: 30 * time.Second,
		},
		Session: SessionConfig{
			TTL:             7 * 24 * time.Hour,
			TurnTimeout:     2 * time.Minute,
			MaxItineraryGap: 4 * time.Hour,
		},
		Rate: RateConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Invoker: InvokerConfig{
			Attempts:       3,
			BaseBackoff:    500 * time.Millisecond,
			JitterFraction: 0.2,
			StageTimeout:   30 * time.Second,
		},
	}
}

// Load reads configuration from the given YAML file (if path is non-empty
// and the file exists) and then applies environment overrides on top of
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROAMKIT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ROAMKIT_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("ROAMKIT_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = v
	}
	if v := os.Getenv("ROAMKIT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		// Accepts both redis:// URLs and bare host:port pairs.
		if opt, err := redis.ParseURL(v); err == nil {
			cfg.Redis.Addr = opt.Addr
			if opt.Password != "" {
				cfg.Redis.Password = opt.Password
			}
			cfg.Redis.DB = opt.DB
		} else {
			cfg.Redis.Addr = v
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("ROAMKIT_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = d
		}
	}
	if v := os.Getenv("ROAMKIT_TURN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.TurnTimeout = d
		}
	}
}
