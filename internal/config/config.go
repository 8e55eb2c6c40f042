// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults — merged in priority order.
// Go convention: configuration is loaded into structs, not accessed as raw key-value pairs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Datadog   DatadogConfig   `mapstructure:"datadog"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatadogConfig configures the log export adapter. The API key is the only
// required setting anywhere in the config — without it the service refuses
// to start rather than silently running with log export disabled.
type DatadogConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Site is the Datadog site domain, e.g. "datadoghq.com" or "datadoghq.eu".
	// It selects the regional intake endpoint.
	Site    string `mapstructure:"site"`
	Service string `mapstructure:"service"`
	Env     string `mapstructure:"env"`
	Source  string `mapstructure:"source"`
	// Tags are extra ddtags in "key:value" form, attached to every exported record.
	Tags []string `mapstructure:"tags"`
	// MinLevel is the minimum severity forwarded to Datadog. Console logging
	// has its own level (log.level); the two are independent.
	MinLevel      string        `mapstructure:"min_level"`
	QueueSize     int           `mapstructure:"queue_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type StorageConfig struct {
	// DatabasePath is optional. When set, the server opens the database and
	// serves GET /message from the seeded messages table; when empty the
	// service runs without any storage at all.
	DatabasePath string `mapstructure:"database_path"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// In Go, functions return errors as the last return value — callers must check them.
// This pattern replaces try/catch: if err != nil { handle it }.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults — these apply when neither file nor env provides a value
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	// The empty defaults below matter: Viper's Unmarshal only sees keys it
	// already knows about (defaults, file, explicit binds). Without them,
	// env-only values like GREETING_DATADOG_API_KEY would be silently dropped.
	v.SetDefault("datadog.api_key", "")
	v.SetDefault("datadog.site", "datadoghq.com")
	v.SetDefault("datadog.service", "greeting-service")
	v.SetDefault("datadog.env", "development")
	v.SetDefault("datadog.source", "go")
	v.SetDefault("datadog.min_level", "info")
	v.SetDefault("datadog.queue_size", 1024)
	v.SetDefault("datadog.batch_size", 50)
	v.SetDefault("datadog.flush_interval", 2*time.Second)
	v.SetDefault("storage.database_path", "")
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("log.level", "info")

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file. Only "not found" is ignorable (defaults + env are
	// enough); a file that exists but fails to parse must surface, or the
	// service would silently run on defaults.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// GREETING_ prefix + nested keys: GREETING_DATADOG_API_KEY=xxx → datadog.api_key=xxx
	v.SetEnvPrefix("GREETING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal into our Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the invariants Load can't express through defaults.
// The Datadog API key is a secret, so it has no sane default: a missing key
// must stop the process before it binds a socket.
func (c *Config) Validate() error {
	if c.Datadog.APIKey == "" {
		return errors.New("datadog.api_key is required (set GREETING_DATADOG_API_KEY)")
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8000".
// This is a method on ServerConfig — Go attaches methods to types via receiver syntax.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
