package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Protocols accepted by Config.Protocol.
const (
	ProtocolHTTP1 = "http1"
	ProtocolH2C   = "h2c"
)

// Config holds all application configuration. It is built once by Load and
// shared read-only afterwards.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Protocol        string        `mapstructure:"protocol"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// Kernel socket buffer sizes in bytes for the listener and the
	// connections it accepts. Zero keeps the system default.
	SocketRecvBuffer int `mapstructure:"socket_recv_buffer"`
	SocketSendBuffer int `mapstructure:"socket_send_buffer"`

	// MetricsAddr enables the prometheus admin listener when non-empty.
	MetricsAddr string `mapstructure:"metrics_addr"`

	CORS CorsPolicy `mapstructure:"cors"`
}

// CorsPolicy describes the cross-origin headers attached to every response.
type CorsPolicy struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
	AllowMethods []string `mapstructure:"allow_methods"`
	AllowHeaders []string `mapstructure:"allow_headers"`
	MaxAge       int      `mapstructure:"max_age"` // seconds
}

// Options controls where Load looks for values besides the environment.
type Options struct {
	// File is an optional config file; its extension selects the format.
	File string
	// DotEnv is an optional KEY=VALUE file whose entries fill unset env vars.
	DotEnv string
	// Overrides take precedence over every other source (command-line flags).
	Overrides map[string]any
}

var defaults = map[string]any{
	"host":               "0.0.0.0",
	"port":               8080,
	"env":                "development",
	"log_level":          "info",
	"log_format":         "",
	"protocol":           ProtocolHTTP1,
	"read_timeout":       10 * time.Second,
	"write_timeout":      10 * time.Second,
	"idle_timeout":       60 * time.Second,
	"shutdown_timeout":   10 * time.Second,
	"max_body_bytes":     int64(4 << 20),
	"socket_recv_buffer": 0,
	"socket_send_buffer": 0,
	"metrics_addr":       "",
	"cors.allow_origins": []string{"*"},
	"cors.allow_methods": []string{"*"},
	"cors.allow_headers": []string{"*"},
	"cors.max_age":       3600,
}

// Load resolves configuration with precedence overrides > env > file > defaults.
// Nested keys map to env vars with underscores, e.g. cors.max_age -> CORS_MAX_AGE.
func Load(opts Options) (*Config, error) {
	if opts.DotEnv != "" {
		if err := loadDotEnv(opts.DotEnv); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.File, err)
		}
	}

	for key, val := range opts.Overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
		if cfg.Env == "production" {
			cfg.LogFormat = "json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv copies entries from a dotenv file into unset environment
// variables. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read dotenv file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Protocol {
	case ProtocolHTTP1, ProtocolH2C:
	default:
		return fmt.Errorf("protocol must be %q or %q, got %q", ProtocolHTTP1, ProtocolH2C, c.Protocol)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.SocketRecvBuffer < 0 || c.SocketSendBuffer < 0 {
		return errors.New("socket buffer sizes must not be negative")
	}
	if c.CORS.MaxAge < 0 {
		return errors.New("cors.max_age must not be negative")
	}
	return nil
}

// Addr returns the bind address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
