// Package config loads taskd settings from defaults, an optional config file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Environments accepted in Config.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all service settings.
type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`

	// MaxAgentSteps and AgentTimeoutMs are handed to the agent, which
	// currently runs a single step without a deadline.
	MaxAgentSteps  int `mapstructure:"max_agent_steps"`
	AgentTimeoutMs int `mapstructure:"agent_timeout_ms"`

	LogLevel string `mapstructure:"log_level"`

	// AuditDB is a SQLite path; empty keeps audit events in memory.
	AuditDB string `mapstructure:"audit_db"`

	ShutdownTimeoutMs int `mapstructure:"shutdown_timeout_ms"`
}

// envBindings maps config keys to the environment variables read for them.
// Earlier names win when several are set.
var envBindings = map[string][]string{
	"port":                {"PORT"},
	"host":                {"HOST"},
	"environment":         {"APP_ENV", "NODE_ENV"},
	"max_agent_steps":     {"MAX_AGENT_STEPS"},
	"agent_timeout_ms":    {"AGENT_TIMEOUT_MS"},
	"log_level":           {"LOG_LEVEL"},
	"audit_db":            {"AUDIT_DB"},
	"shutdown_timeout_ms": {"SHUTDOWN_TIMEOUT_MS"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("max_agent_steps", 10)
	v.SetDefault("agent_timeout_ms", 30000)
	v.SetDefault("log_level", "info")
	v.SetDefault("audit_db", "")
	v.SetDefault("shutdown_timeout_ms", 10000)
}

// Load reads configuration. path may be empty to skip the config file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in defaults without reading files or env.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = decode(v.AllSettings(), &cfg)
	return cfg
}

func decode(input map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("environment must be development, production or test, got %q", c.Environment))
	}
	if c.MaxAgentSteps < 1 {
		errs = append(errs, fmt.Errorf("max_agent_steps must be at least 1, got %d", c.MaxAgentSteps))
	}
	if c.AgentTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("agent_timeout_ms must not be negative, got %d", c.AgentTimeoutMs))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.ShutdownTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout_ms must not be negative, got %d", c.ShutdownTimeoutMs))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutMs) * time.Millisecond
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
