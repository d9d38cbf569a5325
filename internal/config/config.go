// ABOUTME: Configuration loading and parsing for tutor-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tutor-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	AI        AIConfig        `yaml:"ai"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	ResetTokenTTL    time.Duration `yaml:"-"`
	ResetTokenTTLRaw string        `yaml:"reset_token_ttl"`
}

// AxisConfig holds the limit and window for one rate-limit axis
type AxisConfig struct {
	Limit int `yaml:"limit"`

	Window    time.Duration `yaml:"-"`
	WindowRaw string        `yaml:"window"`
}

// RateLimitConfig holds admission gate policy.
// IP gates every guarded endpoint; Email gates password resets; Chat gates
// per-user chat traffic.
type RateLimitConfig struct {
	IP    AxisConfig `yaml:"ip"`
	Email AxisConfig `yaml:"email"`
	Chat  AxisConfig `yaml:"chat"`

	// ChatIP optionally gates chat traffic per client IP ahead of the
	// per-user axis. Disabled unless a limit is configured.
	ChatIP AxisConfig `yaml:"chat_ip"`

	// BlockOnEmailLimit actively rejects requests that exceed the email
	// axis. Off by default: exceeding the email limit is only recorded,
	// and the response stays success-shaped so registered emails cannot
	// be enumerated.
	BlockOnEmailLimit bool `yaml:"block_on_email_limit"`

	// FailOpen admits requests when the counter store is unreachable.
	// Off by default: an outage rejects, protecting against abuse.
	FailOpen bool `yaml:"fail_open"`
}

// AIConfig holds text-generation backend configuration
type AIConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when a field is absent from the config file.
const (
	DefaultIPLimit       = 5
	DefaultIPWindow      = 5 * time.Minute
	DefaultEmailLimit    = 5
	DefaultEmailWindow   = 30 * time.Minute
	DefaultChatLimit     = 30
	DefaultChatWindow    = time.Minute
	DefaultResetTokenTTL = time.Hour
	DefaultAITimeout     = 60 * time.Second
	DefaultMaxTokens     = 1024
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset policy knobs with deployment defaults.
func (c *Config) applyDefaults() {
	if c.RateLimit.IP.Limit == 0 {
		c.RateLimit.IP.Limit = DefaultIPLimit
	}
	if c.RateLimit.IP.Window == 0 {
		c.RateLimit.IP.Window = DefaultIPWindow
	}
	if c.RateLimit.Email.Limit == 0 {
		c.RateLimit.Email.Limit = DefaultEmailLimit
	}
	if c.RateLimit.Email.Window == 0 {
		c.RateLimit.Email.Window = DefaultEmailWindow
	}
	if c.RateLimit.Chat.Limit == 0 {
		c.RateLimit.Chat.Limit = DefaultChatLimit
	}
	if c.RateLimit.Chat.Window == 0 {
		c.RateLimit.Chat.Window = DefaultChatWindow
	}
	// chat_ip stays disabled unless a limit is configured
	if c.RateLimit.ChatIP.Limit > 0 && c.RateLimit.ChatIP.Window == 0 {
		c.RateLimit.ChatIP.Window = DefaultChatWindow
	}
	if c.Auth.ResetTokenTTL == 0 {
		c.Auth.ResetTokenTTL = DefaultResetTokenTTL
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = DefaultAITimeout
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = DefaultMaxTokens
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	for _, axis := range []struct {
		name string
		cfg  AxisConfig
	}{
		{"rate_limit.ip", c.RateLimit.IP},
		{"rate_limit.email", c.RateLimit.Email},
		{"rate_limit.chat", c.RateLimit.Chat},
		{"rate_limit.chat_ip", c.RateLimit.ChatIP},
	} {
		if axis.cfg.Limit < 0 {
			return fmt.Errorf("%s.limit must not be negative", axis.name)
		}
		if axis.cfg.Window < 0 {
			return fmt.Errorf("%s.window must not be negative", axis.name)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	durations := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.RateLimit.IP.WindowRaw, &cfg.RateLimit.IP.Window, "rate_limit.ip.window"},
		{cfg.RateLimit.Email.WindowRaw, &cfg.RateLimit.Email.Window, "rate_limit.email.window"},
		{cfg.RateLimit.Chat.WindowRaw, &cfg.RateLimit.Chat.Window, "rate_limit.chat.window"},
		{cfg.RateLimit.ChatIP.WindowRaw, &cfg.RateLimit.ChatIP.Window, "rate_limit.chat_ip.window"},
		{cfg.Auth.ResetTokenTTLRaw, &cfg.Auth.ResetTokenTTL, "auth.reset_token_ttl"},
		{cfg.AI.TimeoutRaw, &cfg.AI.Timeout, "ai.timeout"},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	return nil
}
