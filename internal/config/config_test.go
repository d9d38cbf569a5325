// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and defaults

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"
  reset_token_ttl: "2h"

rate_limit:
  ip:
    limit: 5
    window: "5m"
  email:
    limit: 5
    window: "30m"
  chat:
    limit: 20
    window: "1m"
  block_on_email_limit: true
  fail_open: false

ai:
  base_url: "https://api.openai.com/v1"
  model: "gpt-4o-mini"
  max_tokens: 512
  temperature: 0.2
  timeout: "45s"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.ResetTokenTTL != 2*time.Hour {
		t.Errorf("Auth.ResetTokenTTL = %v, want 2h", cfg.Auth.ResetTokenTTL)
	}
	if cfg.RateLimit.IP.Limit != 5 || cfg.RateLimit.IP.Window != 5*time.Minute {
		t.Errorf("RateLimit.IP = %+v, want limit 5 window 5m", cfg.RateLimit.IP)
	}
	if cfg.RateLimit.Email.Window != 30*time.Minute {
		t.Errorf("RateLimit.Email.Window = %v, want 30m", cfg.RateLimit.Email.Window)
	}
	if !cfg.RateLimit.BlockOnEmailLimit {
		t.Error("RateLimit.BlockOnEmailLimit = false, want true")
	}
	if cfg.AI.Timeout != 45*time.Second {
		t.Errorf("AI.Timeout = %v, want 45s", cfg.AI.Timeout)
	}
	if cfg.AI.MaxTokens != 512 {
		t.Errorf("AI.MaxTokens = %d, want 512", cfg.AI.MaxTokens)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RateLimit.IP.Limit != DefaultIPLimit {
		t.Errorf("RateLimit.IP.Limit = %d, want default %d", cfg.RateLimit.IP.Limit, DefaultIPLimit)
	}
	if cfg.RateLimit.IP.Window != DefaultIPWindow {
		t.Errorf("RateLimit.IP.Window = %v, want default %v", cfg.RateLimit.IP.Window, DefaultIPWindow)
	}
	if cfg.RateLimit.Email.Window != DefaultEmailWindow {
		t.Errorf("RateLimit.Email.Window = %v, want default %v", cfg.RateLimit.Email.Window, DefaultEmailWindow)
	}
	if cfg.RateLimit.BlockOnEmailLimit {
		t.Error("BlockOnEmailLimit should default to false")
	}
	if cfg.RateLimit.FailOpen {
		t.Error("FailOpen should default to false")
	}
	if cfg.Auth.ResetTokenTTL != DefaultResetTokenTTL {
		t.Errorf("Auth.ResetTokenTTL = %v, want default %v", cfg.Auth.ResetTokenTTL, DefaultResetTokenTTL)
	}
	if cfg.AI.Timeout != DefaultAITimeout {
		t.Errorf("AI.Timeout = %v, want default %v", cfg.AI.Timeout, DefaultAITimeout)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "secret-from-env")

	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "${TEST_JWT_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "secret-from-env")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
`,
			wantErr: "http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: "localhost:8080"
auth:
  jwt_secret: "s"
`,
			wantErr: "database.path",
		},
		{
			name: "missing jwt secret",
			content: `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
`,
			wantErr: "jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
rate_limit:
  ip:
    limit: 5
    window: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "rate_limit.ip.window") {
		t.Errorf("Load() error = %v, want mention of rate_limit.ip.window", err)
	}
}

func TestLoad_NegativeLimit(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
rate_limit:
  ip:
    limit: -1
    window: "5m"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for negative limit, got nil")
	}
	if !strings.Contains(err.Error(), "rate_limit.ip.limit must not be negative") {
		t.Errorf("Load() error = %v, want mention of rate_limit.ip.limit must not be negative", err)
	}
}

func TestLoad_ZeroLimitTakesDefault(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
rate_limit:
  ip:
    limit: 0
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// An explicit zero is indistinguishable from an absent field and falls
	// back to the default rather than disabling the axis
	if cfg.RateLimit.IP.Limit != DefaultIPLimit {
		t.Errorf("RateLimit.IP.Limit = %d, want %d", cfg.RateLimit.IP.Limit, DefaultIPLimit)
	}
}

func TestLoad_ChatIPDisabledByDefault(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RateLimit.ChatIP.Limit != 0 {
		t.Errorf("RateLimit.ChatIP.Limit = %d, want 0 (disabled)", cfg.RateLimit.ChatIP.Limit)
	}

	enabledPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
rate_limit:
  chat_ip:
    limit: 60
`)

	cfg, err = Load(enabledPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RateLimit.ChatIP.Limit != 60 {
		t.Errorf("RateLimit.ChatIP.Limit = %d, want 60", cfg.RateLimit.ChatIP.Limit)
	}
	if cfg.RateLimit.ChatIP.Window != DefaultChatWindow {
		t.Errorf("RateLimit.ChatIP.Window = %v, want %v", cfg.RateLimit.ChatIP.Window, DefaultChatWindow)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}
