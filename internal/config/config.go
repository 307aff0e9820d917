// Package config loads the daemon configuration from YAML. Missing
// files fall back to built-in defaults; YAML overwrites only the
// fields it names.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clawgate/internal/alert"
)

// ConfirmConfig controls the high-risk confirmation gate.
type ConfirmConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

// GatewayConfig points at the upstream model gateway.
type GatewayConfig struct {
	PrimaryURL     string   `yaml:"primary_url"`
	BackupURLs     []string `yaml:"backup_urls"`
	BearerToken    string   `yaml:"bearer_token"`
	AgentID        string   `yaml:"agent_id"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// MaskingConfig controls credential redaction of outbound text.
type MaskingConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

// APIConfig configures the jobs/status HTTP listener.
type APIConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

// ExecutorConfig configures the asynchronous job executor.
type ExecutorConfig struct {
	CodexBin           string   `yaml:"codex_bin"`
	GeminiBin          string   `yaml:"gemini_bin"`
	TimeoutSeconds     int      `yaml:"timeout_seconds"`
	MaxTaskChars       int      `yaml:"max_task_chars"`
	AllowGlobalWorkdir bool     `yaml:"allow_global_workdir"`
	AllowedWorkdirs    []string `yaml:"allowed_workdirs"`
}

// PathsConfig holds runtime file locations. Empty entries are derived
// from DataDir.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	DBPath       string `yaml:"db_path"`
	AuditPath    string `yaml:"audit_path"`
	DenylistPath string `yaml:"denylist_path"`
}

// Config holds all daemon parameters.
type Config struct {
	PermissionLevel string `yaml:"permission_level"`

	// Allow lists matched against the unix account driving dispatch
	// and its groups. All empty leaves the gate open.
	AdminUsers         []string `yaml:"admin_users"`
	WhitelistUsers     []string `yaml:"whitelist_users"`
	WhitelistGroups    []string `yaml:"whitelist_groups"`
	SilentUnauthorized bool     `yaml:"silent_unauthorized"`
	SelfName           string   `yaml:"self_name"`

	MaxParallelTurns   int `yaml:"max_parallel_turns"`
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`

	Confirm  ConfirmConfig       `yaml:"confirm"`
	Gateway  GatewayConfig       `yaml:"gateway"`
	Masking  MaskingConfig       `yaml:"masking"`
	API      APIConfig           `yaml:"api"`
	Executor ExecutorConfig      `yaml:"executor"`
	Alerts   []alert.AlertConfig `yaml:"alerts"`
	Paths    PathsConfig         `yaml:"paths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PermissionLevel:    "L2",
		SilentUnauthorized: true,
		SelfName:           "clawgate",
		MaxParallelTurns:   1,
		ToolTimeoutSeconds: 45,
		Confirm: ConfirmConfig{
			Enabled:    true,
			TTLSeconds: 300,
		},
		Gateway: GatewayConfig{
			PrimaryURL:     "http://127.0.0.1:18789",
			AgentID:        "clawgate",
			TimeoutSeconds: 90,
		},
		Masking: MaskingConfig{
			Enabled: true,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 18889,
		},
		Executor: ExecutorConfig{
			CodexBin:           "codex",
			GeminiBin:          "gemini",
			TimeoutSeconds:     180,
			MaxTaskChars:       8000,
			AllowGlobalWorkdir: true,
		},
	}
}

// DefaultDir returns the default data directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "clawgate")
	}
	return filepath.Join(home, ".clawgate")
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.clawgate/config.yaml. Missing file returns defaults. Invalid YAML
// returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps values into their legal ranges and derives
// dependent paths.
func (c *Config) normalize() {
	if c.SelfName == "" {
		c.SelfName = "clawgate"
	}
	if c.MaxParallelTurns < 1 {
		c.MaxParallelTurns = 1
	}
	c.ToolTimeoutSeconds = atLeastInt(c.ToolTimeoutSeconds, 5)
	c.Confirm.TTLSeconds = atLeastInt(c.Confirm.TTLSeconds, 30)
	c.Gateway.TimeoutSeconds = atLeastInt(c.Gateway.TimeoutSeconds, 5)
	c.Executor.TimeoutSeconds = atLeastInt(c.Executor.TimeoutSeconds, 10)
	c.Executor.MaxTaskChars = atLeastInt(c.Executor.MaxTaskChars, 256)

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = DefaultDir()
	}
	if c.Paths.DBPath == "" {
		c.Paths.DBPath = filepath.Join(c.Paths.DataDir, "jobs.db")
	}
	if c.Paths.AuditPath == "" {
		c.Paths.AuditPath = filepath.Join(c.Paths.DataDir, "audit.jsonl")
	}
	if c.Paths.DenylistPath == "" {
		c.Paths.DenylistPath = filepath.Join(c.Paths.DataDir, "denylist.yaml")
	}
}

// EnsureRuntimePaths creates the directories the daemon writes into.
func (c *Config) EnsureRuntimePaths() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		filepath.Dir(c.Paths.DBPath),
		filepath.Dir(c.Paths.AuditPath),
	} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create runtime directory %q: %w", dir, err)
		}
	}
	return nil
}

func atLeastInt(v, min int) int {
	if v < min {
		return min
	}
	return v
}

// DefaultYAML returns a commented YAML string for init-config.
func DefaultYAML() string {
	return `# clawgate configuration
# Generated by: clawgate init-config

# Global permission level granted to authorized callers.
# L0 = no access, L1 = read-only, L2 = safe execution,
# L3 = host mutation, L4 = root operations.
permission_level: L2

# Caller allow lists, matched against the unix account that runs the
# dispatching surface and its group names. With all three lists empty
# every local caller passes; any non-empty list closes the gate for
# accounts not on one.
admin_users: []
whitelist_users: []
whitelist_groups: []

# Refuse unauthorized callers without naming the reason.
silent_unauthorized: true

# Interactive turn serialization. Values above 1 are clamped to 1.
max_parallel_turns: 1

# Per-tool handler deadline in seconds (minimum 5).
tool_timeout_seconds: 45

confirm:
  # Gate high-risk actions behind a confirmation token.
  enabled: true
  # Confirmation and approval window in seconds (minimum 30).
  ttl_seconds: 300

gateway:
  primary_url: http://127.0.0.1:18789
  backup_urls: []
  bearer_token: ""
  agent_id: clawgate
  # Request deadline in seconds (minimum 5).
  timeout_seconds: 90

masking:
  # Redact credential-shaped substrings from outbound text. When
  # disabled, audit summaries still drop well-known secret arg keys.
  enabled: true
  # Extra case-insensitive regex patterns, applied before built-ins.
  patterns: []

api:
  host: 127.0.0.1
  port: 18889
  # Bearer token required on every request. Empty disables the API
  # with 503 auth_not_configured.
  token: ""

executor:
  codex_bin: codex
  gemini_bin: gemini
  # Job deadline in seconds (minimum 10).
  timeout_seconds: 180
  max_task_chars: 8000
  # When false, job working directories must sit under allowed_workdirs.
  allow_global_workdir: true
  allowed_workdirs: []

# Webhook alert destinations. Formats: generic, slack, pagerduty.
# Events: blocked, confirm_required, job_failed, error.
alerts: []
#  - url: https://hooks.slack.com/services/T000/B000/XXXX
#    format: slack
#    events: [blocked, job_failed]

paths:
  # Empty entries derive from data_dir.
  data_dir: ""
  db_path: ""
  audit_path: ""
  denylist_path: ""
`
}
