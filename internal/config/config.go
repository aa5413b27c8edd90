// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatterm/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatterm configuration.
type Config struct {
	// APIKey is the static credential for the model endpoint.
	APIKey string `toml:"api_key"`
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `toml:"base_url"`
	// Model is the chat model identifier, e.g. "gpt-3.5-turbo".
	Model string `toml:"model"`
	// InitialPrompt becomes the System turn of every new session.
	InitialPrompt string `toml:"initial_prompt"`

	// MaxContextTokens bounds the context sent with each request (0 = unlimited).
	MaxContextTokens int `toml:"max_context_tokens"`
	// RequestTimeout is the longest wait for the next piece of a reply, as a
	// Go duration string.
	RequestTimeout string `toml:"request_timeout"`

	// SessionsDir holds session files.
	SessionsDir string `toml:"sessions_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// LogFile overrides the log path (empty = ~/.chatterm/chatterm.log).
	LogFile string `toml:"log_file"`
}

// Defaults.
const (
	DefaultBaseURL          = "https://api.openai.com/v1"
	DefaultModel            = "gpt-3.5-turbo"
	DefaultInitialPrompt    = "You are Assistant, a very enthusiastic chatbot. You are chatting with a user."
	DefaultMaxContextTokens = 2000
	DefaultRequestTimeout   = "60s"
	DefaultLogLevel         = "info"

	configDirName  = ".chatterm"
	configFileName = "config.toml"
	configFilePerm = 0600
	configDirPerm  = 0700
)

// Default returns a configuration with every default applied.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = configDirName
	}
	return &Config{
		BaseURL:          DefaultBaseURL,
		Model:            DefaultModel,
		InitialPrompt:    DefaultInitialPrompt,
		MaxContextTokens: DefaultMaxContextTokens,
		RequestTimeout:   DefaultRequestTimeout,
		SessionsDir:      filepath.Join(dir, "sessions"),
		LogLevel:         DefaultLogLevel,
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.chatterm.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// DefaultPath returns ~/.chatterm/config.toml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultLogPath returns ~/.chatterm/chatterm.log.
func DefaultLogPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "chatterm.log"
	}
	return filepath.Join(dir, "chatterm.log")
}

// ensureSecurePermissions tightens a config file to 0600 since it holds the
// API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != configFilePerm {
		if err := os.Chmod(path, configFilePerm); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// LoadFile reads the file at path over the defaults, without environment
// overrides or validation. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	path = util.ExpandHome(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Not fatal: the file may live on a filesystem without Unix modes.
	_ = ensureSecurePermissions(path)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// Load reads the file at path, applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically with 0600 permissions.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# chatterm configuration file")
	fmt.Fprintln(&buf, "# Generated by chatterm -r; edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(util.ExpandHome(path), buf.Bytes(), configFilePerm, configDirPerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetDefaults fills empty fields with defaults. MaxContextTokens is left alone
// because 0 is meaningful.
func (c *Config) SetDefaults() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.SessionsDir == "" {
		c.SessionsDir = d.SessionsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// ApplyEnvOverrides applies CHATTERM_* variables. OPENAI_API_KEY is honored
// when CHATTERM_API_KEY is unset.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("CHATTERM_API_KEY"); key != "" {
		c.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.APIKey = key
	}

	if model := os.Getenv("CHATTERM_MODEL"); model != "" {
		c.Model = model
	}

	if base := os.Getenv("CHATTERM_BASE_URL"); base != "" {
		c.BaseURL = base
	}
}

// HasCredential reports whether an API key is configured.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Timeout returns RequestTimeout as a duration, or the default if it does not
// parse.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultRequestTimeout)
	}
	return d
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks every field and returns ValidationErrors listing all problems.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, ValidationError{Field: "model", Message: "must not be empty"})
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.BaseURL),
		})
	}

	if c.MaxContextTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_context_tokens",
			Message: fmt.Sprintf("must be >= 0, got %d", c.MaxContextTokens),
		})
	}

	if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
		errs = append(errs, ValidationError{
			Field:   "request_timeout",
			Message: fmt.Sprintf("invalid duration '%s', e.g. \"60s\"", c.RequestTimeout),
		})
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.LogLevel),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the configuration with the API key masked.
func (c *Config) String() string {
	masked := *c
	if masked.APIKey != "" {
		masked.APIKey = "****"
	}
	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(&masked)
	return buf.String()
}
