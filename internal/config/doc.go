// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatterm.
//
// Configuration is a TOML file with sensible defaults, environment variable
// overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (--model, --log-level)
//   - Environment variables (CHATTERM_API_KEY, OPENAI_API_KEY, CHATTERM_MODEL,
//     CHATTERM_BASE_URL)
//   - ~/.chatterm/config.toml
//   - Built-in defaults
//
// # Usage
//
//	path, _ := config.DefaultPath()
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if !cfg.HasCredential() {
//	    // run setup
//	}
package config
