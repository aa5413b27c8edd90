// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the chatterm command line.
//
// The root command takes no subcommands. It loads the configuration, runs the
// setup prompts when no API key is available (or when -r is given), opens the
// session named by -s, and starts the chat screen.
//
//	chatterm                      start a new session
//	chatterm -s notes.json        continue a saved session
//	chatterm -r                   re-enter the API key and defaults first
//	chatterm -r -s notes.json     both, reconfiguring first
//
// Execute returns the process exit code: 0 for a normal exit (including -h),
// 1 for any startup failure or a fatal error during the session.
package cli
