// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chatterm TUI.
//
// Colors are Lip Gloss AdaptiveColors so they read on light and dark
// terminals. NewTheme detects the color profile with termenv and falls back
// to plain text when NO_COLOR is set.
//
// # Usage
//
//	theme := styles.NewTheme()
//	marker := theme.MarkerStyle(turn.Role, turn.Status).Render("You: ")
package styles
