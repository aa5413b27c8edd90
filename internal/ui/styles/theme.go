// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chatterm/internal/model"
)

// Theme holds all the styled components for the chat screen.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserMarker      lipgloss.Style
	AssistantMarker lipgloss.Style
	SystemMarker    lipgloss.Style
	FailedMarker    lipgloss.Style
	Body            lipgloss.Style
	SystemBody      lipgloss.Style
	FailedBody      lipgloss.Style
	ScrollHint      lipgloss.Style

	// ==========================================================================
	// INPUT STYLES
	// ==========================================================================

	InputPrompt lipgloss.Style
	InputText   lipgloss.Style
	Cursor      lipgloss.Style

	// ==========================================================================
	// STATUS AND HELP STYLES
	// ==========================================================================

	StateIdle   lipgloss.Style
	StateBusy   lipgloss.Style
	StateError  lipgloss.Style
	StatusFile  lipgloss.Style
	StatusModel lipgloss.Style
	Spinner     lipgloss.Style
	HelpKey     lipgloss.Style
	HelpDesc    lipgloss.Style
	Notice      lipgloss.Style
	ErrorNotice lipgloss.Style
	Panel       lipgloss.Style
}

// ColorProfile returns Ascii when NO_COLOR is set, and termenv's detected
// profile otherwise.
func ColorProfile() termenv.Profile {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// NewTheme creates a theme for the current terminal and makes its color
// profile and background the lipgloss defaults, so adaptive colors resolve
// against what was detected here.
func NewTheme() *Theme {
	profile := ColorProfile()
	t := NewThemeWithProfile(profile, termenv.HasDarkBackground())
	lipgloss.SetColorProfile(profile)
	lipgloss.SetHasDarkBackground(t.IsDark)
	return t
}

// NewThemeWithProfile creates a theme without probing the terminal.
func NewThemeWithProfile(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Transcript
	t.UserMarker = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantMarker = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.SystemMarker = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.FailedMarker = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SystemBody = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.FailedBody = lipgloss.NewStyle().Foreground(Rose)
	t.ScrollHint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	// Input
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.InputText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Cursor = lipgloss.NewStyle().Reverse(true)

	// Status bar
	t.StateIdle = lipgloss.NewStyle().Bold(true).Foreground(TextInverse).Background(Emerald).Padding(0, 1)
	t.StateBusy = lipgloss.NewStyle().Bold(true).Foreground(TextInverse).Background(Amber).Padding(0, 1)
	t.StateError = lipgloss.NewStyle().Bold(true).Foreground(TextInverse).Background(Rose).Padding(0, 1)
	t.StatusFile = lipgloss.NewStyle().Foreground(TextPrimary).Background(SurfaceDim)
	t.StatusModel = lipgloss.NewStyle().Foreground(Purple).Background(SurfaceDim)
	t.Spinner = lipgloss.NewStyle().Foreground(Amber)

	// Help line
	t.HelpKey = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.HelpDesc = lipgloss.NewStyle().Foreground(TextMuted)
	t.Notice = lipgloss.NewStyle().Foreground(Emerald)
	t.ErrorNotice = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	// Command output panel
	t.Panel = lipgloss.NewStyle().Foreground(TextSecondary).Background(Overlay)
}

// MarkerStyle returns the style for a turn's role marker.
func (t *Theme) MarkerStyle(role model.Role, status model.Status) lipgloss.Style {
	if status == model.StatusFailed {
		return t.FailedMarker
	}
	switch role {
	case model.RoleUser:
		return t.UserMarker
	case model.RoleSystem:
		return t.SystemMarker
	default:
		return t.AssistantMarker
	}
}

// BodyStyle returns the style for a turn's text.
func (t *Theme) BodyStyle(role model.Role, status model.Status) lipgloss.Style {
	if status == model.StatusFailed {
		return t.FailedBody
	}
	if role == model.RoleSystem {
		return t.SystemBody
	}
	return t.Body
}
