// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chatterm/internal/session"
	"github.com/jeranaias/chatterm/internal/ui/components"
	"github.com/jeranaias/chatterm/internal/util"
)

// inputPrompt precedes the draft on the input line.
const inputPrompt = "> "

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	var sb strings.Builder
	m.renderTranscript(&sb)
	for _, line := range m.panel {
		sb.WriteString(m.theme.Panel.Render(util.FitWidth(line, m.width)))
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")
	sb.WriteString(m.renderInput())
	sb.WriteString("\n")
	sb.WriteString(m.renderHelpLine())
	return sb.String()
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript(sb *strings.Builder) {
	// When scrolled up, the bottom row is kept for the scroll indicator.
	state := m.viewport
	reserve := state.Offset > 0 && state.Rows > 1
	if reserve {
		state.Rows--
	}

	frame := components.Render(m.ctrl.Turns(), state)
	for _, line := range frame.Lines {
		if line.Prefix != "" || line.Body != "" {
			sb.WriteString(m.theme.MarkerStyle(line.Role, line.Status).Render(line.Prefix))
			sb.WriteString(m.theme.BodyStyle(line.Role, line.Status).Render(line.Body))
		}
		sb.WriteString("\n")
	}
	if !reserve {
		return
	}
	if frame.Below > 0 {
		hint := fmt.Sprintf("-- %d more lines below (C-End for latest) --", frame.Below)
		sb.WriteString(m.theme.ScrollHint.Render(util.TruncateWidth(hint, m.width)))
	}
	sb.WriteString("\n")
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar shows the state on the left, the session file in the
// middle, and the model with the context estimate on the right.
func (m Model) renderStatusBar() string {
	state := m.ctrl.State()
	var left string
	switch {
	case state.Busy():
		label := fmt.Sprintf("%s %s %s", m.spinner.View(), state, formatElapsed(m.ctrl.Elapsed()))
		left = m.theme.StateBusy.Render(label)
	case m.ctrl.LastError() != nil:
		left = m.theme.StateError.Render(session.StateError.String())
	default:
		left = m.theme.StateIdle.Render(state.String())
	}

	right := m.theme.StatusModel.Render(fmt.Sprintf(" %s  ~%d tokens ", m.ctrl.Model(), m.tokens))

	file := "(unsaved)"
	if p := m.ctrl.Path(); p != "" {
		file = filepath.Base(p)
	}
	middleWidth := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if middleWidth < 0 {
		return util.TruncateWidth(left, m.width)
	}
	middle := m.theme.StatusFile.Render(util.FitWidth(" "+file, middleWidth))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, middle, right)
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// =============================================================================
// INPUT AND HELP
// =============================================================================

// renderInput draws the draft with a block cursor.
func (m Model) renderInput() string {
	width := m.width - runewidth.StringWidth(inputPrompt)
	visible, col := m.editor.View(width)

	before := runewidth.Truncate(visible, col, "")
	rest := []rune(visible[len(before):])
	under, after := " ", ""
	if len(rest) > 0 {
		under, after = string(rest[0]), string(rest[1:])
	}

	return m.theme.InputPrompt.Render(inputPrompt) +
		m.theme.InputText.Render(before) +
		m.theme.Cursor.Render(under) +
		m.theme.InputText.Render(after)
}

// renderHelpLine shows the latest notice, or the key hints.
func (m Model) renderHelpLine() string {
	if m.notice != "" {
		style := m.theme.Notice
		if m.noticeIsError {
			style = m.theme.ErrorNotice
		}
		return style.Render(util.TruncateWidth(m.notice, m.width))
	}

	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.HelpKey.Render(h.Key)+" "+m.theme.HelpDesc.Render(h.Desc))
	}
	parts = append(parts, m.theme.HelpKey.Render("/help")+" "+m.theme.HelpDesc.Render("commands"))

	line := strings.Join(parts, m.theme.HelpDesc.Render(" • "))
	if lipgloss.Width(line) > m.width {
		return m.theme.HelpDesc.Render(util.TruncateWidth("Enter send • Esc cancel • C-q quit • /help", m.width))
	}
	return line
}
