// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatterm/internal/cloud"
	"github.com/jeranaias/chatterm/internal/session"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamEventMsg delivers one event from the active request's stream.
type StreamEventMsg struct {
	Request session.Request
	Event   cloud.Event
}

// TickMsg redraws the elapsed time while a request is active.
type TickMsg struct {
	Time time.Time
}

// tickInterval caps redraws at about 30fps.
const tickInterval = 33 * time.Millisecond

// waitForEvent blocks off the loop until the next stream event. Exactly one
// wait is outstanding per request, so events arrive in order.
func waitForEvent(ctx context.Context, req session.Request) tea.Cmd {
	return func() tea.Msg {
		return StreamEventMsg{Request: req, Event: req.Stream.Next(ctx)}
	}
}

// tickCmd schedules the next redraw tick.
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
