// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the chatterm TUI.

The Model is a Bubble Tea model and therefore the event loop of the
application. Update is the single place where terminal input, stream events,
and redraw ticks meet; nothing else touches the conversation.

# Event Sources

  - tea.KeyMsg edits the draft, submits it, cancels a reply, scrolls, or quits
  - tea.MouseMsg wheel events scroll three lines
  - tea.WindowSizeMsg re-wraps the transcript
  - StreamEventMsg carries the next event of the active reply; handling one
    re-arms the wait for the next
  - TickMsg redraws the elapsed time about 30 times a second while busy

# Layout

	transcript (scrollable, pinned to the latest line by default)
	[panel: /help or /sessions output, when shown]
	status bar: state | session file | model ~tokens
	> draft input
	help line or latest notice

# Usage

	m := chat.New(chat.Options{Controller: ctrl, Theme: styles.NewTheme()})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
*/
package chat
