// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the terminal-independent building blocks of the chat
screen.

# Core Components

Render (viewport.go) - Maps a transcript and a ViewportState to the visible
Frame. Each turn is word-wrapped to the terminal width behind a role marker
("You: ", "Bot: ", "Sys: "; failed replies use "Bot! "). Render is pure: it
never writes to the terminal and never mutates its inputs.

ViewportState (viewport.go) - Scroll offset counted from the bottom of the
transcript, clamped to [0, max(0, total-rows)]. Offset 0 is "pinned": new
content stays visible.

Editor (editor.go) - The single-line draft prompt with a rune cursor.

# Usage

	state := components.NewViewportState(rows, cols)
	state.Scroll(3, components.WrappedLineCount(turns, cols))
	frame := components.Render(turns, state)
	for _, line := range frame.Lines {
	    fmt.Println(line.Text())
	}
*/
package components
