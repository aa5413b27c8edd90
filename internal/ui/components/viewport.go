// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jeranaias/chatterm/internal/model"
)

// =============================================================================
// VIEWPORT STATE
// =============================================================================

// ViewportState is the scroll position and size of the transcript area.
//
// Offset counts wrapped lines from the bottom: 0 keeps the latest content
// visible ("pinned"), and any positive value means the user scrolled up.
type ViewportState struct {
	Offset int
	Rows   int
	Cols   int
}

// NewViewportState returns a pinned state of the given size.
func NewViewportState(rows, cols int) ViewportState {
	return ViewportState{Rows: max(rows, 0), Cols: max(cols, 0)}
}

// MaxOffset is the largest valid offset for total wrapped lines.
func (v ViewportState) MaxOffset(total int) int {
	return max(0, total-v.Rows)
}

// Pinned reports whether the bottom of the transcript is visible.
func (v ViewportState) Pinned() bool {
	return v.Offset == 0
}

// Clamp keeps Offset within [0, MaxOffset(total)].
func (v *ViewportState) Clamp(total int) {
	v.Offset = min(max(v.Offset, 0), v.MaxOffset(total))
}

// Scroll moves the view by delta lines; positive scrolls up toward older turns.
func (v *ViewportState) Scroll(delta, total int) {
	v.Offset += delta
	v.Clamp(total)
}

// ScrollToTop shows the first line of the transcript.
func (v *ViewportState) ScrollToTop(total int) {
	v.Offset = v.MaxOffset(total)
}

// ScrollToBottom re-pins the view.
func (v *ViewportState) ScrollToBottom() {
	v.Offset = 0
}

// Resize applies a new size and re-clamps against total, recomputed by the
// caller for the new width.
func (v *ViewportState) Resize(rows, cols, total int) {
	v.Rows = max(rows, 0)
	v.Cols = max(cols, 0)
	v.Clamp(total)
}

// Follow adjusts for transcript growth from oldTotal to newTotal lines. A
// pinned view stays pinned; an unpinned view keeps showing the same lines.
func (v *ViewportState) Follow(oldTotal, newTotal int) {
	if v.Offset > 0 {
		v.Offset += newTotal - oldTotal
	}
	v.Clamp(newTotal)
}

// =============================================================================
// FRAME
// =============================================================================

// markerWidth is the width of every role marker, so continuation lines align.
const markerWidth = 5

// streamingPlaceholder is shown while an assistant turn has no content yet.
const streamingPlaceholder = "…"

// Line is one wrapped row of the transcript.
type Line struct {
	// Prefix is the role marker on a turn's first line, or indentation.
	Prefix string
	Body   string
	Role   model.Role
	Status model.Status
	// Separator marks the blank line between turns.
	Separator bool
}

// Text returns the full row.
func (l Line) Text() string {
	return l.Prefix + l.Body
}

// Frame is the visible part of the transcript, exactly Rows lines tall.
type Frame struct {
	Lines []Line
	// Total is the wrapped line count of the whole transcript.
	Total int
	// Offset is the clamped scroll offset the frame was cut at.
	Offset int
	// Above and Below count hidden lines for scroll indicators.
	Above int
	Below int
}

// Marker returns the role marker for a turn. Failed turns get a distinct one.
func Marker(t model.Turn) string {
	name := t.Role.DisplayName()
	if t.IsFailed() {
		return runewidth.FillRight(name+"!", markerWidth)
	}
	return runewidth.FillRight(name+":", markerWidth)
}

// =============================================================================
// RENDERING
// =============================================================================

// Render maps the transcript and viewport state to the visible frame. It is a
// pure function: the state is not modified, and the offset is clamped on a copy.
func Render(turns []model.Turn, state ViewportState) Frame {
	all := WrapTurns(turns, state.Cols)
	state.Clamp(len(all))

	frame := Frame{
		Total:  len(all),
		Offset: state.Offset,
		Lines:  make([]Line, 0, state.Rows),
	}
	if state.Rows == 0 {
		return frame
	}

	end := len(all) - state.Offset
	start := max(0, end-state.Rows)
	frame.Above = start
	frame.Below = state.Offset

	// Short transcripts sit at the bottom of the area, next to the input.
	for i := end - start; i < state.Rows; i++ {
		frame.Lines = append(frame.Lines, Line{})
	}
	frame.Lines = append(frame.Lines, all[start:end]...)
	return frame
}

// WrappedLineCount returns the number of rows the transcript occupies at cols.
func WrappedLineCount(turns []model.Turn, cols int) int {
	return len(WrapTurns(turns, cols))
}

// WrapTurns word-wraps every turn to cols, prefixing each with its marker and
// separating turns with one blank line.
func WrapTurns(turns []model.Turn, cols int) []Line {
	var lines []Line
	for i, t := range turns {
		if i > 0 {
			lines = append(lines, Line{Role: t.Role, Status: t.Status, Separator: true})
		}
		lines = append(lines, wrapTurn(t, cols)...)
	}
	return lines
}

func wrapTurn(t model.Turn, cols int) []Line {
	marker := Marker(t)
	indent := strings.Repeat(" ", markerWidth)
	width := cols - markerWidth
	if width < 1 {
		// Too narrow for a marker column.
		marker, indent, width = "", "", max(cols, 1)
	}

	content := t.Content
	if t.IsStreaming() && content == "" {
		content = streamingPlaceholder
	}

	var out []Line
	for i, row := range wrapText(content, width) {
		prefix := indent
		if i == 0 {
			prefix = marker
		}
		out = append(out, Line{Prefix: prefix, Body: row, Role: t.Role, Status: t.Status})
	}
	return out
}

// wrapText breaks text into rows of at most width cells. Words are kept whole
// where possible; longer words are split.
func wrapText(text string, width int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\t", "    ")

	var rows []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			rows = append(rows, "")
			continue
		}
		wrapped := wrap.String(wordwrap.String(para, width), width)
		for _, row := range strings.Split(wrapped, "\n") {
			rows = append(rows, strings.TrimRight(row, " "))
		}
	}
	return rows
}
