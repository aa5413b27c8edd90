// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// INPUT EDITOR
// =============================================================================

// Editor holds the single-line draft prompt and its cursor.
//
// The cursor is a rune index in [0, len(text)]. All operations work on runes,
// so multi-byte characters are never split.
type Editor struct {
	text   []rune
	cursor int
}

// NewEditor creates an empty editor.
func NewEditor() *Editor {
	return &Editor{}
}

// Insert adds r at the cursor and advances it. Newlines are stored as spaces
// because the draft is a single line.
func (e *Editor) Insert(r rune) {
	if r == '\n' || r == '\r' || r == '\t' {
		r = ' '
	}
	e.text = append(e.text, 0)
	copy(e.text[e.cursor+1:], e.text[e.cursor:])
	e.text[e.cursor] = r
	e.cursor++
}

// InsertString inserts every rune of s, as when text is pasted.
func (e *Editor) InsertString(s string) {
	for _, r := range s {
		e.Insert(r)
	}
}

// DeleteBackward removes the rune before the cursor.
func (e *Editor) DeleteBackward() {
	if e.cursor == 0 {
		return
	}
	e.text = append(e.text[:e.cursor-1], e.text[e.cursor:]...)
	e.cursor--
}

// DeleteForward removes the rune under the cursor.
func (e *Editor) DeleteForward() {
	if e.cursor >= len(e.text) {
		return
	}
	e.text = append(e.text[:e.cursor], e.text[e.cursor+1:]...)
}

// MoveCursor moves the cursor by delta runes, clamped to the draft.
func (e *Editor) MoveCursor(delta int) {
	e.cursor = min(max(e.cursor+delta, 0), len(e.text))
}

// Home moves the cursor to the start of the draft.
func (e *Editor) Home() {
	e.cursor = 0
}

// End moves the cursor past the last rune.
func (e *Editor) End() {
	e.cursor = len(e.text)
}

// Take returns the draft and clears the editor.
func (e *Editor) Take() string {
	s := string(e.text)
	e.text = e.text[:0]
	e.cursor = 0
	return s
}

// Value returns the draft without clearing it.
func (e *Editor) Value() string {
	return string(e.text)
}

// Cursor returns the cursor position in runes.
func (e *Editor) Cursor() int {
	return e.cursor
}

// Len returns the draft length in runes.
func (e *Editor) Len() int {
	return len(e.text)
}

// View returns the part of the draft that fits in width cells, keeping the
// cursor visible, and the cursor's cell column within that part.
func (e *Editor) View(width int) (string, int) {
	if width <= 0 {
		return "", 0
	}

	// Slide the window start forward until the cursor fits; one cell is kept
	// free for the cursor itself when it sits at the end.
	start := 0
	for start < e.cursor && runewidth.StringWidth(string(e.text[start:e.cursor])) >= width {
		start++
	}

	col := runewidth.StringWidth(string(e.text[start:e.cursor]))
	visible := runewidth.Truncate(string(e.text[start:]), width, "")
	return visible, col
}
