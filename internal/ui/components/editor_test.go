// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditor_InsertAndMove(t *testing.T) {
	e := NewEditor()
	e.InsertString("Hllo")
	e.MoveCursor(-3)
	e.Insert('e')

	assert.Equal(t, "Hello", e.Value())
	assert.Equal(t, 2, e.Cursor())

	e.MoveCursor(-10)
	assert.Equal(t, 0, e.Cursor())
	e.MoveCursor(10)
	assert.Equal(t, 5, e.Cursor())
}

func TestEditor_DeleteBackward(t *testing.T) {
	e := NewEditor()
	e.InsertString("héllo")
	e.DeleteBackward()
	assert.Equal(t, "héll", e.Value())

	e.MoveCursor(-2)
	e.DeleteBackward()
	assert.Equal(t, "hll", e.Value())
	assert.Equal(t, 1, e.Cursor())

	e.Home()
	e.DeleteBackward()
	assert.Equal(t, "hll", e.Value())
}

func TestEditor_DeleteForward(t *testing.T) {
	e := NewEditor()
	e.InsertString("abc")
	e.Home()
	e.DeleteForward()
	assert.Equal(t, "bc", e.Value())

	e.End()
	e.DeleteForward()
	assert.Equal(t, "bc", e.Value())
}

func TestEditor_Take(t *testing.T) {
	e := NewEditor()
	e.InsertString("Hello")

	assert.Equal(t, "Hello", e.Take())
	assert.Equal(t, "", e.Value())
	assert.Equal(t, 0, e.Cursor())
	assert.Equal(t, "", e.Take())
}

func TestEditor_NewlinesBecomeSpaces(t *testing.T) {
	e := NewEditor()
	e.InsertString("a\nb\tc")
	assert.Equal(t, "a b c", e.Value())
}

func TestEditor_View(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		moveBy  int
		width   int
		want    string
		wantCol int
	}{
		{"fits", "hello", 0, 10, "hello", 5},
		{"scrolls to keep cursor", "hello world", 0, 5, "orld", 4},
		{"cursor in middle", "hello world", -8, 5, "hello", 3},
		{"wide runes", "日本語", 0, 4, "語", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEditor()
			e.InsertString(tc.text)
			e.MoveCursor(tc.moveBy)
			got, col := e.View(tc.width)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantCol, col)
			assert.Less(t, col, tc.width+1)
		})
	}
}
