// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatterm/internal/cloud"
	ctxwindow "github.com/jeranaias/chatterm/internal/context"
	"github.com/jeranaias/chatterm/internal/model"
	"github.com/jeranaias/chatterm/internal/session"
	"github.com/jeranaias/chatterm/internal/storage"
	"github.com/jeranaias/chatterm/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeTransport struct {
	streams []*cloud.Stream
}

func (f *fakeTransport) OpenStream(_ context.Context, _ []model.Turn) (*cloud.Stream, error) {
	s := cloud.NewStream(nil, 0)
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeTransport) last() *cloud.Stream {
	return f.streams[len(f.streams)-1]
}

func newTestModel(t *testing.T, turns ...model.Turn) (Model, *session.Controller, *fakeTransport) {
	t.Helper()
	store, err := storage.NewSessionStore(t.TempDir())
	require.NoError(t, err)

	sess := model.NewSession("gpt-3.5-turbo", "")
	for _, turn := range turns {
		require.NoError(t, sess.Transcript.Append(turn))
	}

	ft := &fakeTransport{}
	ctrl, err := session.NewController(session.ControllerConfig{
		Session:   sess,
		Transport: ft,
		Store:     store,
		Model:     "gpt-3.5-turbo",
	})
	require.NoError(t, err)

	m := New(Options{Controller: ctrl, Theme: styles.NewThemeWithProfile(termenv.Ascii, true)})
	m = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})
	return m, ctrl, ft
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func enter(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	return updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// deliver runs the stream wait for the active request and feeds the result back.
func deliver(t *testing.T, m Model, req session.Request) (Model, tea.Cmd) {
	t.Helper()
	return updateCmd(t, m, waitForEvent(context.Background(), req)())
}

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// plainView renders the model with styling removed.
func plainView(m Model) string {
	return ansiSeq.ReplaceAllString(m.View(), "")
}

func filler(n int) []model.Turn {
	turns := make([]model.Turn, 0, n)
	for i := 0; i < n; i++ {
		turns = append(turns, model.NewTurn(model.RoleUser, fmt.Sprintf("message %d", i)))
	}
	return turns
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

func TestModel_SubmitAndStream(t *testing.T) {
	m, ctrl, ft := newTestModel(t)

	m = typeText(t, m, "Hello")
	m, cmd := enter(t, m)
	require.NotNil(t, cmd)
	assert.Equal(t, "", m.editor.Value())
	assert.Equal(t, session.StateAwaitingFirstChunk, ctrl.State())

	req := session.Request{Seq: 1, Stream: ft.last()}
	ft.last().SendChunk("Hi")
	ft.last().SendChunk(" there!")
	ft.last().SendEnd()

	m, cmd = deliver(t, m, req)
	assert.NotNil(t, cmd, "chunk re-arms the wait")
	m, _ = deliver(t, m, req)
	m, cmd = deliver(t, m, req)
	assert.Nil(t, cmd)

	assert.Equal(t, session.StateIdle, ctrl.State())
	turns := ctrl.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "Hi there!", turns[1].Content)

	view := plainView(m)
	assert.Contains(t, view, "You: Hello")
	assert.Contains(t, view, "Bot: Hi there!")
	assert.Contains(t, view, "idle")
}

func TestModel_BusySubmitKeepsDraft(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	m = typeText(t, m, "first")
	m, _ = enter(t, m)
	m = typeText(t, m, "second")
	m, cmd := enter(t, m)

	assert.Nil(t, cmd)
	assert.Equal(t, "second", m.editor.Value())
	assert.True(t, m.noticeIsError)
	assert.Contains(t, m.notice, "busy")
	assert.Len(t, ctrl.Turns(), 2)
}

func TestModel_EscCancels(t *testing.T) {
	m, ctrl, ft := newTestModel(t)

	m = typeText(t, m, "Hello")
	m, _ = enter(t, m)
	req := session.Request{Seq: 1, Stream: ft.last()}
	ft.last().SendChunk("Par")
	m, _ = deliver(t, m, req)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, session.StateIdle, ctrl.State())
	last := ctrl.Turns()[1]
	assert.Equal(t, model.StatusFailed, last.Status)
	assert.Equal(t, "Par "+session.CancelledMarker, last.Content)
	assert.Contains(t, plainView(m), "Bot! Par [cancelled]")

	// The abandoned wait resolves to a stale event.
	m, cmd := deliver(t, m, req)
	assert.Nil(t, cmd)
	assert.Equal(t, last, ctrl.Turns()[1])
}

func TestModel_TransportErrorShowsSummary(t *testing.T) {
	m, ctrl, ft := newTestModel(t)

	m = typeText(t, m, "Hello")
	m, _ = enter(t, m)
	ft.last().SendError(cloud.NewTransportError(cloud.ErrTimeout, nil))
	m, _ = deliver(t, m, session.Request{Seq: 1, Stream: ft.last()})

	assert.Equal(t, session.StateIdle, ctrl.State())
	assert.True(t, m.noticeIsError)
	assert.Contains(t, m.notice, "timed out")
	assert.Contains(t, plainView(m), "Bot! error: request timed out")
}

func TestModel_EscDismissesError(t *testing.T) {
	m, ctrl, ft := newTestModel(t)

	m = typeText(t, m, "Hello")
	m, _ = enter(t, m)
	ft.last().SendError(cloud.NewTransportError(cloud.ErrTimeout, nil))
	m, _ = deliver(t, m, session.Request{Seq: 1, Stream: ft.last()})
	require.Error(t, ctrl.LastError())
	assert.Contains(t, plainView(m), " error ")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NoError(t, ctrl.LastError())
	assert.Empty(t, m.notice)
	view := plainView(m)
	assert.Contains(t, view, " idle ")
	assert.Contains(t, view, "Bot! error: request timed out", "the failed turn stays in the transcript")
}

// =============================================================================
// EDITING
// =============================================================================

func TestModel_EditingKeys(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = typeText(t, m, "helo")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = typeText(t, m, "l")
	assert.Equal(t, "hello", m.editor.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDelete})
	assert.Equal(t, "ello", m.editor.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, "ell ", m.editor.Value())

	assert.Contains(t, plainView(m), "> ell")
}

// =============================================================================
// SCROLLING
// =============================================================================

func TestModel_ScrollKeysAndMouse(t *testing.T) {
	m, _, _ := newTestModel(t, filler(20)...)
	require.Equal(t, 9, m.viewport.Rows)
	require.Equal(t, 39, m.total)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.viewport.Offset)

	m = update(t, m, tea.MouseMsg{Type: tea.MouseWheelUp})
	assert.Equal(t, 4, m.viewport.Offset)
	assert.Contains(t, plainView(m), "more lines below")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 12, m.viewport.Offset)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlHome})
	assert.Equal(t, 30, m.viewport.Offset)
	assert.Contains(t, plainView(m), "You: message 0")

	m = update(t, m, tea.MouseMsg{Type: tea.MouseWheelDown})
	assert.Equal(t, 27, m.viewport.Offset)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlEnd})
	assert.True(t, m.viewport.Pinned())
}

func TestModel_ScrolledViewStaysPutWhileStreaming(t *testing.T) {
	m, ctrl, ft := newTestModel(t, filler(20)...)

	m = typeText(t, m, "question")
	m, _ = enter(t, m)
	req := session.Request{Seq: 1, Stream: ft.last()}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	before := m.viewport.Offset
	require.Greater(t, before, 0)

	ft.last().SendChunk(strings.Repeat("word ", 30))
	m, _ = deliver(t, m, req)
	assert.Greater(t, m.viewport.Offset, before)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlEnd})
	ft.last().SendChunk(" more")
	ft.last().SendEnd()
	m, _ = deliver(t, m, req)
	m, _ = deliver(t, m, req)
	assert.True(t, m.viewport.Pinned())
	assert.Equal(t, session.StateIdle, ctrl.State())
}

func TestModel_ScrollHintKeepsLastVisibleLine(t *testing.T) {
	m, _, _ := newTestModel(t, filler(20)...)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 2, m.viewport.Offset)

	view := plainView(m)
	assert.Contains(t, view, "You: message 18")
	assert.NotContains(t, view, "You: message 19")
	assert.Contains(t, view, "-- 2 more lines below")
	assert.Len(t, strings.Split(view, "\n"), 12)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlEnd})
	view = plainView(m)
	assert.Contains(t, view, "You: message 19")
	assert.NotContains(t, view, "more lines below")
	assert.Len(t, strings.Split(view, "\n"), 12)
}

func TestModel_ResizeReclamps(t *testing.T) {
	m, _, _ := newTestModel(t, filler(20)...)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlHome})

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	assert.Equal(t, 37, m.viewport.Rows)
	assert.Equal(t, 2, m.viewport.Offset)
	assert.Len(t, strings.Split(plainView(m), "\n"), 40)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestModel_SlashCommands(t *testing.T) {
	m, ctrl, _ := newTestModel(t, model.NewTurn(model.RoleUser, "old"))

	t.Run("help opens panel", func(t *testing.T) {
		m = typeText(t, m, "/help")
		m, _ = enter(t, m)
		assert.Equal(t, commandHelp, m.panel)
		assert.Equal(t, 12-chromeRows-len(commandHelp), m.viewport.Rows)
		assert.Contains(t, plainView(m), "/load <path>")

		m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.Nil(t, m.panel)
	})

	t.Run("unknown command", func(t *testing.T) {
		m = typeText(t, m, "/bogus")
		m, _ = enter(t, m)
		assert.True(t, m.noticeIsError)
		assert.Contains(t, m.notice, "unknown command /bogus")
	})

	t.Run("save", func(t *testing.T) {
		m = typeText(t, m, "/save")
		m, _ = enter(t, m)
		assert.False(t, m.noticeIsError)
		assert.NotEmpty(t, ctrl.Path())
		assert.FileExists(t, ctrl.Path())
	})

	t.Run("new", func(t *testing.T) {
		m = typeText(t, m, "/new")
		m, _ = enter(t, m)
		assert.Empty(t, ctrl.Turns())
		assert.Empty(t, ctrl.Path())
		assert.Equal(t, 0, m.total)
	})

	t.Run("load missing", func(t *testing.T) {
		m = typeText(t, m, "/load nope.json")
		m, _ = enter(t, m)
		assert.True(t, m.noticeIsError)
		assert.Contains(t, m.notice, "not found")
	})

	t.Run("sessions", func(t *testing.T) {
		m = typeText(t, m, "/sessions")
		m, _ = enter(t, m)
		require.Len(t, m.panel, 1)
		assert.Contains(t, m.panel[0], "1 turns")
	})

	t.Run("ctrl+s", func(t *testing.T) {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
		assert.False(t, m.noticeIsError)
		assert.Contains(t, m.notice, "saved to")
	})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args []string
	}{
		{"/help", "help", []string{}},
		{"  /LOAD  a b ", "load", []string{"a", "b"}},
		{"/", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			name, args := parseCommand(tc.in)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.args, args)
		})
	}
	assert.True(t, isCommand(" /x"))
	assert.False(t, isCommand("x /y"))
}

// =============================================================================
// QUIT
// =============================================================================

func TestModel_QuitSaves(t *testing.T) {
	m, ctrl, ft := newTestModel(t)

	m = typeText(t, m, "Hello")
	m, _ = enter(t, m)
	ft.last().SendChunk("partial")
	m, _ = deliver(t, m, session.Request{Seq: 1, Stream: ft.last()})

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "", m.View())
	assert.NoError(t, m.Err())

	assert.FileExists(t, ctrl.Path())
	assert.Equal(t, model.StatusFailed, ctrl.Turns()[1].Status)
}

func TestModel_CtrlCQuitsWhenIdle(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// =============================================================================
// STATUS BAR
// =============================================================================

// countingCounter counts words and records how often it runs.
type countingCounter struct {
	calls *int
}

func (c countingCounter) Count(text string) int {
	*c.calls++
	return len(strings.Fields(text))
}

func TestModel_TokenEstimateRefreshedOnTranscriptChange(t *testing.T) {
	store, err := storage.NewSessionStore(t.TempDir())
	require.NoError(t, err)

	calls := 0
	ft := &fakeTransport{}
	ctrl, err := session.NewController(session.ControllerConfig{
		Transport:     ft,
		Store:         store,
		Model:         "gpt-3.5-turbo",
		InitialPrompt: "Be brief.",
		Truncator: ctxwindow.NewTruncator(&ctxwindow.TruncatorConfig{
			Counter: countingCounter{calls: &calls},
		}),
	})
	require.NoError(t, err)

	m := New(Options{Controller: ctrl, Theme: styles.NewThemeWithProfile(termenv.Ascii, true)})
	m = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})

	m = typeText(t, m, "Hello there")
	m, _ = enter(t, m)
	req := session.Request{Seq: 1, Stream: ft.last()}
	ft.last().SendChunk("Hi")
	m, _ = deliver(t, m, req)

	// Redraws while streaming reuse the cached estimate.
	before := calls
	for i := 0; i < 10; i++ {
		m = update(t, m, TickMsg{})
		_ = m.View()
	}
	assert.Equal(t, before, calls)

	ft.last().SendEnd()
	m, _ = deliver(t, m, req)
	assert.Greater(t, calls, before)

	want := ctrl.ContextTokens()
	assert.Equal(t, want, m.tokens)
	assert.Contains(t, plainView(m), fmt.Sprintf("~%d tokens", want))
}
