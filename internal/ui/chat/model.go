// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/cloud"
	"github.com/jeranaias/chatterm/internal/model"
	"github.com/jeranaias/chatterm/internal/session"
	"github.com/jeranaias/chatterm/internal/ui/components"
	"github.com/jeranaias/chatterm/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// chromeRows is the number of rows below the transcript: status bar, input
// line, help line.
const chromeRows = 3

// mouseScrollLines is how far one wheel notch scrolls.
const mouseScrollLines = 3

// Model is the Bubble Tea model of the chat screen. It owns the draft and the
// scroll position; the conversation itself lives in the controller.
type Model struct {
	ctrl  *session.Controller
	theme *styles.Theme
	keys  KeyMap
	ctx   context.Context

	editor   *components.Editor
	viewport components.ViewportState
	spinner  spinner.Model

	width  int
	height int
	// total is the wrapped line count of the transcript at the current width.
	total int
	// tokens is the context estimate shown in the status bar, refreshed when
	// the transcript changes.
	tokens int

	// panel is transient text (help, session list) shown above the status bar.
	panel []string

	notice        string
	noticeIsError bool

	// err is a fatal contract violation; the program exits non-zero.
	err      error
	quitting bool
}

// Options configures New.
type Options struct {
	Controller *session.Controller
	Theme      *styles.Theme
	// Context bounds every request. Nil means context.Background().
	Context context.Context
}

// New creates the chat model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		ctrl:    opts.Controller,
		theme:   theme,
		keys:    DefaultKeyMap(),
		ctx:     ctx,
		editor:  components.NewEditor(),
		spinner: sp,
		tokens:  opts.Controller.ContextTokens(),
	}
}

// Err returns the fatal error that ended the loop, if any.
func (m Model) Err() error {
	return m.err
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case TickMsg:
		if m.ctrl.State().Busy() {
			return m, tickCmd()
		}
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.State().Busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	return m, nil
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.total = components.WrappedLineCount(m.ctrl.Turns(), m.width)
	m.viewport.Resize(m.transcriptRows(), m.width, m.total)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		cmd := m.quit()
		return m, cmd

	case key.Matches(msg, k.Cancel):
		if m.ctrl.State().Busy() {
			if err := m.ctrl.Cancel(); err != nil {
				return m.fatal(err)
			}
			m.relayout()
			m.setNotice("reply cancelled")
			return m, nil
		}
		if msg.Type == tea.KeyCtrlC {
			cmd := m.quit()
			return m, cmd
		}
		m.ctrl.ClearError()
		m.clearNotice()
		m.hidePanel()
		return m, nil

	case key.Matches(msg, k.Submit):
		return m.submit()

	case key.Matches(msg, k.Save):
		handleSaveCommand(&m, nil)
		return m, nil

	// Transcript scrolling
	case key.Matches(msg, k.ScrollUp):
		m.viewport.Scroll(1, m.total)
	case key.Matches(msg, k.ScrollDown):
		m.viewport.Scroll(-1, m.total)
	case key.Matches(msg, k.PageUp):
		m.viewport.Scroll(m.pageSize(), m.total)
	case key.Matches(msg, k.PageDown):
		m.viewport.Scroll(-m.pageSize(), m.total)
	case key.Matches(msg, k.Top):
		m.viewport.ScrollToTop(m.total)
	case key.Matches(msg, k.Bottom):
		m.viewport.ScrollToBottom()

	// Draft editing
	case key.Matches(msg, k.Left):
		m.editor.MoveCursor(-1)
	case key.Matches(msg, k.Right):
		m.editor.MoveCursor(1)
	case key.Matches(msg, k.LineStart):
		m.editor.Home()
	case key.Matches(msg, k.LineEnd):
		m.editor.End()
	case key.Matches(msg, k.Backspace):
		m.editor.DeleteBackward()
	case key.Matches(msg, k.DeleteChar):
		m.editor.DeleteForward()

	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.editor.InsertString(string(msg.Runes))
		case tea.KeySpace:
			m.editor.Insert(' ')
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseWheelUp:
		m.viewport.Scroll(mouseScrollLines, m.total)
	case tea.MouseWheelDown:
		m.viewport.Scroll(-mouseScrollLines, m.total)
	}
	return m, nil
}

// submit sends the draft, or runs it when it is a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	draft := m.editor.Value()
	if isCommand(draft) {
		m.editor.Take()
		m.hidePanel()
		cmd := m.runCommand(draft)
		return m, cmd
	}

	req, err := m.ctrl.Submit(m.ctx, draft)
	switch {
	case errors.Is(err, session.ErrConversationBusy):
		// The draft stays so it can be sent once the reply is done.
		m.setError(err)
		return m, nil
	case errors.Is(err, session.ErrEmptyPrompt):
		return m, nil
	case model.IsContractViolation(err):
		return m.fatal(err)
	}

	m.editor.Take()
	m.hidePanel()
	m.clearNotice()
	m.viewport.ScrollToBottom()
	m.relayout()

	if err != nil {
		// The request never started; the turn is already recorded as failed.
		m.setError(err)
		return m, nil
	}
	return m, tea.Batch(waitForEvent(m.ctx, req), tickCmd(), m.spinner.Tick)
}

func (m Model) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	applied, err := m.ctrl.HandleEvent(msg.Request.Seq, msg.Event)
	if err != nil {
		return m.fatal(err)
	}
	if !applied {
		return m, nil
	}
	m.relayout()

	if msg.Event.Kind == cloud.EventChunk {
		return m, waitForEvent(m.ctx, msg.Request)
	}
	if err := m.ctrl.LastError(); err != nil {
		m.setError(err)
	}
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// transcriptRows is the height of the transcript area.
func (m Model) transcriptRows() int {
	return max(0, m.height-chromeRows-len(m.panel))
}

func (m Model) pageSize() int {
	return max(1, m.viewport.Rows-1)
}

// relayout recomputes the wrapped line count after a transcript change. A
// pinned view follows new content; a scrolled view keeps its place.
func (m *Model) relayout() {
	next := components.WrappedLineCount(m.ctrl.Turns(), m.viewport.Cols)
	m.viewport.Follow(m.total, next)
	m.total = next
	m.tokens = m.ctrl.ContextTokens()
}

// resetView pins the view to a transcript that was swapped out.
func (m *Model) resetView() {
	m.total = components.WrappedLineCount(m.ctrl.Turns(), m.viewport.Cols)
	m.tokens = m.ctrl.ContextTokens()
	m.viewport.ScrollToBottom()
}

func (m *Model) showPanel(lines []string) {
	m.panel = lines
	m.viewport.Resize(m.transcriptRows(), m.width, m.total)
}

func (m *Model) hidePanel() {
	if m.panel == nil {
		return
	}
	m.panel = nil
	m.viewport.Resize(m.transcriptRows(), m.width, m.total)
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.noticeIsError = false
}

// setError shows err in the help line. Transport errors use the same summary
// as the failed turn.
func (m *Model) setError(err error) {
	if errors.Is(err, cloud.ErrTransport) {
		m.notice = cloud.Summary(err)
	} else {
		m.notice = fmt.Sprintf("error: %v", err)
	}
	m.noticeIsError = true
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeIsError = false
}

// quit saves the session and stops the program.
func (m *Model) quit() tea.Cmd {
	if err := m.ctrl.Close(); err != nil {
		log.Error().Err(err).Str("path", m.ctrl.Path()).Msg("save on exit failed")
	}
	m.quitting = true
	return tea.Quit
}

// fatal stops the program after a transcript contract violation.
func (m Model) fatal(err error) (tea.Model, tea.Cmd) {
	log.Error().Err(err).Msg("transcript contract violated, exiting")
	m.err = err
	m.quitting = true
	return m, tea.Quit
}
