// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/cloud"
	ctxwindow "github.com/jeranaias/chatterm/internal/context"
	"github.com/jeranaias/chatterm/internal/model"
	"github.com/jeranaias/chatterm/internal/storage"
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the turn lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingFirstChunk
	StateStreaming
	StateError
)

// String returns the state name shown in the status line.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "waiting"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s == StateAwaitingFirstChunk || s == StateStreaming
}

// Markers written into a failed turn.
const (
	CancelledMarker   = "[cancelled]"
	InterruptedMarker = "[interrupted]"
)

var (
	// ErrConversationBusy is returned when a prompt or command arrives while a
	// reply is still streaming. Nothing is changed.
	ErrConversationBusy = errors.New("conversation busy: wait for the reply or press esc to cancel")

	// ErrEmptyPrompt is returned for prompts that are empty after trimming.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Request identifies one in-flight reply. Seq tags every event read from
// Stream so that events from an abandoned request can be recognized.
type Request struct {
	Seq    uint64
	Stream *cloud.Stream
}

// ControllerConfig holds the collaborators of a Controller.
type ControllerConfig struct {
	// Session is the session to adopt. Nil starts a new one.
	Session *model.Session

	// Path is the session file. Empty picks a new file in Store on first save.
	Path string

	Transport cloud.Transport

	// Store persists the session. Nil disables persistence.
	Store *storage.SessionStore

	// Truncator selects the context for each request. Nil sends every
	// eligible turn.
	Truncator *ctxwindow.Truncator

	// InitialPrompt seeds new sessions with a System turn.
	InitialPrompt string

	// Model is recorded in new sessions' metadata.
	Model string
}

// Controller drives the conversation state machine over one Session.
type Controller struct {
	session   *model.Session
	path      string
	transport cloud.Transport
	store     *storage.SessionStore
	truncator *ctxwindow.Truncator

	initialPrompt string
	model         string

	state     State
	seq       uint64
	active    *cloud.Stream
	started   time.Time
	lastError error
}

// NewController creates a controller. An adopted session that still holds a
// streaming turn, left behind by a crash, has that turn finalized as Failed.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("session: transport is required")
	}
	c := &Controller{
		path:          cfg.Path,
		transport:     cfg.Transport,
		store:         cfg.Store,
		truncator:     cfg.Truncator,
		initialPrompt: cfg.InitialPrompt,
		model:         cfg.Model,
	}

	sess := cfg.Session
	if sess == nil {
		sess = model.NewSession(cfg.Model, cfg.InitialPrompt)
	}
	if err := adopt(sess); err != nil {
		return nil, err
	}
	c.session = sess
	return c, nil
}

// adopt finalizes a dangling streaming turn.
func adopt(sess *model.Session) error {
	if sess.Transcript == nil {
		sess.Transcript = model.NewTranscript()
		return nil
	}
	if !sess.Transcript.HasStreaming() {
		return nil
	}
	// The streaming turn is not necessarily the last one in a hand-edited file.
	idx := sess.Transcript.StreamingIndex()
	dangling := sess.Transcript.Turns()[idx]
	if err := sess.Transcript.ReplaceLastStreaming(withMarker(dangling.Content, InterruptedMarker)); err != nil {
		return fmt.Errorf("session: recover interrupted turn: %w", err)
	}
	if err := sess.Transcript.FinalizeLastStreaming(model.StatusFailed); err != nil {
		return fmt.Errorf("session: recover interrupted turn: %w", err)
	}
	log.Info().Str("session", sess.Metadata.ID).Int("turn", idx).Msg("recovered interrupted turn")
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Session returns the live session. Callers must not mutate it.
func (c *Controller) Session() *model.Session {
	return c.session
}

// Turns returns a snapshot of the transcript.
func (c *Controller) Turns() []model.Turn {
	return c.session.Transcript.Turns()
}

// Path returns the session file path, empty until the first save of a new
// session.
func (c *Controller) Path() string {
	return c.path
}

// Model returns the model identifier used for new sessions.
func (c *Controller) Model() string {
	return c.model
}

// LastError returns the most recent transport or persistence error, or nil.
func (c *Controller) LastError() error {
	return c.lastError
}

// ClearError forgets LastError.
func (c *Controller) ClearError() {
	c.lastError = nil
}

// Elapsed returns the time since the active request was submitted.
func (c *Controller) Elapsed() time.Duration {
	if !c.state.Busy() {
		return 0
	}
	return time.Since(c.started)
}

// ContextTokens estimates the size of the context the next request would send.
func (c *Controller) ContextTokens() int {
	if c.truncator == nil {
		return 0
	}
	return c.truncator.Truncate(c.session.Transcript.Turns()).Tokens
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// Submit starts a new turn with prompt. The returned Request must be polled
// and each event passed to HandleEvent.
func (c *Controller) Submit(ctx context.Context, prompt string) (Request, error) {
	if c.state.Busy() {
		return Request{}, ErrConversationBusy
	}
	if strings.TrimSpace(prompt) == "" {
		return Request{}, ErrEmptyPrompt
	}
	c.lastError = nil

	tr := c.session.Transcript
	if err := tr.Append(model.NewTurn(model.RoleUser, prompt)); err != nil {
		return Request{}, fmt.Errorf("session: append prompt: %w", err)
	}
	turns := c.contextTurns()
	if err := tr.Append(model.NewStreamingTurn(model.RoleAssistant)); err != nil {
		return Request{}, fmt.Errorf("session: append reply: %w", err)
	}

	c.seq++
	c.started = time.Now()
	c.transition(StateAwaitingFirstChunk)

	stream, err := c.transport.OpenStream(ctx, turns)
	if err != nil {
		if ferr := c.fail(err); ferr != nil {
			return Request{}, ferr
		}
		return Request{}, err
	}
	c.active = stream

	log.Debug().Uint64("seq", c.seq).Int("context_turns", len(turns)).Msg("request started")
	return Request{Seq: c.seq, Stream: stream}, nil
}

// HandleEvent applies one stream event. It returns false for stale events,
// which belong to a request that was cancelled or replaced. A non-nil error
// is a transcript contract violation.
func (c *Controller) HandleEvent(seq uint64, ev cloud.Event) (bool, error) {
	if !c.state.Busy() || seq != c.seq {
		log.Debug().Uint64("seq", seq).Uint64("active", c.seq).Str("kind", ev.Kind.String()).Msg("stale stream event ignored")
		return false, nil
	}

	switch ev.Kind {
	case cloud.EventChunk:
		if err := c.session.Transcript.UpdateLastStreaming(ev.Text); err != nil {
			return true, fmt.Errorf("session: apply chunk: %w", err)
		}
		if c.state == StateAwaitingFirstChunk {
			c.transition(StateStreaming)
		}
		return true, nil

	case cloud.EventEnd:
		c.active = nil
		if err := c.session.Transcript.FinalizeLastStreaming(model.StatusComplete); err != nil {
			return true, fmt.Errorf("session: finalize reply: %w", err)
		}
		log.Debug().Uint64("seq", seq).Dur("elapsed", time.Since(c.started)).Msg("request complete")
		c.transition(StateIdle)
		c.persist()
		return true, nil

	default:
		c.active = nil
		err := ev.Err
		if err == nil {
			err = cloud.NewTransportError(cloud.ErrNetwork, nil)
		}
		return true, c.fail(err)
	}
}

// fail replaces the streaming turn with an error summary and finalizes it.
func (c *Controller) fail(err error) error {
	tr := c.session.Transcript
	if rerr := tr.ReplaceLastStreaming(cloud.Summary(err)); rerr != nil {
		return fmt.Errorf("session: record failure: %w", rerr)
	}
	if ferr := tr.FinalizeLastStreaming(model.StatusFailed); ferr != nil {
		return fmt.Errorf("session: record failure: %w", ferr)
	}

	log.Warn().Err(err).Uint64("seq", c.seq).Msg("request failed")
	c.lastError = err
	c.transition(StateError)
	c.persist()
	c.transition(StateIdle)
	return nil
}

// Cancel aborts the active request. Partial content is kept and marked
// cancelled. It is a no-op when idle.
func (c *Controller) Cancel() error {
	if !c.state.Busy() {
		return nil
	}
	if c.active != nil {
		c.active.Close()
		c.active = nil
	}

	tr := c.session.Transcript
	last, _ := tr.Last()
	if err := tr.ReplaceLastStreaming(withMarker(last.Content, CancelledMarker)); err != nil {
		return fmt.Errorf("session: cancel: %w", err)
	}
	if err := tr.FinalizeLastStreaming(model.StatusFailed); err != nil {
		return fmt.Errorf("session: cancel: %w", err)
	}

	log.Info().Uint64("seq", c.seq).Msg("request cancelled")
	c.transition(StateIdle)
	c.persist()
	return nil
}

// contextTurns selects the turns sent with the next request.
func (c *Controller) contextTurns() []model.Turn {
	turns := c.session.Transcript.Turns()
	if c.truncator == nil {
		return ctxwindow.Eligible(turns)
	}
	res := c.truncator.Truncate(turns)
	if res.WasTruncated {
		log.Debug().Int("sent", len(res.Turns)).Int("eligible", res.TotalTurns).Int("tokens", res.Tokens).Msg("context truncated")
	}
	return res.Turns
}

func (c *Controller) transition(to State) {
	if c.state == to {
		return
	}
	log.Debug().Str("from", c.state.String()).Str("to", to.String()).Msg("state change")
	c.state = to
}

func withMarker(content, marker string) string {
	if content == "" {
		return marker
	}
	return content + " " + marker
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persist saves after a turn finalizes. Failures are logged and kept in
// LastError; the conversation continues.
func (c *Controller) persist() {
	if err := c.Save(); err != nil {
		log.Error().Err(err).Str("path", c.path).Msg("session save failed")
		c.lastError = err
	}
}

// Save writes the session to its file, choosing a new file name in the store
// the first time.
func (c *Controller) Save() error {
	if c.store == nil {
		return nil
	}
	if c.path == "" {
		c.path = c.store.NewSessionPath(time.Now())
	}
	return c.store.Save(c.path, c.session)
}

// SaveAs writes the session to path and makes it the session file.
func (c *Controller) SaveAs(path string) error {
	if c.store == nil {
		return fmt.Errorf("session: no session store")
	}
	path = c.store.Resolve(path)
	if err := c.store.Save(path, c.session); err != nil {
		return err
	}
	c.path = path
	return nil
}

// Close cancels any active request and saves. It is called on exit.
func (c *Controller) Close() error {
	if err := c.Cancel(); err != nil {
		return err
	}
	if !c.worthSaving() {
		return nil
	}
	return c.Save()
}

// worthSaving reports whether the session has a file already or holds more
// than the seeded system turn.
func (c *Controller) worthSaving() bool {
	if c.path != "" {
		return true
	}
	for _, t := range c.session.Transcript.Turns() {
		if t.Role != model.RoleSystem {
			return true
		}
	}
	return false
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

// Reset replaces the conversation with a new session seeded with the initial
// prompt. The current session is saved first.
func (c *Controller) Reset() error {
	if c.state.Busy() {
		return ErrConversationBusy
	}
	if c.worthSaving() {
		c.persist()
	}
	c.session = model.NewSession(c.model, c.initialPrompt)
	c.path = ""
	c.lastError = nil
	log.Info().Str("session", c.session.Metadata.ID).Msg("new session")
	return nil
}

// Load swaps in the session stored at path. On any error, including
// model.ErrCorruptSession, the current session is left untouched.
func (c *Controller) Load(path string) error {
	if c.state.Busy() {
		return ErrConversationBusy
	}
	if c.store == nil {
		return fmt.Errorf("session: no session store")
	}
	path = c.store.Resolve(path)
	sess, err := c.store.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("session load skipped")
		return err
	}
	if err := adopt(sess); err != nil {
		return err
	}

	if c.worthSaving() {
		c.persist()
	}
	c.session = sess
	c.path = path
	c.lastError = nil
	log.Info().Str("path", path).Int("turns", sess.Transcript.Len()).Msg("session loaded")
	return nil
}

// Sessions lists saved sessions, newest first.
func (c *Controller) Sessions() ([]storage.SessionMeta, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.List()
}
