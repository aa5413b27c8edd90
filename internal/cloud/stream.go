// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/chatterm/internal/model"
)

// STREAMING: a poll-based handle over a producer goroutine. The consumer pulls
// one event at a time, so chunks are applied strictly in arrival order.

// =============================================================================
// TRANSPORT INTERFACE
// =============================================================================

// Transport sends conversation context to the model and streams the reply.
type Transport interface {
	// OpenStream starts a request. It must not block on the network: failures
	// after validation are delivered through the returned stream.
	OpenStream(ctx context.Context, turns []model.Turn) (*Stream, error)
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind tells chunks apart from the terminal events.
type EventKind int

const (
	EventChunk EventKind = iota
	EventEnd
	EventError
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one result of polling a stream.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Chunk builds a chunk event.
func Chunk(text string) Event { return Event{Kind: EventChunk, Text: text} }

// End builds an end-of-stream event.
func End() Event { return Event{Kind: EventEnd} }

// Failure builds an error event.
func Failure(err error) Event { return Event{Kind: EventError, Err: err} }

// =============================================================================
// STREAM
// =============================================================================

// streamBuffer bounds how far the producer may run ahead of the consumer.
const streamBuffer = 64

// Stream is the handle returned by OpenStream.
//
// Next is called from one goroutine at a time. Close may be called from any
// goroutine, any number of times.
type Stream struct {
	events      chan Event
	done        chan struct{}
	closeOnce   sync.Once
	cancel      context.CancelFunc
	idleTimeout time.Duration

	// finished is set once a terminal event has been returned by Next.
	finished bool
	terminal Event
}

// NewStream creates a stream. cancel, if non-nil, is called by Close to stop
// the producer. A zero idleTimeout waits forever.
func NewStream(cancel context.CancelFunc, idleTimeout time.Duration) *Stream {
	return &Stream{
		events:      make(chan Event, streamBuffer),
		done:        make(chan struct{}),
		cancel:      cancel,
		idleTimeout: idleTimeout,
	}
}

// Next blocks until the next event, the idle timeout, Close, or ctx is done.
// After a terminal event, Next keeps returning it.
func (s *Stream) Next(ctx context.Context) Event {
	if s.finished {
		return s.terminal
	}

	var timeout <-chan time.Time
	if s.idleTimeout > 0 {
		timer := time.NewTimer(s.idleTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var ev Event
	select {
	case ev = <-s.events:
	case <-timeout:
		s.Close()
		ev = Failure(NewTransportError(ErrTimeout, nil))
	case <-s.done:
		ev = Failure(NewTransportError(ErrCancelled, nil))
	case <-ctx.Done():
		s.Close()
		ev = Failure(classify(ctx, ctx.Err()))
	}

	if ev.Kind != EventChunk {
		s.finished = true
		s.terminal = ev
	}
	return ev
}

// Close aborts the stream. Pending and future Next calls return ErrCancelled.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// =============================================================================
// PRODUCER SIDE
// =============================================================================

// Send delivers an event to the consumer. It returns false once the stream is
// closed, telling the producer to stop.
func (s *Stream) Send(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// SendChunk delivers a piece of response text.
func (s *Stream) SendChunk(text string) bool {
	return s.Send(Chunk(text))
}

// SendEnd marks normal completion.
func (s *Stream) SendEnd() bool {
	return s.Send(End())
}

// SendError marks a failure.
func (s *Stream) SendError(err error) bool {
	return s.Send(Failure(err))
}
