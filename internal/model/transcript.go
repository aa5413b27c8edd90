// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered log of turns in a session.
// At most one turn is streaming at any time.
//
// Transcript is not safe for concurrent use; the conversation controller is its
// only mutator.
type Transcript struct {
	turns []Turn

	// streamIdx is the index of the streaming turn, or -1.
	streamIdx int
	// finalizedIdx is the index of the most recently finalized streaming turn, or -1.
	finalizedIdx int

	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	stream strings.Builder
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{streamIdx: -1, finalizedIdx: -1}
}

// NewTranscriptFrom builds a transcript from existing turns, such as those
// decoded from a session file. It fails with ErrInvariantViolation if more than
// one turn is streaming or a turn carries an unknown role or status.
func NewTranscriptFrom(turns []Turn) (*Transcript, error) {
	t := NewTranscript()
	for i, turn := range turns {
		if !turn.Role.Valid() || !turn.Status.Valid() {
			return nil, fmt.Errorf("%w: turn %d has role %q status %q", ErrInvariantViolation, i, turn.Role, turn.Status)
		}
		if err := t.Append(turn); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Append inserts a turn at the tail.
func (t *Transcript) Append(turn Turn) error {
	if turn.IsStreaming() {
		if t.streamIdx >= 0 {
			return fmt.Errorf("%w: turn %d is already streaming", ErrInvariantViolation, t.streamIdx)
		}
		t.streamIdx = len(t.turns)
		t.stream.Reset()
		t.stream.WriteString(turn.Content)
	}
	t.turns = append(t.turns, turn)
	return nil
}

// UpdateLastStreaming appends chunk to the content of the streaming turn.
func (t *Transcript) UpdateLastStreaming(chunk string) error {
	if t.streamIdx < 0 {
		return ErrNoActiveStream
	}
	t.stream.WriteString(chunk)
	t.turns[t.streamIdx].Content = t.stream.String()
	return nil
}

// ReplaceLastStreaming overwrites the content of the streaming turn.
func (t *Transcript) ReplaceLastStreaming(content string) error {
	if t.streamIdx < 0 {
		return ErrNoActiveStream
	}
	t.stream.Reset()
	t.stream.WriteString(content)
	t.turns[t.streamIdx].Content = t.stream.String()
	return nil
}

// FinalizeLastStreaming moves the streaming turn to status, which must be
// StatusComplete or StatusFailed. Calling it again after a successful finalize
// returns ErrAlreadyFinalized and changes nothing.
func (t *Transcript) FinalizeLastStreaming(status Status) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: cannot finalize into %q", ErrInvariantViolation, status)
	}
	if t.streamIdx < 0 {
		if t.finalizedIdx >= 0 {
			return ErrAlreadyFinalized
		}
		return ErrNoActiveStream
	}
	t.turns[t.streamIdx].Status = status
	t.finalizedIdx = t.streamIdx
	t.streamIdx = -1
	t.stream.Reset()
	return nil
}

// Turns returns a copy of the turns in conversation order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns the final turn, if any.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// StreamingIndex returns the index of the streaming turn, or -1.
func (t *Transcript) StreamingIndex() int {
	return t.streamIdx
}

// HasStreaming reports whether a turn is currently streaming.
func (t *Transcript) HasStreaming() bool {
	return t.streamIdx >= 0
}
