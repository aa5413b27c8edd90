// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION
// =============================================================================

// Metadata describes a session.
type Metadata struct {
	// ID is a stable identifier. Older session files may not carry one.
	ID              string
	CreatedAt       time.Time
	ModelIdentifier string
}

// Session pairs a transcript with its metadata.
type Session struct {
	Transcript *Transcript
	Metadata   Metadata
}

// NewSession creates an empty session for the given model. A non-empty
// initialPrompt becomes the leading system turn.
func NewSession(modelID, initialPrompt string) *Session {
	s := &Session{
		Transcript: NewTranscript(),
		Metadata: Metadata{
			ID:              uuid.NewString(),
			CreatedAt:       time.Now().UTC().Truncate(time.Second),
			ModelIdentifier: modelID,
		},
	}
	if initialPrompt != "" {
		// Cannot fail: the transcript is empty and the turn is complete.
		_ = s.Transcript.Append(NewTurn(RoleSystem, initialPrompt))
	}
	return s
}

// Equal reports structural equality over ordered turns and metadata.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Metadata.ID != other.Metadata.ID ||
		s.Metadata.ModelIdentifier != other.Metadata.ModelIdentifier ||
		!s.Metadata.CreatedAt.Equal(other.Metadata.CreatedAt) {
		return false
	}
	a, b := s.Transcript.Turns(), other.Transcript.Turns()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
