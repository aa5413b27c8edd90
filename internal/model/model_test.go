// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE AND STATUS TESTS
// =============================================================================

func countStreaming(turns []Turn) int {
	n := 0
	for _, turn := range turns {
		if turn.IsStreaming() {
			n++
		}
	}
	return n
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Bot"},
		{RoleSystem, "Sys"},
		{Role("tool"), "tool"},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.role.DisplayName())
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusComplete.Valid())
	assert.True(t, StatusStreaming.Valid())
	assert.True(t, StatusFailed.Valid())
	assert.False(t, Status("done").Valid())
	assert.False(t, StatusStreaming.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_StreamedReply(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewTurn(RoleUser, "Hello")))
	require.NoError(t, tr.Append(NewStreamingTurn(RoleAssistant)))

	for _, chunk := range []string{"Hi", " there", "!"} {
		require.NoError(t, tr.UpdateLastStreaming(chunk))
	}
	require.NoError(t, tr.FinalizeLastStreaming(StatusComplete))

	turns := tr.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "Hi there!", Status: StatusComplete}, turns[1])
	assert.False(t, tr.HasStreaming())
}

func TestTranscript_AppendSecondStreaming(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewStreamingTurn(RoleAssistant)))

	err := tr.Append(NewStreamingTurn(RoleAssistant))
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 1, tr.Len())

	// Complete turns may still be appended while one is streaming.
	require.NoError(t, tr.Append(NewTurn(RoleSystem, "note")))
	assert.Equal(t, 1, countStreaming(tr.Turns()))
}

func TestTranscript_UpdateWithoutStream(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewTurn(RoleUser, "Hello")))

	require.ErrorIs(t, tr.UpdateLastStreaming("x"), ErrNoActiveStream)
	require.ErrorIs(t, tr.ReplaceLastStreaming("x"), ErrNoActiveStream)
	require.ErrorIs(t, tr.FinalizeLastStreaming(StatusComplete), ErrNoActiveStream)
}

func TestTranscript_FinalizeIdempotent(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewStreamingTurn(RoleAssistant)))
	require.NoError(t, tr.UpdateLastStreaming("partial"))
	require.NoError(t, tr.FinalizeLastStreaming(StatusFailed))

	before := tr.Turns()
	err := tr.FinalizeLastStreaming(StatusComplete)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, before, tr.Turns())
	assert.Equal(t, StatusFailed, tr.Turns()[0].Status)
}

func TestTranscript_FinalizeIntoStreaming(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewStreamingTurn(RoleAssistant)))

	require.ErrorIs(t, tr.FinalizeLastStreaming(StatusStreaming), ErrInvariantViolation)
	assert.True(t, tr.HasStreaming())
}

func TestTranscript_ReplaceLastStreaming(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewStreamingTurn(RoleAssistant)))
	require.NoError(t, tr.UpdateLastStreaming("half an answ"))
	require.NoError(t, tr.ReplaceLastStreaming("error: request timed out"))
	require.NoError(t, tr.UpdateLastStreaming("."))

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "error: request timed out.", last.Content)
}

func TestTranscript_TurnsIsCopy(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(NewTurn(RoleUser, "Hello")))

	turns := tr.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "Hello", tr.Turns()[0].Content)
}

func TestNewTranscriptFrom(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tr, err := NewTranscriptFrom([]Turn{
			NewTurn(RoleSystem, "be nice"),
			NewTurn(RoleUser, "hi"),
			{Role: RoleAssistant, Content: "hel", Status: StatusStreaming},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, tr.StreamingIndex())
		require.NoError(t, tr.UpdateLastStreaming("lo"))
		assert.Equal(t, "hello", tr.Turns()[2].Content)
	})

	t.Run("two streaming", func(t *testing.T) {
		_, err := NewTranscriptFrom([]Turn{
			NewStreamingTurn(RoleAssistant),
			NewStreamingTurn(RoleAssistant),
		})
		require.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := NewTranscriptFrom([]Turn{{Role: "tool", Status: StatusComplete}})
		require.ErrorIs(t, err, ErrInvariantViolation)
	})
}

func TestIsContractViolation(t *testing.T) {
	assert.True(t, IsContractViolation(ErrNoActiveStream))
	assert.True(t, IsContractViolation(errors.Join(errors.New("ctx"), ErrAlreadyFinalized)))
	assert.False(t, IsContractViolation(ErrCorruptSession))
	assert.False(t, IsContractViolation(nil))
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession(t *testing.T) {
	s := NewSession("gpt-3.5-turbo", "You are Assistant.")
	require.Equal(t, 1, s.Transcript.Len())
	first, _ := s.Transcript.Last()
	assert.Equal(t, NewTurn(RoleSystem, "You are Assistant."), first)
	assert.NotEmpty(t, s.Metadata.ID)
	assert.Equal(t, "gpt-3.5-turbo", s.Metadata.ModelIdentifier)

	empty := NewSession("m", "")
	assert.Equal(t, 0, empty.Transcript.Len())
}

func TestSession_Equal(t *testing.T) {
	a := NewSession("m", "sys")
	b := &Session{Transcript: NewTranscript(), Metadata: a.Metadata}
	assert.False(t, a.Equal(b))

	require.NoError(t, b.Transcript.Append(NewTurn(RoleSystem, "sys")))
	assert.True(t, a.Equal(b))

	b.Metadata.ModelIdentifier = "other"
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

// Operations applied by the at-most-one-streaming property.
const (
	opAppendComplete = iota
	opAppendStreaming
	opUpdate
	opFinalizeComplete
	opFinalizeFailed
	opCount
)

func TestTranscript_AtMostOneStreamingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("never more than one streaming turn", prop.ForAll(
		func(ops []int) bool {
			tr := NewTranscript()
			for _, op := range ops {
				switch op {
				case opAppendComplete:
					_ = tr.Append(NewTurn(RoleUser, "u"))
				case opAppendStreaming:
					_ = tr.Append(NewStreamingTurn(RoleAssistant))
				case opUpdate:
					_ = tr.UpdateLastStreaming("c")
				case opFinalizeComplete:
					_ = tr.FinalizeLastStreaming(StatusComplete)
				case opFinalizeFailed:
					_ = tr.FinalizeLastStreaming(StatusFailed)
				}
				if countStreaming(tr.Turns()) > 1 {
					return false
				}
				if tr.HasStreaming() != (countStreaming(tr.Turns()) == 1) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, opCount-1)),
	))

	properties.Property("second finalize changes nothing", prop.ForAll(
		func(chunks []string, failed bool) bool {
			tr := NewTranscript()
			_ = tr.Append(NewStreamingTurn(RoleAssistant))
			for _, c := range chunks {
				_ = tr.UpdateLastStreaming(c)
			}
			status := StatusComplete
			if failed {
				status = StatusFailed
			}
			if err := tr.FinalizeLastStreaming(status); err != nil {
				return false
			}
			first := tr.Turns()[0]
			err := tr.FinalizeLastStreaming(StatusComplete)
			return errors.Is(err, ErrAlreadyFinalized) && tr.Turns()[0] == first
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
