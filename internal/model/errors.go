// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "errors"

// Contract errors returned by Transcript. Any of them reaching the event loop
// means the at-most-one-streaming rule was broken, so callers treat them as fatal.
var (
	// ErrInvariantViolation is returned when an operation would leave more
	// than one streaming turn, or would finalize into a non-terminal status.
	ErrInvariantViolation = errors.New("transcript invariant violation")

	// ErrNoActiveStream is returned when a streaming operation finds no
	// streaming turn.
	ErrNoActiveStream = errors.New("no active stream")

	// ErrAlreadyFinalized signals a repeated finalize. The transcript is left
	// unchanged.
	ErrAlreadyFinalized = errors.New("streaming turn already finalized")
)

// ErrCorruptSession is returned when a session file is malformed or missing
// required fields. Loading is all-or-nothing: no partial session accompanies it.
var ErrCorruptSession = errors.New("corrupt session")

// IsContractViolation reports whether err is one of the transcript contract errors.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrNoActiveStream) ||
		errors.Is(err, ErrAlreadyFinalized)
}
