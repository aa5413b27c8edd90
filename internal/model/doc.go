// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for a chat session.
//
// This package defines the core domain types used throughout the application
// for representing a conversation: turns, the transcript that orders them, and
// the session that pairs a transcript with its metadata.
//
// # Key Types
//
//   - Turn: one message unit with a role, content and status
//   - Transcript: ordered turns with at most one turn streaming at a time
//   - Session: a transcript plus created_at and model_identifier metadata
//
// # Usage
//
// Drive a streamed reply through the transcript:
//
//	tr := model.NewTranscript()
//	_ = tr.Append(model.NewTurn(model.RoleUser, "Hello"))
//	_ = tr.Append(model.NewStreamingTurn(model.RoleAssistant))
//	_ = tr.UpdateLastStreaming("Hi there!")
//	_ = tr.FinalizeLastStreaming(model.StatusComplete)
package model
