// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the conversation controller.
//
// The Controller owns the live Session and drives each turn through its
// lifecycle: a submitted prompt becomes a User turn plus an empty streaming
// Assistant turn, streamed chunks grow that turn, and the end of the stream
// (or an error, or a cancel) finalizes it and saves the session file.
//
// # States
//
//	Idle --Submit--> AwaitingFirstChunk --Chunk--> Streaming
//	AwaitingFirstChunk|Streaming --End--> Idle
//	AwaitingFirstChunk|Streaming --Error--> Error --> Idle
//	AwaitingFirstChunk|Streaming --Cancel--> Idle
//
// Error is transient: the failure is recorded on the turn and in LastError,
// and the controller is ready for the next prompt.
//
// # Usage
//
//	ctrl, err := session.NewController(session.ControllerConfig{...})
//	req, err := ctrl.Submit(ctx, "Hello")
//	for {
//	    ev := req.Stream.Next(ctx)
//	    if _, err := ctrl.HandleEvent(req.Seq, ev); err != nil {
//	        // contract violation: fatal
//	    }
//	    if ev.Kind != cloud.EventChunk {
//	        break
//	    }
//	}
//
// The Controller is not safe for concurrent use. In the TUI it is only
// touched from the bubbletea Update goroutine.
package session
