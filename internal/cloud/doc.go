// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud is the transport to the remote chat model.
//
// The conversation controller sees only the Transport interface and the
// poll-based Stream it returns. Polling a stream yields, in arrival order, a
// Chunk for each piece of response text followed by exactly one End or Error.
//
// # Key Types
//
//   - Transport: opens a stream for an ordered sequence of turns
//   - Stream: channel-backed handle with an idle timeout and Close
//   - OpenAITransport: adapter for any OpenAI-compatible chat completions API
//   - TransportError: classified failure (timeout, auth, rate limit, ...)
//
// # Usage
//
//	transport := cloud.NewOpenAITransport(cloud.OpenAIConfig{
//	    APIKey: key,
//	    Model:  "gpt-3.5-turbo",
//	})
//	stream, err := transport.OpenStream(ctx, turns)
//	for {
//	    ev := stream.Next(ctx)
//	    if ev.Kind != cloud.EventChunk {
//	        break
//	    }
//	    fmt.Print(ev.Text)
//	}
//
// # Security
//
// API keys are never logged; use KeyFingerprint for diagnostics.
package cloud
