// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package context selects the part of a transcript that is sent to the model.
//
// Long conversations are cut newest-first to a token budget. Tokens are
// counted with the model's tiktoken encoding when one is known, falling back to
// cl100k_base and finally to a word count.
//
// # Usage
//
//	truncator := context.NewTruncator(&context.TruncatorConfig{
//	    MaxTokens: 2000,
//	    Counter:   context.NewTokenCounter("gpt-3.5-turbo"),
//	})
//	result := truncator.Truncate(turns)
//	send(result.Turns)
package context
