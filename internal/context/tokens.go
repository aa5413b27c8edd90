// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// =============================================================================
// TOKEN COUNTING
// =============================================================================

// perTurnOverhead approximates the role and framing tokens the chat format adds
// to every message.
const perTurnOverhead = 4

// Counter estimates the number of tokens in a piece of text.
type Counter interface {
	Count(text string) int
}

// TokenCounter counts with a tiktoken codec.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter returns a counter for modelID. Unknown models use cl100k_base;
// if no codec can be built, the result counts words.
func NewTokenCounter(modelID string) Counter {
	codec, err := tokenizer.ForModel(tokenizer.Model(modelID))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
	}
	if err != nil {
		log.Warn().Err(err).Str("model", modelID).Msg("no tokenizer available, counting words")
		return WordCounter{}
	}
	return &TokenCounter{codec: codec}
}

// Count implements Counter.
func (c *TokenCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return WordCounter{}.Count(text)
	}
	return len(ids)
}

// WordCounter approximates tokens by whitespace-separated words.
type WordCounter struct{}

// Count implements Counter.
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
