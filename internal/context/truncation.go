// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"github.com/jeranaias/chatterm/internal/model"
)

// =============================================================================
// TRUNCATION TYPES
// =============================================================================

// Truncator fits a transcript into a token budget. It keeps the leading system
// turn and the newest turn unconditionally, then adds older turns newest-first
// until the next one would exceed the budget.
type Truncator struct {
	maxTokens int
	counter   Counter
}

// TruncatorConfig holds configuration for the truncator.
type TruncatorConfig struct {
	// MaxTokens is the budget for the whole request. 0 disables truncation.
	MaxTokens int

	// Counter estimates tokens per turn (default: WordCounter)
	Counter Counter
}

// TruncateResult holds the turns selected for a request.
type TruncateResult struct {
	// Turns is the selection in conversation order.
	Turns []model.Turn

	// WasTruncated indicates that eligible turns were left out.
	WasTruncated bool

	// TotalTurns is the number of eligible turns before truncation.
	TotalTurns int

	// Tokens is the estimated size of Turns.
	Tokens int
}

// NewTruncator creates a truncator.
func NewTruncator(config *TruncatorConfig) *Truncator {
	if config == nil {
		config = &TruncatorConfig{}
	}
	counter := config.Counter
	if counter == nil {
		counter = WordCounter{}
	}
	maxTokens := config.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}
	return &Truncator{maxTokens: maxTokens, counter: counter}
}

// =============================================================================
// TRUNCATION METHODS
// =============================================================================

// Eligible drops the turns that never go to the model: failed turns, whose
// content is an error summary, and the streaming placeholder.
func Eligible(turns []model.Turn) []model.Turn {
	out := make([]model.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Status == model.StatusComplete {
			out = append(out, t)
		}
	}
	return out
}

// Truncate selects the turns to send.
func (tr *Truncator) Truncate(turns []model.Turn) *TruncateResult {
	eligible := Eligible(turns)
	result := &TruncateResult{TotalTurns: len(eligible)}
	if len(eligible) == 0 {
		return result
	}

	if tr.maxTokens == 0 {
		result.Turns = eligible
		result.Tokens = tr.Estimate(eligible)
		return result
	}

	var system *model.Turn
	rest := eligible
	if eligible[0].Role == model.RoleSystem {
		system = &eligible[0]
		rest = eligible[1:]
	}

	used := 0
	if system != nil {
		used += tr.cost(*system)
	}

	// Walk newest-first. The newest turn is always included.
	start := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		c := tr.cost(rest[i])
		if i < len(rest)-1 && used+c > tr.maxTokens {
			break
		}
		used += c
		start = i
	}

	selected := make([]model.Turn, 0, len(rest)-start+1)
	if system != nil {
		selected = append(selected, *system)
	}
	selected = append(selected, rest[start:]...)

	result.Turns = selected
	result.Tokens = used
	result.WasTruncated = len(selected) < len(eligible)
	return result
}

// Estimate returns the token estimate for turns, including per-turn overhead.
func (tr *Truncator) Estimate(turns []model.Turn) int {
	total := 0
	for _, t := range turns {
		total += tr.cost(t)
	}
	return total
}

func (tr *Truncator) cost(t model.Turn) int {
	return tr.counter.Count(t.Content) + perTurnOverhead
}
