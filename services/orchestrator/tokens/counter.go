// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tokens provides token counting for context-budget decisions.
//
// # Description
//
// Every pruning and summarization decision in the conversation layer is a
// comparison against a token budget, so the counter must be consistent and
// monotonic: more text never counts as fewer tokens. Exact parity with the
// provider's tokenizer is not required.
//
// Two implementations are provided. TiktokenCounter uses the cl100k_base
// BPE encoding and matches OpenAI models closely. HeuristicCounter uses the
// ~4 characters per token approximation; it exists as a fallback for when
// the encoding tables cannot be loaded and for tests that want cheap,
// predictable numbers.
//
// # Assumptions
//
//   - One component instance uses one Counter for its whole lifetime.
//     Mixing counters across snapshots of the same conversation would make
//     budget checks incoherent.
package tokens

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a text string.
type Counter interface {
	Count(text string) int
}

// =============================================================================
// Tiktoken counter
// =============================================================================

const encodingName = "cl100k_base"

// TiktokenCounter counts with the cl100k_base BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var _ Counter = (*TiktokenCounter)(nil)

// NewTiktokenCounter loads the cl100k_base encoding. Loading can fail when
// the embedded tables are unavailable; callers that must not fail should
// use NewCounter instead.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// =============================================================================
// Heuristic counter
// =============================================================================

// charsPerToken is conservative for English text: BPE tokenizers average
// 3.5-4.5 characters per token, so dividing by 4 overestimates slightly,
// which triggers pruning early rather than overflowing a context window.
const charsPerToken = 4

// HeuristicCounter approximates tokens as ceil(len/4). Good enough for
// threshold comparisons, not for billing.
type HeuristicCounter struct{}

var _ Counter = HeuristicCounter{}

// Count implements Counter.
func (HeuristicCounter) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// =============================================================================
// Factory
// =============================================================================

// NewCounter returns the tiktoken counter, falling back to the heuristic
// with a logged warning when the encoding cannot be loaded.
func NewCounter() Counter {
	counter, err := NewTiktokenCounter()
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, using character heuristic", "encoding", encodingName, "error", err)
		return HeuristicCounter{}
	}
	return counter
}
