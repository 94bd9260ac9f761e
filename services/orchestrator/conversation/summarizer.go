// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tokens"
)

// degradedSummaryContent replaces a summary when the LLM call fails.
// Fixed text so the conversation can proceed reduced in fidelity but not
// truncated in coverage.
const degradedSummaryContent = "[Previous conversation summarized due to length]"

// defaultSummaryPrompt is the built-in instruction template. The single %s
// receives the serialized conversation.
const defaultSummaryPrompt = `Please summarize the following conversation history concisely while preserving key information,
decisions, and context. The summary should be in the third person and focus on:
- Main topics discussed
- Key decisions or conclusions
- Important context for future messages
- Any action items or follow-ups

Conversation:
%s

Summary:`

// Generator is the single LLM capability the summarizer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error)
}

// Summarizer compresses spans of conversation into single assistant turns.
//
// # Description
//
// Summarization is best effort. A failed LLM call produces a fixed
// placeholder turn tagged "summary_error" instead of an error, so a long
// conversation is never blocked by a summarization outage.
//
// # Thread Safety
//
// Summarizer holds no mutable state and may be shared across sessions.
type Summarizer struct {
	cfg     SummarizerConfig
	gen     Generator
	counter tokens.Counter
	prompt  string
	now     func() time.Time
}

// NewSummarizer wires a summarizer to an LLM and a token counter. A nil
// counter falls back to the heuristic counter.
func NewSummarizer(cfg SummarizerConfig, gen Generator, counter tokens.Counter) *Summarizer {
	if counter == nil {
		counter = tokens.HeuristicCounter{}
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultSummaryPrompt
	}
	return &Summarizer{
		cfg:     cfg,
		gen:     gen,
		counter: counter,
		prompt:  prompt,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CountTokens measures text with the summarizer's own counter.
func (s *Summarizer) CountTokens(text string) int {
	return s.counter.Count(text)
}

// ShouldSummarize reports whether the given turns are long enough to
// warrant compression. True when their summed token count exceeds
// MaxTokens * SummaryThreshold. Content is re-counted here rather than
// trusting stored token counts, since the turns may come from a snapshot
// written with a different counter.
func (s *Summarizer) ShouldSummarize(turns []Turn) bool {
	total := 0
	for _, t := range turns {
		total += s.counter.Count(t.Content)
	}
	return float64(total) > float64(s.cfg.MaxTokens)*s.cfg.SummaryThreshold
}

// SummarizeMessages compresses turns into a single assistant summary turn.
//
// # Description
//
// The turns are serialized as "Role: content" lines and sent through the
// instruction template in one LLM call. On success the returned turn
// carries provenance metadata (type "summary", original message count,
// summary token cost). On failure the returned turn carries the fixed
// placeholder text and type "summary_error". This method never fails the
// caller.
//
// # Inputs
//
//   - ctx: bounds the LLM call. When it has no deadline, RequestTimeout is
//     applied.
//   - turns: the span to compress.
//   - userID, sessionID: recorded in the summary's metadata.
func (s *Summarizer) SummarizeMessages(ctx context.Context, turns []Turn, userID, sessionID string) Turn {
	conversation := formatConversation(turns)
	prompt := fmt.Sprintf(s.prompt, conversation)

	cctx := ctx
	if s.cfg.RequestTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()
		}
	}

	summary, err := s.gen.Generate(cctx, prompt, llm.GenerationParams{})
	if err != nil {
		slog.Error("conversation summary generation failed",
			"session_id", sessionID,
			"error", err)
		return Turn{
			Role:      RoleAssistant,
			Content:   degradedSummaryContent,
			Timestamp: s.now(),
			IsSummary: true,
			Metadata: map[string]any{
				"type":                    "summary_error",
				"error":                   err.Error(),
				"original_messages_count": len(turns),
			},
		}
	}

	summaryTokens := s.counter.Count(summary)
	return Turn{
		Role:       RoleAssistant,
		Content:    summary,
		Timestamp:  s.now(),
		TokenCount: summaryTokens,
		IsSummary:  true,
		Metadata: map[string]any{
			"type":                    "summary",
			"user_id":                 userID,
			"session_id":              sessionID,
			"original_messages_count": len(turns),
			"summary_tokens":          summaryTokens,
		},
	}
}

// ProcessMessages compresses a history when it grows too long.
//
// # Description
//
// When ShouldSummarize is false the input is returned unchanged. Otherwise
// the turns are split into contiguous chunks of ChunkSize; each chunk that
// individually exceeds the threshold collapses into one summary turn,
// chunks below it pass through verbatim. Chunking bounds the input of any
// single LLM call even for very long histories.
//
// # Outputs
//
//   - []Turn: the processed history, order preserved. Shorter than the
//     input exactly when at least one chunk was summarized.
func (s *Summarizer) ProcessMessages(ctx context.Context, turns []Turn, userID, sessionID string) []Turn {
	if !s.ShouldSummarize(turns) {
		return turns
	}

	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10
	}

	processed := make([]Turn, 0, len(turns))
	for start := 0; start < len(turns); start += chunkSize {
		end := start + chunkSize
		if end > len(turns) {
			end = len(turns)
		}
		chunk := turns[start:end]
		if s.ShouldSummarize(chunk) {
			processed = append(processed, s.SummarizeMessages(ctx, chunk, userID, sessionID))
		} else {
			processed = append(processed, chunk...)
		}
	}
	return processed
}

// formatConversation serializes turns as "Role: content" lines for the
// summary prompt.
func formatConversation(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(titleRole(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

// titleRole capitalizes a role for display, "user" becomes "User". An
// empty role renders as "Unknown".
func titleRole(r Role) string {
	s := string(r)
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
