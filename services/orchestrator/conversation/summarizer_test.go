// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
)

// fakeGenerator records prompts and returns a canned reply or error.
type fakeGenerator struct {
	reply       string
	err         error
	prompts     []string
	sawDeadline bool
	calls       int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if _, ok := ctx.Deadline(); ok {
		g.sawDeadline = true
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestSummarizer(cfg SummarizerConfig, gen Generator) *Summarizer {
	s := NewSummarizer(cfg, gen, wordCounter{})
	s.now = stepClock(time.Second)
	return s
}

// turnsOfWords builds n turns of exactly wordsEach words, alternating
// user/assistant.
func turnsOfWords(n, wordsEach int) []Turn {
	turns := make([]Turn, n)
	for i := range turns {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		turns[i] = Turn{
			Role:    role,
			Content: strings.TrimSpace(strings.Repeat(fmt.Sprintf("t%d ", i), wordsEach)),
		}
	}
	return turns
}

func TestShouldSummarizeThreshold(t *testing.T) {
	s := newTestSummarizer(SummarizerConfig{MaxTokens: 100, SummaryThreshold: 0.7, ChunkSize: 10}, &fakeGenerator{})

	t.Run("at threshold stays quiet", func(t *testing.T) {
		// 70 words total, exactly max_tokens * threshold. Trigger is
		// strictly greater than.
		assert.False(t, s.ShouldSummarize(turnsOfWords(7, 10)))
	})

	t.Run("above threshold triggers", func(t *testing.T) {
		turns := turnsOfWords(7, 10)
		turns = append(turns, Turn{Role: RoleUser, Content: "one more"})
		assert.True(t, s.ShouldSummarize(turns))
	})

	t.Run("empty is quiet", func(t *testing.T) {
		assert.False(t, s.ShouldSummarize(nil))
	})
}

func TestSummarizeMessagesPromptAndMetadata(t *testing.T) {
	gen := &fakeGenerator{reply: "They discussed winter meals for vata."}
	s := newTestSummarizer(SummarizerConfig{MaxTokens: 100, SummaryThreshold: 0.7, ChunkSize: 10}, gen)

	turns := []Turn{
		{Role: RoleUser, Content: "what should I eat in winter"},
		{Role: RoleAssistant, Content: "warm cooked meals with ghee"},
	}
	summary := s.SummarizeMessages(context.Background(), turns, "u1", "sess_1")

	require.Equal(t, 1, gen.calls)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "User: what should I eat in winter")
	assert.Contains(t, prompt, "Assistant: warm cooked meals with ghee")
	assert.Contains(t, prompt, "Main topics discussed")

	assert.Equal(t, RoleAssistant, summary.Role)
	assert.True(t, summary.IsSummary)
	assert.Equal(t, gen.reply, summary.Content)
	assert.Equal(t, "summary", summary.Metadata["type"])
	assert.Equal(t, "u1", summary.Metadata["user_id"])
	assert.Equal(t, "sess_1", summary.Metadata["session_id"])
	assert.Equal(t, 2, summary.Metadata["original_messages_count"])
	assert.Equal(t, 6, summary.Metadata["summary_tokens"])
	assert.Equal(t, 6, summary.TokenCount)
}

func TestSummarizeMessagesDegradesOnFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	s := newTestSummarizer(SummarizerConfig{MaxTokens: 100, SummaryThreshold: 0.7, ChunkSize: 10}, gen)

	summary := s.SummarizeMessages(context.Background(), turnsOfWords(4, 3), "u1", "sess_1")

	assert.Equal(t, degradedSummaryContent, summary.Content)
	assert.True(t, summary.IsSummary)
	assert.Equal(t, RoleAssistant, summary.Role)
	assert.Equal(t, "summary_error", summary.Metadata["type"])
	assert.Equal(t, "rate limited", summary.Metadata["error"])
	assert.Equal(t, 4, summary.Metadata["original_messages_count"])
}

func TestSummarizeMessagesAppliesTimeout(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	s := newTestSummarizer(SummarizerConfig{
		MaxTokens:        100,
		SummaryThreshold: 0.7,
		ChunkSize:        10,
		RequestTimeout:   5 * time.Second,
	}, gen)

	s.SummarizeMessages(context.Background(), turnsOfWords(2, 2), "u1", "sess_1")
	assert.True(t, gen.sawDeadline)
}

func TestProcessMessagesPassthroughBelowThreshold(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	s := newTestSummarizer(SummarizerConfig{MaxTokens: 100, SummaryThreshold: 0.7, ChunkSize: 10}, gen)

	turns := turnsOfWords(4, 5) // 20 words, well under 70
	out := s.ProcessMessages(context.Background(), turns, "u1", "sess_1")

	assert.Equal(t, turns, out)
	assert.Zero(t, gen.calls, "no LLM call below the threshold")
}

func TestProcessMessagesChunksLongHistory(t *testing.T) {
	gen := &fakeGenerator{reply: "compressed span"}
	s := newTestSummarizer(SummarizerConfig{MaxTokens: 100, SummaryThreshold: 0.7, ChunkSize: 10}, gen)

	// Two chunks of ten 10-word turns each exceed the threshold on their
	// own; the five 2-word stragglers do not.
	turns := turnsOfWords(20, 10)
	turns = append(turns, turnsOfWords(5, 2)...)

	out := s.ProcessMessages(context.Background(), turns, "u1", "sess_1")

	require.Len(t, out, 7)
	assert.True(t, out[0].IsSummary)
	assert.True(t, out[1].IsSummary)
	for i := 2; i < 7; i++ {
		assert.False(t, out[i].IsSummary)
		assert.Equal(t, turns[18+i].Content, out[i].Content)
	}
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 10, out[0].Metadata["original_messages_count"])
}

func TestProcessMessagesNeverFails(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	s := newTestSummarizer(SummarizerConfig{MaxTokens: 100, SummaryThreshold: 0.7, ChunkSize: 10}, gen)

	turns := turnsOfWords(20, 10)
	out := s.ProcessMessages(context.Background(), turns, "u1", "sess_1")

	require.Len(t, out, 2)
	for _, turn := range out {
		assert.Equal(t, degradedSummaryContent, turn.Content)
		assert.Equal(t, "summary_error", turn.Metadata["type"])
	}
}

func TestCustomPromptTemplate(t *testing.T) {
	gen := &fakeGenerator{reply: "short"}
	s := newTestSummarizer(SummarizerConfig{
		MaxTokens:        100,
		SummaryThreshold: 0.7,
		ChunkSize:        10,
		Prompt:           "Condense this:\n%s",
	}, gen)

	s.SummarizeMessages(context.Background(), []Turn{{Role: RoleUser, Content: "hello"}}, "u1", "sess_1")

	require.Equal(t, 1, gen.calls)
	assert.Equal(t, "Condense this:\nUser: hello", gen.prompts[0])
}
