// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/storage/snapshot"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tools"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
)

// chatStep is one scripted reply of the fake model.
type chatStep struct {
	result *llm.ChatResult
	err    error
}

// scriptedLLM replays a fixed reply sequence and records what it was
// asked, so tests can assert on the transcript the loop built.
type scriptedLLM struct {
	steps    []chatStep
	calls    int
	messages [][]llm.Message
	params   []llm.GenerationParams
	summary  string
}

func (s *scriptedLLM) Generate(context.Context, string, llm.GenerationParams) (string, error) {
	if s.summary == "" {
		return "", errors.New("no summary scripted")
	}
	return s.summary, nil
}

func (s *scriptedLLM) Chat(_ context.Context, messages []llm.Message, params llm.GenerationParams) (*llm.ChatResult, error) {
	s.messages = append(s.messages, append([]llm.Message(nil), messages...))
	s.params = append(s.params, params)
	if s.calls >= len(s.steps) {
		return nil, fmt.Errorf("unscripted chat call %d", s.calls+1)
	}
	step := s.steps[s.calls]
	s.calls++
	return step.result, step.err
}

func answerStep(content string) chatStep {
	return chatStep{result: &llm.ChatResult{Content: content, FinishReason: "stop"}}
}

func toolStep(id, name, arguments string) chatStep {
	return chatStep{result: &llm.ChatResult{
		ToolCalls:    []llm.ToolCall{{ID: id, Name: name, Arguments: arguments}},
		FinishReason: "tool_calls",
	}}
}

type stubTool struct {
	name    string
	invoke  func(ctx context.Context, input tools.Input) (string, error)
	invoked bool
	gotIn   tools.Input
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub " + s.name }
func (s *stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (s *stubTool) Invoke(ctx context.Context, input tools.Input) (string, error) {
	s.invoked = true
	s.gotIn = input
	if s.invoke == nil {
		return "ok", nil
	}
	return s.invoke(ctx, input)
}

func newTestSession(t *testing.T, userID string) *Session {
	t.Helper()
	mem := conversation.NewMemory(conversation.MemoryConfig{
		UserID:      userID,
		MaxMessages: 30,
		MaxTokens:   6000,
	}, snapshot.NewMemoryStore(), nil, nil)
	cm := conversation.NewContextManager(conversation.ContextConfig{
		MaxTokens:         4500,
		MaxMessages:       20,
		MinRecentMessages: 5,
	}, nil)
	return NewSession(mem, cm)
}

func TestRespondAnswersDirectly(t *testing.T) {
	client := &scriptedLLM{steps: []chatStep{answerStep("Vata is one of the three doshas.")}}
	agent := New(Config{}, Deps{Client: client})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "What is vata?"})

	require.NotNil(t, resp)
	assert.Equal(t, "Vata is one of the three doshas.", resp.Response)
	assert.Equal(t, sess.Memory.SessionID(), resp.SessionID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, StatePersisted, resp.Metrics.State)
	assert.Equal(t, 1, resp.Metrics.Iterations)
	assert.Equal(t, 1, resp.Metrics.LLMCalls)
	assert.Empty(t, resp.Metadata.ToolCalls)
	assert.False(t, resp.Metadata.FallbackUsed)
	assert.NotEmpty(t, resp.Metadata.MessageID)
	assert.False(t, resp.Metadata.Timestamp.IsZero())
	assert.NotEmpty(t, resp.Metadata.ContextUsed)

	// Transcript shape: turn instruction first, the user's message last.
	require.Len(t, client.messages, 1)
	sent := client.messages[0]
	require.NotEmpty(t, sent)
	assert.Equal(t, llm.RoleSystem, sent[0].Role)
	assert.Contains(t, sent[0].Content, "knowledgeable Ayurvedic health assistant")
	assert.Equal(t, llm.RoleUser, sent[len(sent)-1].Role)
	assert.Equal(t, "What is vata?", sent[len(sent)-1].Content)

	// The exchange was persisted.
	history := sess.Memory.GetConversationHistory(0)
	require.Len(t, history, 2)
	assert.Equal(t, "What is vata?", history[0].Content)
	assert.Equal(t, "Vata is one of the three doshas.", history[1].Content)
}

func TestRespondExecutesToolCalls(t *testing.T) {
	search := &stubTool{name: "vector_store_search", invoke: func(_ context.Context, _ tools.Input) (string, error) {
		return "three documents about vata", nil
	}}
	registry := tools.NewRegistry()
	registry.Register(search)
	trk := tracker.New(tracker.Config{}, nil)

	client := &scriptedLLM{steps: []chatStep{
		toolStep("call_1", "vector_store_search", `{"query":"vata diet"}`),
		answerStep("Favor warm, cooked meals."),
	}}
	agent := New(Config{}, Deps{Client: client, Registry: registry, Tracker: trk})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "What should vata types eat?"})

	assert.Equal(t, "Favor warm, cooked meals.", resp.Response)
	assert.Equal(t, 2, resp.Metrics.Iterations)
	assert.Equal(t, 2, resp.Metrics.LLMCalls)
	assert.Equal(t, map[string]int{"vector_store_search": 1}, resp.Metrics.ToolUsage)

	require.Len(t, resp.Metadata.ToolCalls, 1)
	assert.Equal(t, "vector_store_search", resp.Metadata.ToolCalls[0].Tool)
	assert.Equal(t, `{"query":"vata diet"}`, resp.Metadata.ToolCalls[0].Input)

	require.Len(t, resp.Metadata.ToolResults, 1)
	assert.True(t, resp.Metadata.ToolResults[0].Success)
	assert.Equal(t, "three documents about vata", resp.Metadata.ToolResults[0].Output)
	assert.GreaterOrEqual(t, resp.Metadata.ToolResults[0].ResponseTime, 0.0)

	// The tool saw the parsed arguments plus the session's user id.
	assert.True(t, search.invoked)
	assert.Equal(t, "vata diet", search.gotIn.Query)
	assert.Equal(t, "alice", search.gotIn.UserID)

	// The second model call planned over the observation.
	require.Len(t, client.messages, 2)
	second := client.messages[1]
	last := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "three documents about vata", last.Content)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "vector_store_search", last.Name)

	metrics, ok := trk.GetToolMetrics("vector_store_search")
	require.True(t, ok)
	assert.EqualValues(t, 1, metrics.Invocations)
	assert.EqualValues(t, 0, metrics.Errors)
}

func TestRespondEmptyMessageIsValidationError(t *testing.T) {
	client := &scriptedLLM{}
	agent := New(Config{}, Deps{Client: client})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "   "})

	assert.Equal(t, StateErrorResponse, resp.Metrics.State)
	assert.Contains(t, resp.Response, "Could you please rephrase it?")
	assert.Equal(t, ErrEmptyMessage.Error(), resp.Error)
	assert.Zero(t, client.calls)

	// Nothing reached the conversation.
	assert.Equal(t, 0, sess.Memory.Len())
	assert.Equal(t, 1, sess.Context.Len())
}

func TestRespondModelFailureIsFriendly(t *testing.T) {
	trk := tracker.New(tracker.Config{}, nil)
	client := &scriptedLLM{steps: []chatStep{{err: errors.New("connection reset by peer")}}}
	agent := New(Config{}, Deps{Client: client, Tracker: trk})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "What is pitta?"})

	assert.Equal(t, StateErrorResponse, resp.Metrics.State)
	assert.Contains(t, resp.Response, "trouble connecting")
	assert.Contains(t, resp.Error, "connection reset by peer")

	// The failed exchange still lands in history, apology included.
	history := sess.Memory.GetConversationHistory(0)
	require.Len(t, history, 2)
	assert.Equal(t, "What is pitta?", history[0].Content)
	assert.Equal(t, errorAcknowledgment, history[1].Content)

	metrics, ok := trk.GetToolMetrics("agent")
	require.True(t, ok)
	assert.EqualValues(t, 1, metrics.Invocations)
	assert.EqualValues(t, 1, metrics.Errors)
}

func TestRespondRateLimitIsFriendly(t *testing.T) {
	client := &scriptedLLM{steps: []chatStep{{err: errors.New("quota exceeded for model")}}}
	agent := New(Config{}, Deps{Client: client})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "What is kapha?"})

	assert.Contains(t, resp.Response, "reached my limit")
	assert.Equal(t, StateErrorResponse, resp.Metrics.State)
}

func TestRespondUnknownErrorQuotesErrorID(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := &scriptedLLM{steps: []chatStep{{err: errors.New("kaboom")}}}
	agent := New(Config{}, Deps{Client: client, Metrics: metrics})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "Hello"})

	require.Len(t, resp.Metadata.ErrorID, 8)
	assert.Contains(t, resp.Response, "(Error ID: "+resp.Metadata.ErrorID+")")
	assert.NotContains(t, resp.Response, "kaboom")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("tool_loop", "internal")))
}

func TestRespondConfidenceGateUsesWebSearch(t *testing.T) {
	searchResult := "Title: Vata guide\nSnippet: Daily routines for vata.\nLink: https://example.test/vata"
	google := &stubTool{name: "google_search", invoke: func(_ context.Context, _ tools.Input) (string, error) {
		return searchResult, nil
	}}
	registry := tools.NewRegistry()
	registry.Register(google)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	client := &scriptedLLM{steps: []chatStep{answerStep("I don't know the answer to that.")}}
	agent := New(Config{}, Deps{Client: client, Registry: registry, Metrics: metrics})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "Latest ayurveda conference dates?"})

	assert.Equal(t, fallbackPrefix+searchResult, resp.Response)
	assert.True(t, resp.Metadata.FallbackUsed)
	assert.Equal(t, "Latest ayurveda conference dates?", google.gotIn.Query)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("web_search")))

	// The fallback text is what gets persisted.
	history := sess.Memory.GetConversationHistory(0)
	require.Len(t, history, 2)
	assert.Equal(t, fallbackPrefix+searchResult, history[1].Content)
}

func TestRespondConfidenceGateWithoutSearchTool(t *testing.T) {
	client := &scriptedLLM{steps: []chatStep{answerStep("I don't have details on that topic.")}}
	agent := New(Config{}, Deps{Client: client})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "Anything new?"})

	assert.Equal(t, "I don't have details on that topic.", resp.Response)
	assert.False(t, resp.Metadata.FallbackUsed)
	assert.Equal(t, StatePersisted, resp.Metrics.State)
}

func TestRespondConfidenceGateSurvivesSearchFailure(t *testing.T) {
	google := &stubTool{name: "google_search", invoke: func(_ context.Context, _ tools.Input) (string, error) {
		return "", errors.New("serp api unavailable")
	}}
	registry := tools.NewRegistry()
	registry.Register(google)

	client := &scriptedLLM{steps: []chatStep{answerStep("I don't know much about that.")}}
	agent := New(Config{}, Deps{Client: client, Registry: registry})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "Anything new?"})

	assert.Equal(t, "I don't know much about that.", resp.Response)
	assert.False(t, resp.Metadata.FallbackUsed)
	assert.True(t, google.invoked)
}

func TestRespondIterationCapForcesFinalAnswer(t *testing.T) {
	search := &stubTool{name: "vector_store_search"}
	registry := tools.NewRegistry()
	registry.Register(search)

	client := &scriptedLLM{steps: []chatStep{
		toolStep("call_1", "vector_store_search", `{"query":"vata"}`),
		toolStep("call_2", "vector_store_search", `{"query":"vata sleep"}`),
		answerStep("Here is what I found."),
	}}
	agent := New(Config{MaxIterations: 2}, Deps{Client: client, Registry: registry})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "Help me sleep better"})

	assert.Equal(t, "Here is what I found.", resp.Response)
	assert.Equal(t, 2, resp.Metrics.Iterations)
	assert.Equal(t, 3, resp.Metrics.LLMCalls)
	assert.Equal(t, map[string]int{"vector_store_search": 2}, resp.Metrics.ToolUsage)

	// The forced final call must not offer tools again.
	require.Len(t, client.params, 3)
	assert.NotEmpty(t, client.params[0].Tools)
	assert.Empty(t, client.params[2].Tools)
}

func TestRespondDetectsFollowUps(t *testing.T) {
	client := &scriptedLLM{steps: []chatStep{
		answerStep("Vata governs movement and the nervous system."),
		answerStep("It benefits from routine and warm food."),
	}}
	agent := New(Config{}, Deps{Client: client})
	sess := newTestSession(t, "alice")

	first := agent.Respond(context.Background(), sess, Request{Message: "Explain the vata dosha"})
	require.Equal(t, StatePersisted, first.Metrics.State)
	assert.False(t, first.Metadata.IsFollowUp)

	second := agent.Respond(context.Background(), sess, Request{Message: "Tell me more about that"})

	assert.True(t, second.Metadata.IsFollowUp)
	require.NotNil(t, second.Metadata.ReferencedMessage)
	assert.Equal(t, "Vata governs movement and the nervous system.", second.Metadata.ReferencedMessage.Content)
}

func TestRespondFeedsMalformedArgumentsBack(t *testing.T) {
	search := &stubTool{name: "vector_store_search"}
	registry := tools.NewRegistry()
	registry.Register(search)

	client := &scriptedLLM{steps: []chatStep{
		toolStep("call_1", "vector_store_search", `{"query": 42}`),
		answerStep("Let me answer without the search."),
	}}
	agent := New(Config{}, Deps{Client: client, Registry: registry})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "What is ojas?"})

	assert.Equal(t, "Let me answer without the search.", resp.Response)
	assert.False(t, search.invoked)

	require.Len(t, resp.Metadata.ToolResults, 1)
	assert.False(t, resp.Metadata.ToolResults[0].Success)
	assert.Contains(t, resp.Metadata.ToolResults[0].Error, "tool arguments")

	second := client.messages[1]
	last := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Contains(t, last.Content, "error: ")
}

func TestRespondRefreshesSummary(t *testing.T) {
	client := &scriptedLLM{
		steps:   []chatStep{answerStep("Warm oil massage calms vata.")},
		summary: "User explores vata-balancing routines.",
	}
	summarizer := conversation.NewSummarizer(conversation.SummarizerConfig{
		MaxTokens:        4000,
		SummaryThreshold: 0.7,
		ChunkSize:        10,
	}, client, nil)
	agent := New(Config{SummaryRefreshThreshold: 3}, Deps{Client: client, Summarizer: summarizer})
	sess := newTestSession(t, "alice")

	resp := agent.Respond(context.Background(), sess, Request{Message: "How do I calm vata?"})

	require.Equal(t, StatePersisted, resp.Metrics.State)
	assert.Equal(t, "User explores vata-balancing routines.", sess.Context.Summary())
}

func TestRespondRecordsTurnMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := &scriptedLLM{steps: []chatStep{answerStep("All good.")}}
	agent := New(Config{Model: "test-model"}, Deps{Client: client, Metrics: metrics})
	sess := newTestSession(t, "alice")

	agent.Respond(context.Background(), sess, Request{Message: "Hi"})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallsTotal.WithLabelValues("test-model", "success")))
}

func TestNewSessionSeedsStandingInstruction(t *testing.T) {
	sess := newTestSession(t, "alice")

	require.Equal(t, 1, sess.Context.Len())
	window := sess.Context.GetContext(true, false)
	require.NotEmpty(t, window)
	assert.Equal(t, conversation.RoleSystem, window[0].Role)
	assert.Contains(t, window[0].Content, "Ayurvedic health assistant")

	// Wrapping an already-seeded window must not add a second instruction.
	again := NewSession(sess.Memory, sess.Context)
	assert.Equal(t, 1, again.Context.Len())
}

func TestSessionResetRestoresInstruction(t *testing.T) {
	sess := newTestSession(t, "alice")
	sess.Memory.SaveContext(context.Background(), conversation.Exchange{
		UserInput:       "hello",
		AssistantOutput: "hi",
	})
	sess.Context.AddMessage(conversation.RoleUser, "hello", nil)
	require.Equal(t, 2, sess.Memory.Len())
	require.Equal(t, 2, sess.Context.Len())

	sess.Reset()

	assert.Equal(t, 0, sess.Memory.Len())
	require.Equal(t, 1, sess.Context.Len())
	window := sess.Context.GetContext(true, false)
	require.NotEmpty(t, window)
	assert.Equal(t, conversation.RoleSystem, window[0].Role)
}

func TestRespondNilSessionStillAnswers(t *testing.T) {
	client := &scriptedLLM{}
	agent := New(Config{}, Deps{Client: client})

	resp := agent.Respond(context.Background(), nil, Request{Message: "Hi"})

	require.NotNil(t, resp)
	assert.Equal(t, StateErrorResponse, resp.Metrics.State)
	assert.NotEmpty(t, resp.Response)
	assert.Empty(t, resp.SessionID)
}
