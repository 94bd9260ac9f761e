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
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tools"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
)

var tracer = otel.Tracer("ayurveda.orchestrator.agent")

// webSearchTool is the registry name the confidence gate dispatches to.
const webSearchTool = "google_search"

// fallbackPrefix marks replies sourced from live search instead of the
// knowledge base.
const fallbackPrefix = "Based on my search: "

// hedgingPhrases mark a grounded answer as too uncertain to ship as-is.
var hedgingPhrases = []string{"don't know", "i don't have"}

// errorAcknowledgment is the assistant text recorded in memory for a
// failed turn, so reloaded histories show the failure happened.
const errorAcknowledgment = "I'm sorry, I encountered an error processing your request."

// Session bundles one conversation's state: the persisted memory and the
// in-process context window.
//
// A Session must not be shared by two concurrent turns. The session
// arena serializes access per session id.
type Session struct {
	Memory  *conversation.Memory
	Context *conversation.ContextManager
}

// NewSession wraps mem with a context window. A nil cm gets a fresh
// window with default bounds; an empty window is seeded with the
// standing assistant instruction.
func NewSession(mem *conversation.Memory, cm *conversation.ContextManager) *Session {
	if cm == nil {
		cm = conversation.NewContextManager(conversation.DefaultContextConfig(), nil)
	}
	if cm.Len() == 0 {
		cm.AddMessage(conversation.RoleSystem, sessionContext, nil)
	}
	return &Session{Memory: mem, Context: cm}
}

// Reset drops the conversation while keeping the session identity:
// memory is cleared and the context window returns to just the standing
// instruction.
func (s *Session) Reset() {
	if s.Memory != nil {
		s.Memory.Clear()
	}
	if s.Context != nil {
		s.Context.Clear()
		s.Context.AddMessage(conversation.RoleSystem, sessionContext, nil)
	}
}

// Deps are the collaborators a turn reaches.
//
// Client is required. Registry defaults to an empty registry, which
// degrades the agent to plain chat. Runner defaults to one built over
// Registry and Tracker. Tracker, Summarizer and Metrics may be nil,
// disabling usage logging, summary refresh and metric export.
type Deps struct {
	Client     llm.Client
	Registry   *tools.Registry
	Runner     *tools.Runner
	Tracker    *tracker.Tracker
	Summarizer *conversation.Summarizer
	Metrics    *observability.Metrics
}

// Agent runs the turn pipeline. It holds no per-session state and is
// safe for concurrent use across sessions.
type Agent struct {
	cfg        Config
	llm        llm.Client
	registry   *tools.Registry
	runner     *tools.Runner
	tracker    *tracker.Tracker
	summarizer *conversation.Summarizer
	metrics    *observability.Metrics

	now   func() time.Time
	newID func() string
}

// New builds the turn orchestrator.
func New(cfg Config, deps Deps) *Agent {
	cfg = cfg.withDefaults()

	registry := deps.Registry
	if registry == nil {
		registry = tools.NewRegistry()
	}
	runner := deps.Runner
	if runner == nil {
		runner = tools.NewRunner(registry, deps.Tracker, 0)
	}

	return &Agent{
		cfg:        cfg,
		llm:        deps.Client,
		registry:   registry,
		runner:     runner,
		tracker:    deps.Tracker,
		summarizer: deps.Summarizer,
		metrics:    deps.Metrics,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Respond runs one turn against sess.
//
// # Description
//
// The turn walks RECEIVED, CONTEXT_CHECK, TOOL_LOOP, RESPONSE_ASSEMBLED,
// METRICS_RECORDED and PERSISTED. Every failure diverts to the
// ERROR_RESPONSE terminal, which classifies the error into a
// user-readable reply. Respond never returns an error and never panics
// the caller's goroutine on the paths it controls.
//
// # Inputs
//
//   - ctx: turn deadline and cancellation. Model calls additionally get
//     the configured LLMTimeout when ctx carries no deadline.
//   - sess: the conversation to run against. Required.
//   - req: the user's message plus optional metadata.
//
// # Outputs
//
//   - *Response: the structured turn result, never nil.
func (a *Agent) Respond(ctx context.Context, sess *Session, req Request) *Response {
	ctx, span := tracer.Start(ctx, "Respond")
	defer span.End()

	start := a.now()
	state := StateReceived

	if sess == nil || sess.Memory == nil {
		return a.errorResponse(ctx, nil, req, start, state, errors.New("invalid session: conversation memory is missing"))
	}
	span.SetAttributes(
		attribute.String("session.id", sess.Memory.SessionID()),
		attribute.String("user.id", sess.Memory.UserID()),
	)

	if a.llm == nil {
		return a.errorResponse(ctx, sess, req, start, state, errors.New("no completion client is configured"))
	}
	if strings.TrimSpace(req.Message) == "" {
		return a.errorResponse(ctx, sess, req, start, state, ErrEmptyMessage)
	}

	state = StateContextCheck
	sess.Context.AddMessage(conversation.RoleUser, req.Message, req.Metadata)
	isFollowUp, referenced := sess.Context.HandleFollowUp(req.Message)
	window := sess.Context.GetContext(true, true)

	state = StateToolLoop
	loop, err := a.runToolLoop(ctx, sess, window)
	if err != nil {
		return a.errorResponse(ctx, sess, req, start, state, err)
	}

	answer, fallbackUsed := a.applyConfidenceGate(ctx, sess, req.Message, loop.answer)
	if strings.TrimSpace(answer) == "" {
		return a.errorResponse(ctx, sess, req, start, state, errors.New("the model returned an empty response"))
	}

	state = StateResponseAssembled
	sess.Context.AddMessage(conversation.RoleAssistant, answer, assistantMetadata(loop, fallbackUsed))
	a.refreshSummary(ctx, sess)

	state = StateMetricsRecorded
	elapsed := a.now().Sub(start)
	if a.metrics != nil {
		a.metrics.RecordTurn(true, elapsed.Seconds(), loop.iterations)
	}

	state = StatePersisted
	sess.Memory.SaveContext(ctx, conversation.Exchange{
		UserInput:       req.Message,
		AssistantOutput: answer,
		ToolCalls:       loop.toolCalls,
		ToolResults:     loop.toolResults,
		Custom: map[string]any{
			"fallback_used": fallbackUsed,
		},
	})

	slog.Info("Turn completed",
		"session_id", sess.Memory.SessionID(),
		"user_id", sess.Memory.UserID(),
		"iterations", loop.iterations,
		"tool_calls", len(loop.toolCalls),
		"fallback_used", fallbackUsed,
		"duration_ms", durationMS(elapsed))

	return &Response{
		Response:  answer,
		SessionID: sess.Memory.SessionID(),
		Metadata: Metadata{
			ToolCalls:         loop.toolCalls,
			ToolResults:       loop.toolResults,
			ContextUsed:       window,
			IsFollowUp:        isFollowUp,
			ReferencedMessage: referenced,
			MessageID:         a.newID(),
			Timestamp:         a.now(),
			FallbackUsed:      fallbackUsed,
		},
		Metrics: TurnMetrics{
			ResponseTimeMS: durationMS(elapsed),
			Iterations:     loop.iterations,
			LLMCalls:       loop.llmCalls,
			ToolUsage:      loop.toolUsage,
			State:          state,
		},
	}
}

// loopResult aggregates what one tool loop produced.
type loopResult struct {
	answer      string
	iterations  int
	llmCalls    int
	toolCalls   []conversation.ToolCallRecord
	toolResults []conversation.ToolResultRecord
	toolUsage   map[string]int
}

// runToolLoop drives the bounded plan/act loop.
//
// # Description
//
// Each iteration makes one model call with the registry's tool schemas
// attached. Proposed calls are executed sequentially through the runner
// and their observations appended as tool messages, so the next
// iteration plans over them. A reply without tool calls ends the loop.
// When MaxIterations is exhausted a final call without tools forces an
// answer from whatever was gathered.
func (a *Agent) runToolLoop(ctx context.Context, sess *Session, window []conversation.Turn) (*loopResult, error) {
	ctx, span := tracer.Start(ctx, "runToolLoop")
	defer span.End()

	messages := buildMessages(window)
	params := llm.GenerationParams{
		Temperature:    llm.Float32Ptr(a.cfg.Temperature),
		MaxTokens:      llm.IntPtr(a.cfg.MaxTokens),
		Tools:          toolDefinitions(a.registry),
		RequestTimeout: a.cfg.LLMTimeout,
	}

	res := &loopResult{toolUsage: make(map[string]int)}

	for res.iterations < a.cfg.MaxIterations {
		res.iterations++

		result, err := a.chat(ctx, messages, params)
		res.llmCalls++
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		if len(result.ToolCalls) == 0 {
			res.answer = result.Content
			span.SetAttributes(attribute.Int("loop.iterations", res.iterations))
			return res, nil
		}

		// The proposal goes back into the transcript so the next round
		// sees its own calls next to the observations.
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		for _, call := range result.ToolCalls {
			messages = append(messages, a.executeToolCall(ctx, sess, res, call))
		}
	}

	// Iteration cap hit. One last call without tools forces an answer.
	slog.Warn("Tool loop hit the iteration cap, forcing a final answer",
		"session_id", sess.Memory.SessionID(),
		"iterations", res.iterations)
	params.Tools = nil
	result, err := a.chat(ctx, messages, params)
	res.llmCalls++
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	res.answer = result.Content
	span.SetAttributes(attribute.Int("loop.iterations", res.iterations))
	return res, nil
}

// chat makes one model call under the configured guard timeout.
func (a *Agent) chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (*llm.ChatResult, error) {
	cctx := ctx
	if a.cfg.LLMTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, a.cfg.LLMTimeout)
			defer cancel()
		}
	}

	start := time.Now()
	result, err := a.llm.Chat(cctx, messages, params)
	if a.metrics != nil {
		a.metrics.RecordLLMCall(a.cfg.Model, err == nil, time.Since(start).Seconds())
	}
	return result, err
}

// executeToolCall runs one proposed call and returns the observation
// message fed back to the model.
func (a *Agent) executeToolCall(ctx context.Context, sess *Session, res *loopResult, call llm.ToolCall) llm.Message {
	res.toolCalls = append(res.toolCalls, conversation.ToolCallRecord{Tool: call.Name, Input: call.Arguments})
	res.toolUsage[call.Name]++

	input, err := tools.ParseInput(call.Arguments)
	if err != nil {
		// Malformed arguments become the observation, so the model can
		// correct itself on the next round instead of failing the turn.
		res.toolResults = append(res.toolResults, conversation.ToolResultRecord{
			Tool:  call.Name,
			Error: err.Error(),
		})
		slog.Warn("Tool call arguments rejected", "tool", call.Name, "error", err)
		return toolMessage(call, "error: "+err.Error())
	}
	input.UserID = sess.Memory.UserID()

	outcome := a.runner.Run(ctx, call.Name, input)
	res.toolResults = append(res.toolResults, conversation.ToolResultRecord{
		Tool:         outcome.Tool,
		Output:       outcome.Output,
		Error:        outcome.Error,
		Success:      outcome.Success,
		ResponseTime: outcome.DurationMS / 1000,
	})

	if !outcome.Success {
		return toolMessage(call, "error: "+outcome.Error)
	}
	return toolMessage(call, outcome.Output)
}

// toolMessage wraps an observation as the tool-role reply to call.
func toolMessage(call llm.ToolCall, content string) llm.Message {
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// needsFallback reports whether a grounded answer is too weak to ship.
func needsFallback(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// applyConfidenceGate swaps an empty or hedging answer for a live web
// search result, prefixed as externally sourced. The gate only fires
// when the search tool is registered and the search itself succeeds;
// otherwise the original answer stands.
func (a *Agent) applyConfidenceGate(ctx context.Context, sess *Session, message, answer string) (string, bool) {
	if !needsFallback(answer) {
		return answer, false
	}
	if _, ok := a.registry.Get(webSearchTool); !ok {
		return answer, false
	}

	outcome := a.runner.Run(ctx, webSearchTool, tools.Input{
		Query:  message,
		UserID: sess.Memory.UserID(),
	})
	if !outcome.Success || strings.TrimSpace(outcome.Output) == "" {
		slog.Warn("Low-confidence fallback search failed",
			"session_id", sess.Memory.SessionID(),
			"error", outcome.Error)
		return answer, false
	}

	slog.Info("Low-confidence answer replaced with web search result",
		"session_id", sess.Memory.SessionID())
	if a.metrics != nil {
		a.metrics.RecordFallback(observability.FallbackWebSearch)
	}
	return fallbackPrefix + outcome.Output, true
}

// refreshSummary regenerates the running context summary once the window
// grows past the threshold. A failed summary keeps the previous one.
func (a *Agent) refreshSummary(ctx context.Context, sess *Session) {
	if a.summarizer == nil || sess.Context.Len() < a.cfg.SummaryRefreshThreshold {
		return
	}

	turns := sess.Context.GetContext(true, false)
	turn := a.summarizer.SummarizeMessages(ctx, turns, sess.Memory.UserID(), sess.Memory.SessionID())
	if kind, _ := turn.Metadata["type"].(string); kind != "summary" {
		return
	}
	sess.Context.UpdateSummary(turn.Content)
}

// assistantMetadata builds the context-turn metadata for the reply.
func assistantMetadata(loop *loopResult, fallbackUsed bool) map[string]any {
	meta := make(map[string]any)
	if len(loop.toolCalls) > 0 {
		meta["tool_calls"] = loop.toolCalls
		meta["tool_results"] = loop.toolResults
	}
	if fallbackUsed {
		meta["fallback_used"] = true
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// errorResponse is the ERROR_RESPONSE terminal. It classifies the cause,
// records the failure, and still returns a structured reply.
func (a *Agent) errorResponse(ctx context.Context, sess *Session, req Request, start time.Time, state State, cause error) *Response {
	now := a.now()
	classified := classify(cause, now)
	elapsed := now.Sub(start)
	stage := stageFor(state)

	slog.Error("Turn failed",
		"stage", string(stage),
		"error_code", string(classified.Code),
		"error", cause)

	if a.metrics != nil {
		a.metrics.RecordError(stage, classified.Code)
		a.metrics.RecordTurn(false, elapsed.Seconds(), 0)
	}

	sessionID := ""
	if sess != nil && sess.Memory != nil {
		sessionID = sess.Memory.SessionID()

		if a.tracker != nil {
			a.tracker.LogToolUse(tracker.Invocation{
				Tool:         "agent",
				UserID:       sess.Memory.UserID(),
				Error:        cause.Error(),
				ResponseTime: tracker.Float64(elapsed.Seconds()),
				Metadata: map[string]any{
					"input": truncate(req.Message, 500),
				},
			})
		}

		// Blank messages never reached the conversation, so there is no
		// exchange to record for them.
		if strings.TrimSpace(req.Message) != "" {
			sess.Memory.SaveContext(ctx, conversation.Exchange{
				UserInput:       req.Message,
				AssistantOutput: errorAcknowledgment,
				Custom: map[string]any{
					"error":      cause.Error(),
					"error_code": string(classified.Code),
				},
			})
		}
	}

	return &Response{
		Response:  classified.Message,
		SessionID: sessionID,
		Error:     cause.Error(),
		Metadata: Metadata{
			MessageID: a.newID(),
			Timestamp: now,
			ErrorID:   classified.ErrorID,
		},
		Metrics: TurnMetrics{
			ResponseTimeMS: durationMS(elapsed),
			State:          StateErrorResponse,
		},
	}
}

// stageFor maps a pipeline state to its metrics stage label.
func stageFor(state State) observability.Stage {
	switch state {
	case StateToolLoop:
		return observability.StageToolLoop
	case StateResponseAssembled, StateMetricsRecorded:
		return observability.StageResponse
	case StatePersisted:
		return observability.StagePersist
	default:
		return observability.StageContext
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
