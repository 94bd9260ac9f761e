// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent implements the per-turn orchestrator of the assistant.
//
// Each user message runs through a fixed state machine: RECEIVED,
// CONTEXT_CHECK (follow-up detection against the conversation window),
// TOOL_LOOP (a bounded plan/act loop against the tool registry),
// RESPONSE_ASSEMBLED, METRICS_RECORDED and PERSISTED. A failure at any
// stage diverts to ERROR_RESPONSE, which still produces a structured,
// user-readable reply. Respond never returns an error to the caller.
//
// Thread Safety:
//
//	An Agent is stateless between turns and safe for concurrent use.
//	Session state (memory, context window) is owned by the caller and
//	must not be shared across concurrent turns for the same session.
package agent

import (
	"os"
	"strconv"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
)

// State is one phase of the turn pipeline.
type State string

const (
	// StateReceived is the entry state once a message arrives.
	StateReceived State = "RECEIVED"

	// StateContextCheck runs follow-up detection and context assembly.
	StateContextCheck State = "CONTEXT_CHECK"

	// StateToolLoop is the bounded plan/act loop. Each iteration makes
	// one model call and executes the tool calls it proposes.
	StateToolLoop State = "TOOL_LOOP"

	// StateResponseAssembled means the final answer text exists,
	// including any low-confidence web-search fallback.
	StateResponseAssembled State = "RESPONSE_ASSEMBLED"

	// StateMetricsRecorded means turn metrics and tool usage were
	// flushed to the collectors.
	StateMetricsRecorded State = "METRICS_RECORDED"

	// StatePersisted is the successful terminal state, reached after the
	// exchange was written to conversation memory.
	StatePersisted State = "PERSISTED"

	// StateErrorResponse is the failure terminal state. The turn still
	// carries a user-facing message.
	StateErrorResponse State = "ERROR_RESPONSE"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for PERSISTED and ERROR_RESPONSE.
func (s State) IsTerminal() bool {
	return s == StatePersisted || s == StateErrorResponse
}

// IsActive returns true while the turn can still make progress.
func (s State) IsActive() bool {
	switch s {
	case StateReceived, StateContextCheck, StateToolLoop, StateResponseAssembled, StateMetricsRecorded:
		return true
	default:
		return false
	}
}

// AllStates returns every pipeline state in execution order, with
// ERROR_RESPONSE last.
func AllStates() []State {
	return []State{
		StateReceived,
		StateContextCheck,
		StateToolLoop,
		StateResponseAssembled,
		StateMetricsRecorded,
		StatePersisted,
		StateErrorResponse,
	}
}

// Request is one user message handed to the agent.
type Request struct {
	// Message is the user's text. Required.
	Message string `json:"message"`

	// Metadata carries free-form extras stored on the user's context
	// turn. May be nil.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Response is the structured result of one turn. It is always populated,
// including on the error path.
type Response struct {
	// Response is the assistant's reply text.
	Response string `json:"response"`

	// SessionID identifies the session the turn ran against.
	SessionID string `json:"session_id"`

	// Metadata describes how the reply was produced.
	Metadata Metadata `json:"metadata"`

	// Metrics reports per-turn timing and tool usage.
	Metrics TurnMetrics `json:"metrics"`

	// Error carries the internal failure description on the error path,
	// empty on success.
	Error string `json:"error,omitempty"`
}

// Metadata is the per-turn provenance record attached to a Response.
type Metadata struct {
	// ToolCalls is the ordered trace of tool requests made this turn.
	ToolCalls []conversation.ToolCallRecord `json:"tool_calls"`

	// ToolResults is the outcome trace, in call order.
	ToolResults []conversation.ToolResultRecord `json:"tool_results"`

	// ContextUsed is the conversation window the reply was conditioned
	// on.
	ContextUsed []conversation.Turn `json:"context_used"`

	// IsFollowUp reports whether the message referenced earlier turns.
	IsFollowUp bool `json:"is_follow_up"`

	// ReferencedMessage is the prior turn a follow-up points at.
	ReferencedMessage *conversation.Turn `json:"referenced_message,omitempty"`

	// MessageID uniquely identifies this turn.
	MessageID string `json:"message_id"`

	// Timestamp is when the reply was assembled, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// FallbackUsed is true when the reply came from the web-search
	// fallback instead of the grounded answer.
	FallbackUsed bool `json:"fallback_used"`

	// ErrorID is the short opaque id quoted in default error replies.
	ErrorID string `json:"error_id,omitempty"`
}

// TurnMetrics reports the cost of one turn.
type TurnMetrics struct {
	// ResponseTimeMS is the wall-clock duration of the turn.
	ResponseTimeMS float64 `json:"response_time_ms"`

	// Iterations is how many plan/act rounds the tool loop ran.
	Iterations int `json:"iterations"`

	// LLMCalls is the number of model calls made, tool loop and forced
	// final answer included.
	LLMCalls int `json:"llm_calls"`

	// ToolUsage counts tool invocations by name for this turn only.
	ToolUsage map[string]int `json:"tool_usage"`

	// State is the terminal pipeline state.
	State State `json:"state"`
}

// Config tunes the turn pipeline.
type Config struct {
	// MaxIterations caps the plan/act rounds per turn. When the cap is
	// hit a final model call without tools forces an answer.
	// Default: 5
	MaxIterations int

	// LLMTimeout bounds each model call when the turn context has no
	// sooner deadline. Default: 30s
	LLMTimeout time.Duration

	// Temperature is the sampling temperature for turn model calls.
	// Default: 0.4
	Temperature float32

	// MaxTokens caps the model's reply length. Default: 1024
	MaxTokens int

	// Model is the label reported to metrics for model calls. It does
	// not select the backend, the injected client already did that.
	// Default: OPENAI_MODEL or "gpt-4o-mini"
	Model string

	// SummaryRefreshThreshold is the context-window length at which the
	// running summary is regenerated after a turn. Default: 8
	SummaryRefreshThreshold int
}

// DefaultConfig returns the default pipeline tuning.
//
// # Description
//
// Values can be overridden via environment variables:
//   - AGENT_MAX_ITERATIONS (default: 5)
//   - AGENT_LLM_TIMEOUT_SECONDS (default: 30)
//   - AGENT_TEMPERATURE (default: 0.4)
//   - AGENT_MAX_TOKENS (default: 1024)
//   - OPENAI_MODEL (default: "gpt-4o-mini")
//   - AGENT_SUMMARY_REFRESH_THRESHOLD (default: 8)
func DefaultConfig() Config {
	return Config{
		MaxIterations:           getEnvInt("AGENT_MAX_ITERATIONS", 5),
		LLMTimeout:              time.Duration(getEnvInt("AGENT_LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		Temperature:             float32(getEnvFloat("AGENT_TEMPERATURE", 0.4)),
		MaxTokens:               getEnvInt("AGENT_MAX_TOKENS", 1024),
		Model:                   getEnvStr("OPENAI_MODEL", "gpt-4o-mini"),
		SummaryRefreshThreshold: getEnvInt("AGENT_SUMMARY_REFRESH_THRESHOLD", 8),
	}
}

// withDefaults fills zero fields so a partially built Config still runs.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = d.LLMTimeout
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.SummaryRefreshThreshold <= 0 {
		c.SummaryRefreshThreshold = d.SummaryRefreshThreshold
	}
	return c
}

// getEnvStr returns an environment variable, or defaultVal if not set.
func getEnvStr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns an environment variable as int, or defaultVal if not set/invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvFloat returns an environment variable as float64, or defaultVal if not set/invalid.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
