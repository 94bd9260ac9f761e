// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation maintains per-session dialogue state.
//
// # Description
//
// The package has three collaborating pieces:
//
//   - ContextManager keeps a bounded window of turns for one session and
//     answers "what should the model see next" queries. It prunes by message
//     count and by token budget while protecting system turns and the most
//     recent turns.
//   - Summarizer compresses long histories into a single assistant turn via
//     one LLM call, so that pruning does not have to discard content outright.
//   - Memory wraps the turn list with metadata tagging, JSON snapshotting
//     through a SnapshotStore, and session switching.
//
// One ContextManager and one Memory exist per session. Neither is safe for
// concurrent use; the session arena serializes access per session.
package conversation

import (
	"os"
	"strconv"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem marks instruction turns that must survive pruning.
	RoleSystem Role = "system"

	// RoleUser marks turns authored by the human.
	RoleUser Role = "user"

	// RoleAssistant marks turns authored by the model, including
	// synthesized summary turns.
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
//
// # Description
//
// Turns are value types created once and never mutated afterwards. Ordering
// is insertion order within a session. TokenCount is computed at insertion
// time with the session's token counter so pruning never has to re-encode
// old content.
//
// # JSON Serialization
//
//	{
//	    "role": "user",
//	    "content": "What should I eat in winter?",
//	    "timestamp": "2025-11-02T10:15:04Z",
//	    "token_count": 7
//	}
type Turn struct {
	// Role is the author of the turn.
	Role Role `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is when the turn was recorded, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// TokenCount is the token cost of Content as measured at insertion.
	TokenCount int `json:"token_count"`

	// ToolCalls lists the tool requests made while producing this turn.
	// Only assistant turns carry these.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// ToolResults lists the outcomes of ToolCalls, in call order.
	ToolResults []ToolResultRecord `json:"tool_results,omitempty"`

	// IsSummary is true for synthesized turns that replace a span of
	// older turns, and for the synthetic summary turn emitted by
	// ContextManager.GetContext.
	IsSummary bool `json:"is_summary,omitempty"`

	// Metadata carries free-form extras supplied at insertion. Summary
	// turns use it for provenance (original message count, summary token
	// cost, error details on degraded summaries).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolCallRecord is one tool request captured in a turn's trace.
type ToolCallRecord struct {
	// Tool is the registered tool name.
	Tool string `json:"tool"`

	// Input is the raw input string handed to the tool.
	Input string `json:"input,omitempty"`
}

// ToolResultRecord is the outcome of one tool call.
type ToolResultRecord struct {
	// Tool is the registered tool name.
	Tool string `json:"tool"`

	// Output is the tool's textual result. Empty when the call failed.
	Output string `json:"output,omitempty"`

	// Error holds the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// Success reports whether the call completed without error.
	Success bool `json:"success"`

	// ResponseTime is the wall-clock duration of the call in seconds.
	ResponseTime float64 `json:"response_time_seconds,omitempty"`
}

// MessageMetadata is the per-message record Memory keeps alongside each
// stored message.
//
// # Description
//
// Every stored message has exactly one MessageMetadata at the same index.
// Code paths that append a message without appending metadata, or prune one
// list without the other, break that invariant and are bugs.
type MessageMetadata struct {
	// Timestamp is when the message was recorded, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// MessageID is a unique id for the message.
	MessageID string `json:"message_id"`

	// ToolCalls is the tool trace attached to an assistant message.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// ToolResults is the tool outcome trace attached to an assistant
	// message.
	ToolResults []ToolResultRecord `json:"tool_results,omitempty"`

	// UserID identifies the user the session belongs to.
	UserID string `json:"user_id,omitempty"`

	// SessionID identifies the session the message belongs to.
	SessionID string `json:"session_id,omitempty"`

	// Custom carries free-form tags, at minimum a "role" entry of
	// "human" or "ai".
	Custom map[string]any `json:"custom_metadata,omitempty"`
}

// Stored message type tags used in snapshots. Unrecognized tags load as
// MessageTypeGeneric rather than failing.
const (
	MessageTypeHuman   = "human"
	MessageTypeAI      = "ai"
	MessageTypeSystem  = "system"
	MessageTypeGeneric = "generic"
)

// StoredMessage is the snapshot wire form of one message.
//
// # JSON Serialization
//
//	{
//	    "type": "ai",
//	    "content": "Warm soups suit vata season.",
//	    "additional_kwargs": {"is_summary": true}
//	}
type StoredMessage struct {
	// Type is one of the MessageType constants.
	Type string `json:"type"`

	// Content is the message text.
	Content string `json:"content"`

	// AdditionalKwargs carries summary provenance and other extras that
	// must round-trip through the snapshot.
	AdditionalKwargs map[string]any `json:"additional_kwargs,omitempty"`
}

// historySnapshot is the on-disk layout of one session's history. Messages
// and Metadata are parallel lists of equal length.
type historySnapshot struct {
	Messages []StoredMessage   `json:"messages"`
	Metadata []MessageMetadata `json:"metadata"`
}

// ContextConfig bounds the context window kept by a ContextManager.
type ContextConfig struct {
	// MaxTokens is the token budget over all retained turns.
	// Default: 4000
	MaxTokens int

	// MaxMessages is the maximum number of turns kept in history.
	// Default: 20
	MaxMessages int

	// MinRecentMessages is how many of the newest turns are always kept,
	// whatever the budgets say. Default: 3
	MinRecentMessages int
}

// DefaultContextConfig returns the default context window bounds.
//
// # Description
//
// Values can be overridden via environment variables:
//   - CONTEXT_MAX_TOKENS (default: 4000)
//   - CONTEXT_MAX_MESSAGES (default: 20)
//   - CONTEXT_MIN_RECENT_MESSAGES (default: 3)
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		MaxTokens:         getEnvInt("CONTEXT_MAX_TOKENS", 4000),
		MaxMessages:       getEnvInt("CONTEXT_MAX_MESSAGES", 20),
		MinRecentMessages: getEnvInt("CONTEXT_MIN_RECENT_MESSAGES", 3),
	}
}

// SummarizerConfig controls when and how histories are compressed.
type SummarizerConfig struct {
	// MaxTokens is the token budget the threshold is measured against.
	// Default: 4000
	MaxTokens int

	// SummaryThreshold is the fraction of MaxTokens at which
	// summarization triggers. Default: 0.7
	SummaryThreshold float64

	// ChunkSize is the number of turns summarized per LLM call.
	// Default: 10
	ChunkSize int

	// RequestTimeout bounds each summary LLM call when the caller's
	// context has no deadline of its own. Default: 30s
	RequestTimeout time.Duration

	// Prompt overrides the built-in instruction template. It must
	// contain exactly one %s placeholder for the serialized
	// conversation. Empty selects the default template.
	Prompt string
}

// DefaultSummarizerConfig returns the default summarization thresholds.
//
// # Description
//
// Values can be overridden via environment variables:
//   - SUMMARY_MAX_TOKENS (default: 4000)
//   - SUMMARY_THRESHOLD (default: 0.7)
//   - SUMMARY_CHUNK_SIZE (default: 10)
//   - SUMMARY_REQUEST_TIMEOUT_SECONDS (default: 30)
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		MaxTokens:        getEnvInt("SUMMARY_MAX_TOKENS", 4000),
		SummaryThreshold: getEnvFloat("SUMMARY_THRESHOLD", 0.7),
		ChunkSize:        getEnvInt("SUMMARY_CHUNK_SIZE", 10),
		RequestTimeout:   time.Duration(getEnvInt("SUMMARY_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// MemoryConfig configures one Memory instance.
type MemoryConfig struct {
	// UserID is the owning user. Default: "default_user"
	UserID string

	// SessionID is the owning session. Empty generates a fresh id.
	SessionID string

	// MaxMessages is the maximum number of stored messages.
	// Default: 20
	MaxMessages int

	// MaxTokens is the token budget over stored messages. Zero disables
	// token-based pruning. Default: 4000
	MaxTokens int

	// EnableSummarization turns the summarization pass in SaveContext on
	// or off. Default: true
	EnableSummarization bool
}

// DefaultMemoryConfig returns the default memory bounds.
//
// # Description
//
// Values can be overridden via environment variables:
//   - MEMORY_MAX_MESSAGES (default: 20)
//   - MEMORY_MAX_TOKENS (default: 4000)
//   - MEMORY_ENABLE_SUMMARIZATION (default: true)
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		UserID:              "default_user",
		MaxMessages:         getEnvInt("MEMORY_MAX_MESSAGES", 20),
		MaxTokens:           getEnvInt("MEMORY_MAX_TOKENS", 4000),
		EnableSummarization: getEnvBool("MEMORY_ENABLE_SUMMARIZATION", true),
	}
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

// getEnvBool returns an environment variable as bool, or defaultVal if not set/invalid.
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
