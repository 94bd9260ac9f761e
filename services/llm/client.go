// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm defines the completion-client contract the orchestrator
// depends on, plus the provider implementations.
//
// Two call shapes are supported, matching the two consumers:
//
//   - Generate: plain prompt in, text out. Used by the conversation
//     summarizer, which builds its own prompt string.
//   - Chat: structured message list in, content plus proposed tool calls
//     out. Used by the agent loop.
//
// Implementations must honor ctx cancellation and apply their own request
// timeout when the context carries no deadline.
package llm

import (
	"context"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one chat turn in provider-neutral form.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls carries the calls an assistant message proposed.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a RoleTool result back to the proposing call.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name on RoleTool results.
	Name string `json:"name,omitempty"`
}

// ToolCall is a single function invocation proposed by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a callable tool to the model. Parameters is a
// JSON-schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// GenerationParams tunes a single request. Nil pointer fields fall back to
// the provider's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`

	// Tools, when non-empty, enables tool calling for Chat requests.
	Tools []ToolDefinition `json:"tools,omitempty"`

	// RequestTimeout bounds the call when ctx has no deadline.
	// Zero means the client's configured default.
	RequestTimeout time.Duration `json:"-"`
}

// ChatResult is the model's reply to a Chat call. Content may be empty when
// the model chose to call tools instead of answering.
type ChatResult struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// Client is the standard interface for any LLM backend.
type Client interface {
	// Generate sends a plain prompt and returns the completion text.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat sends a structured message list and returns content plus any
	// proposed tool calls.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (*ChatResult, error)
}

// Embedder produces fixed-length vectors for retrieval. Implementations
// must be deterministic for identical input, since downstream fusion
// de-duplicates on result identity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Float32Ptr, IntPtr: small helpers for building GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }
func IntPtr(v int) *int             { return &v }
