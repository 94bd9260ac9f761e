// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Anindya-Paul07/Ayurveda/pkg/secrets"
)

const (
	defaultChatModel      = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"

	// defaultRequestTimeout guards every provider call; a stuck upstream
	// must not block a turn indefinitely.
	defaultRequestTimeout = 30 * time.Second

	openaiSecretFile = "/run/secrets/openai_api_key"
)

// OpenAIClient talks to the OpenAI chat-completions and embeddings APIs.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	requestTimeout time.Duration
}

// Compile-time interface checks.
var (
	_ Client   = (*OpenAIClient)(nil)
	_ Embedder = (*OpenAIClient)(nil)
)

// NewOpenAIClient builds a client from the environment.
//
// The API key comes from OPENAI_API_KEY or the container secret file; the
// chat model from OPENAI_MODEL (default gpt-4o-mini); the embedding model
// from EMBEDDING_MODEL_NAME (default text-embedding-3-small).
func NewOpenAIClient() (*OpenAIClient, error) {
	key, err := secrets.Load("OPENAI_API_KEY", openaiSecretFile)
	if err != nil {
		slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", openaiSecretFile)
		return nil, fmt.Errorf("OPENAI_API_KEY not configured: %w", err)
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultChatModel
		slog.Warn("OPENAI_MODEL not set, defaulting", "model", model)
	}
	embeddingModel := os.Getenv("EMBEDDING_MODEL_NAME")
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	cfg := openai.DefaultConfig(key.Reveal())
	cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	slog.Info("Initializing OpenAI client", "model", model, "embedding_model", embeddingModel)
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		embeddingModel: embeddingModel,
		requestTimeout: defaultRequestTimeout,
	}, nil
}

// Generate implements Client. The prompt becomes a single user message
// under the configured system persona.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	messages := []Message{{Role: RoleUser, Content: prompt}}
	if persona := os.Getenv("SYSTEM_ROLE_PROMPT_PERSONA"); persona != "" {
		messages = append([]Message{{Role: RoleSystem, Content: persona}}, messages...)
	}

	result, err := o.Chat(ctx, messages, params)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// Chat implements Client.
func (o *OpenAIClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (*ChatResult, error) {
	ctx, cancel := o.withTimeout(ctx, params.RequestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(messages),
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	for _, def := range params.Tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	result := &ChatResult{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

// Embed implements Embedder.
func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements Embedder.
func (o *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := o.withTimeout(ctx, 0)
	defer cancel()

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// withTimeout applies the per-request guard only when the caller brought no
// deadline of its own.
func (o *OpenAIClient) withTimeout(ctx context.Context, override time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := o.requestTimeout
	if override > 0 {
		timeout = override
	}
	return context.WithTimeout(ctx, timeout)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, converted)
	}
	return out
}
