// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// LocalLlamaCppClient talks to a llama.cpp server's native completion
// endpoint, for fully offline deployments.
//
// The completion API has no tool-call support, so Chat renders the
// message list as a plain transcript and never returns tool calls; the
// agent answers directly on this backend.
type LocalLlamaCppClient struct {
	httpClient *http.Client
	baseURL    string
}

var _ Client = (*LocalLlamaCppClient)(nil)

type llamaCppRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type llamaCppResponse struct {
	Content string `json:"content"`
}

// NewLocalLlamaCppClient builds a client from LLM_SERVICE_URL_BASE.
func NewLocalLlamaCppClient() (*LocalLlamaCppClient, error) {
	baseURL := os.Getenv("LLM_SERVICE_URL_BASE")
	if baseURL == "" {
		return nil, fmt.Errorf("LLM_SERVICE_URL_BASE environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing llama.cpp client", "base_url", baseURL)
	return &LocalLlamaCppClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
	}, nil
}

// Generate implements Client via the native /completion endpoint.
func (l *LocalLlamaCppClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return l.complete(ctx, prompt, params, nil)
}

// Chat implements Client. The reply never carries tool calls.
func (l *LocalLlamaCppClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (*ChatResult, error) {
	if len(params.Tools) > 0 {
		slog.Debug("llama.cpp backend ignores tool definitions", "tools", len(params.Tools))
	}

	content, err := l.complete(ctx, renderTranscript(messages), params, []string{"\nUser:", "\nSystem:"})
	if err != nil {
		return nil, err
	}
	return &ChatResult{Content: strings.TrimSpace(content), FinishReason: "stop"}, nil
}

func (l *LocalLlamaCppClient) complete(ctx context.Context, prompt string, params GenerationParams, stop []string) (string, error) {
	payload := llamaCppRequest{
		Prompt:      prompt,
		NPredict:    512,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stop:        params.Stop,
	}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
	}
	if len(payload.Stop) == 0 {
		payload.Stop = stop
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal llama.cpp request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/completion", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create llama.cpp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		slog.Error("llama.cpp call failed", "error", err)
		return "", fmt.Errorf("llama.cpp call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read llama.cpp response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama.cpp failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed llamaCppResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse llama.cpp response: %w", err)
	}
	return parsed.Content, nil
}

// renderTranscript flattens a chat into the plain-text form the
// completion endpoint expects, ending on the assistant cue.
func renderTranscript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			b.WriteString("System: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		case RoleTool:
			b.WriteString("Tool result: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}
