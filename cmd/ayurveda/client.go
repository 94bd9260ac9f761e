// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/handlers"
)

// defaultServerURL is where client commands look for the orchestrator
// when AYURVEDA_SERVER_URL is not set.
const defaultServerURL = "http://localhost:8080"

// serverBaseURL resolves the orchestrator address for client commands.
func serverBaseURL() string {
	if url := strings.TrimSpace(os.Getenv("AYURVEDA_SERVER_URL")); url != "" {
		return strings.TrimRight(url, "/")
	}
	return defaultServerURL
}

// apiEnvelope mirrors the server's response envelope with the payload
// left raw so each call site can decode its own data shape.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// apiClient is a thin typed client over the orchestrator HTTP API.
type apiClient struct {
	baseURL string
	httpc   *http.Client
}

// newAPIClient builds a client for baseURL. The generous timeout covers
// chat turns, which block on the model.
func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
}

// call performs one request and decodes the envelope, enforcing the
// status field so callers only see fulfilled responses.
func (c *apiClient) call(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("is the orchestrator running at %s? %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("server returned %s with an unreadable body", resp.Status)
	}
	if envelope.Status != datatypes.StatusSuccess {
		if envelope.Message != "" {
			return fmt.Errorf("%s", envelope.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response payload: %w", err)
		}
	}
	return nil
}

// Chat runs one conversation turn.
func (c *apiClient) Chat(ctx context.Context, req datatypes.ChatRequest) (agent.Response, error) {
	var resp agent.Response
	if err := c.call(ctx, http.MethodPost, "/v1/chat", req, &resp); err != nil {
		return agent.Response{}, err
	}
	return resp, nil
}

// ListSessions fetches the live sessions, most recently active first.
func (c *apiClient) ListSessions(ctx context.Context) (handlers.SessionListData, error) {
	var data handlers.SessionListData
	if err := c.call(ctx, http.MethodGet, "/v1/sessions", nil, &data); err != nil {
		return handlers.SessionListData{}, err
	}
	return data, nil
}

// DeleteSession drops one session.
func (c *apiClient) DeleteSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, http.MethodDelete, "/v1/sessions/"+sessionID, nil, nil)
}
