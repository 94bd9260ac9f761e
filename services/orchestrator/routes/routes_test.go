// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedLLM struct{}

func (fixedLLM) Generate(context.Context, string, llm.GenerationParams) (string, error) {
	return "fixed", nil
}

func (fixedLLM) Chat(context.Context, []llm.Message, llm.GenerationParams) (*llm.ChatResult, error) {
	return &llm.ChatResult{Content: "fixed", FinishReason: "stop"}, nil
}

func minimalDeps() Deps {
	return Deps{
		Arena:      sessions.NewArena(sessions.Config{}, nil, nil),
		Advisor:    agent.New(agent.Config{}, agent.Deps{Client: fixedLLM{}}),
		Tracker:    tracker.New(tracker.Config{}, nil),
		Calculator: dosha.NewCalculator(),
		Symptoms:   dosha.NewSymptomAnalyzer(),
		Version:    "test",
		Started:    time.Now(),
		Components: map[string]string{"llm": "fixed"},
	}
}

func TestSetupRegistersFullSurface(t *testing.T) {
	router := gin.New()
	Setup(router, minimalDeps())

	expected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/metrics"},
		{http.MethodPost, "/v1/chat"},
		{http.MethodGet, "/v1/chat/history"},
		{http.MethodGet, "/v1/chat/ws"},
		{http.MethodGet, "/v1/sessions"},
		{http.MethodPost, "/v1/sessions"},
		{http.MethodGet, "/v1/sessions/:sessionId/history"},
		{http.MethodDelete, "/v1/sessions/:sessionId"},
		{http.MethodPost, "/v1/sessions/:sessionId/clear"},
		{http.MethodPost, "/v1/dosha/quiz"},
		{http.MethodGet, "/v1/dosha/questions"},
		{http.MethodPost, "/v1/dosha/analyze-symptoms"},
		{http.MethodGet, "/v1/recommendations"},
		{http.MethodPost, "/v1/recommendations/herbs"},
		{http.MethodGet, "/v1/recommendations/articles"},
		{http.MethodPost, "/v1/articles"},
		{http.MethodGet, "/v1/articles"},
		{http.MethodPost, "/v1/articles/:articleId/interactions"},
		{http.MethodGet, "/v1/analytics/tools"},
		{http.MethodGet, "/v1/analytics/tools/:tool"},
		{http.MethodGet, "/v1/analytics/articles"},
		{http.MethodGet, "/v1/analytics/articles/:articleId"},
		{http.MethodGet, "/v1/analytics/engagement"},
		{http.MethodGet, "/v1/analytics/engagement/:userId"},
	}

	registered := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range registered {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.True(t, found, "route %s %s must be registered", want.method, want.path)
	}
}

func TestSetupHealthAndMetricsServe(t *testing.T) {
	router := gin.New()
	Setup(router, minimalDeps())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ayurveda-orchestrator", health.Service)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSetupRegistersCustomValidators(t *testing.T) {
	router := gin.New()
	Setup(router, minimalDeps())

	// An unknown dosha must be rejected by the binding layer, proving
	// the custom validators reached gin's shared validator.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/recommendations?dosha=fire", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetupOptionalComponentsAnswer503(t *testing.T) {
	deps := minimalDeps()
	deps.Tracker = nil
	router := gin.New()
	Setup(router, deps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/analytics/tools", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/articles?query=herbs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSetupChatFlow(t *testing.T) {
	router := gin.New()
	Setup(router, minimalDeps())

	body := strings.NewReader(`{"message": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}
