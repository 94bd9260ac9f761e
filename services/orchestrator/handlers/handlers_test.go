// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

// cannedLLM answers every prompt with a fixed reply.
type cannedLLM struct {
	reply string
	err   error
}

func (c *cannedLLM) Generate(context.Context, string, llm.GenerationParams) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *cannedLLM) Chat(context.Context, []llm.Message, llm.GenerationParams) (*llm.ChatResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResult{Content: c.reply, FinishReason: "stop"}, nil
}

func newTestArena() *sessions.Arena {
	return sessions.NewArena(sessions.Config{}, nil, nil)
}

func newTestAdvisor(reply string) *agent.Agent {
	return agent.New(agent.Config{}, agent.Deps{Client: &cannedLLM{reply: reply}})
}

// newTestRouter builds a bare engine with the identity middleware and the
// custom binding validators registered, matching production wiring.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		require.NoError(t, datatypes.RegisterValidators(v))
	}
	router := gin.New()
	router.Use(middleware.Identity())
	return router
}

// envelope is the combined wire shape for decoding both success and
// error responses.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

// doJSON runs one request against router, optionally with a JSON body,
// and decodes the reply envelope.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

// decodeData unmarshals the envelope's data payload into out.
func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NotEmpty(t, env.Data, "envelope has no data")
	require.NoError(t, json.Unmarshal(env.Data, out))
}
