// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

func newChatRouter(t *testing.T, reply string) (*gin.Engine, *sessions.Arena) {
	t.Helper()
	arena := newTestArena()
	router := newTestRouter(t)
	router.POST("/v1/chat", Chat(arena, newTestAdvisor(reply)))
	router.GET("/v1/chat/history", ChatHistory(arena))
	return router, arena
}

// turnData is the subset of the agent response the chat tests inspect.
type turnData struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

func TestChatServesTurn(t *testing.T) {
	router, arena := newChatRouter(t, "Warm ghee and a steady routine settle vata.")

	w, env := doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": "How do I settle vata?"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "success", env.Status)

	var turn turnData
	decodeData(t, env, &turn)
	assert.Equal(t, "Warm ghee and a steady routine settle vata.", turn.Response)
	assert.True(t, strings.HasPrefix(turn.SessionID, "sess_"), "session id %q", turn.SessionID)
	assert.Empty(t, turn.Error)
	assert.Equal(t, 1, arena.Len())
}

func TestChatReusesSession(t *testing.T) {
	router, arena := newChatRouter(t, "Favor warm, cooked meals.")

	_, env := doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": "What should I eat?"})
	var first turnData
	decodeData(t, env, &first)

	_, env = doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": "And for dinner?", "session_id": first.SessionID})
	var second turnData
	decodeData(t, env, &second)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, arena.Len())

	sess, ok := arena.Get(first.SessionID)
	require.True(t, ok)
	assert.Equal(t, 4, sess.Memory.Len())
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	router, _ := newChatRouter(t, "unused")

	for _, message := range []string{"", "   "} {
		w, env := doJSON(t, router, http.MethodPost, "/v1/chat",
			map[string]any{"message": message})

		require.Equal(t, http.StatusBadRequest, w.Code, "message %q", message)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "Message cannot be empty", env.Message)
	}
}

func TestChatRejectsMalformedBody(t *testing.T) {
	router, _ := newChatRouter(t, "unused")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestChatRejectsOversizedMessage(t *testing.T) {
	router, _ := newChatRouter(t, "unused")

	w, env := doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": strings.Repeat("a", 32769)})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", env.Message)
}

func TestChatReadsIdentityHeader(t *testing.T) {
	router, arena := newChatRouter(t, "Sleep before ten.")

	raw := `{"message": "When should I sleep?"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	list := arena.List()
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].UserID)
}

func TestChatHistoryReturnsTurns(t *testing.T) {
	router, _ := newChatRouter(t, "Triphala supports digestion.")

	_, env := doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": "What helps digestion?"})
	var turn turnData
	decodeData(t, env, &turn)

	w, env := doJSON(t, router, http.MethodGet, "/v1/chat/history?session_id="+turn.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history HistoryData
	decodeData(t, env, &history)
	assert.Equal(t, turn.SessionID, history.SessionID)
	require.Equal(t, 2, history.Count)
	assert.Equal(t, "human", history.Messages[0].Type)
	assert.Equal(t, "What helps digestion?", history.Messages[0].Content)
	assert.Equal(t, "ai", history.Messages[1].Type)
}

func TestChatHistoryHonorsLimit(t *testing.T) {
	router, _ := newChatRouter(t, "Noted.")

	_, env := doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": "first"})
	var turn turnData
	decodeData(t, env, &turn)
	doJSON(t, router, http.MethodPost, "/v1/chat",
		map[string]any{"message": "second", "session_id": turn.SessionID})

	_, env = doJSON(t, router, http.MethodGet,
		"/v1/chat/history?session_id="+turn.SessionID+"&limit=2", nil)

	var history HistoryData
	decodeData(t, env, &history)
	require.Equal(t, 2, history.Count)
	assert.Equal(t, "second", history.Messages[0].Content)
}

func TestChatHistoryRequiresSessionID(t *testing.T) {
	router, _ := newChatRouter(t, "unused")

	w, env := doJSON(t, router, http.MethodGet, "/v1/chat/history", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "session_id is required", env.Message)
}

func TestChatHistoryUnknownSession(t *testing.T) {
	router, _ := newChatRouter(t, "unused")

	w, env := doJSON(t, router, http.MethodGet, "/v1/chat/history?session_id=sess_missing", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session not found", env.Message)
}
