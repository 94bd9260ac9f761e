// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

func dialChatSocket(t *testing.T, reply string) (*websocket.Conn, *sessions.Arena) {
	t.Helper()
	arena := newTestArena()
	router := newTestRouter(t)
	router.GET("/v1/chat/ws", ChatSocket(arena, newTestAdvisor(reply)))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws, arena
}

func readEvent(t *testing.T, ws *websocket.Conn) socketEvent {
	t.Helper()
	var event socketEvent
	require.NoError(t, ws.ReadJSON(&event))
	return event
}

func TestChatSocketServesTurns(t *testing.T) {
	ws, arena := dialChatSocket(t, "Sip warm water through the day.")

	created := readEvent(t, ws)
	require.Equal(t, eventSessionCreated, created.Type)
	require.True(t, strings.HasPrefix(created.SessionID, "sess_"))
	assert.Equal(t, 1, arena.Len())

	require.NoError(t, ws.WriteJSON(socketRequest{Message: "How much water should I drink?"}))

	accepted := readEvent(t, ws)
	assert.Equal(t, eventTurnAccepted, accepted.Type)
	assert.Equal(t, created.SessionID, accepted.SessionID)

	answer := readEvent(t, ws)
	require.Equal(t, eventResponse, answer.Type)
	payload, ok := answer.Data.(map[string]any)
	require.True(t, ok, "response frame carries the turn payload")
	assert.Equal(t, "Sip warm water through the day.", payload["response"])
}

func TestChatSocketRejectsBlankMessage(t *testing.T) {
	ws, _ := dialChatSocket(t, "unused")
	readEvent(t, ws)

	require.NoError(t, ws.WriteJSON(socketRequest{Message: "   "}))

	event := readEvent(t, ws)
	assert.Equal(t, eventError, event.Type)
	assert.Equal(t, "Message cannot be empty", event.Message)
}

func TestChatSocketSwitchAndClear(t *testing.T) {
	ws, arena := dialChatSocket(t, "Rest is the best medicine.")

	created := readEvent(t, ws)

	require.NoError(t, ws.WriteJSON(socketRequest{
		Action:    actionSwitchSession,
		SessionID: "sess_evening",
	}))
	switched := readEvent(t, ws)
	require.Equal(t, eventSessionSwitched, switched.Type)
	assert.Equal(t, "sess_evening", switched.SessionID)
	assert.NotEqual(t, created.SessionID, switched.SessionID)
	assert.Equal(t, 2, arena.Len())

	require.NoError(t, ws.WriteJSON(socketRequest{Message: "Evening routine?"}))
	readEvent(t, ws) // turn_accepted
	readEvent(t, ws) // response

	sess, ok := arena.Get("sess_evening")
	require.True(t, ok)
	require.Equal(t, 2, sess.Memory.Len())

	require.NoError(t, ws.WriteJSON(socketRequest{Action: actionClearSession}))
	cleared := readEvent(t, ws)
	require.Equal(t, eventSessionCleared, cleared.Type)
	assert.Equal(t, "sess_evening", cleared.SessionID)
	assert.Equal(t, 0, sess.Memory.Len())
}

func TestChatSocketUnknownAction(t *testing.T) {
	ws, _ := dialChatSocket(t, "unused")
	readEvent(t, ws)

	require.NoError(t, ws.WriteJSON(socketRequest{Action: "teleport"}))

	event := readEvent(t, ws)
	assert.Equal(t, eventError, event.Type)
	assert.Contains(t, event.Message, "unknown action")
}

func TestChatSocketResumesNamedSession(t *testing.T) {
	arena := newTestArena()
	arena.Acquire("alice", "sess_resume")
	router := newTestRouter(t)
	router.GET("/v1/chat/ws", ChatSocket(arena, newTestAdvisor("Welcome back.")))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws?session_id=sess_resume"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })

	created := readEvent(t, ws)
	assert.Equal(t, "sess_resume", created.SessionID)
	assert.Equal(t, 1, arena.Len())
}
