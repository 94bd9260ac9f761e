// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checks belong to the gateway in front of this service.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server frame types and client actions of the chat socket.
const (
	eventSessionCreated  = "session_created"
	eventSessionSwitched = "session_switched"
	eventSessionCleared  = "session_cleared"
	eventTurnAccepted    = "turn_accepted"
	eventResponse        = "response"
	eventError           = "error"

	actionSwitchSession = "switch_session"
	actionClearSession  = "clear_session"
)

// socketRequest is one client frame. A frame without an action is a chat
// message.
type socketRequest struct {
	Action    string         `json:"action,omitempty"`
	Message   string         `json:"message,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// socketEvent is one server frame.
type socketEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// ChatSocket serves the bidirectional chat channel.
//
// # Description
//
// On connect the socket binds to a session (session_id query parameter,
// blank for a fresh one) and announces it with a session_created frame.
// Each chat frame is acknowledged with turn_accepted before the agent
// runs, so clients can show progress during slow model calls, and
// answered with a response frame carrying the full turn payload.
// switch_session and clear_session actions manage the bound session
// without reconnecting.
func ChatSocket(arena *sessions.Arena, advisor *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		userID := middleware.UserID(c, c.Query("user_id"))
		sess, sessionID := arena.Acquire(userID, c.Query("session_id"))
		sendEvent(ws, socketEvent{Type: eventSessionCreated, SessionID: sessionID})

		for {
			var req socketRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("WebSocket closed", "session_id", sessionID, "error", err)
				return
			}

			switch req.Action {
			case actionSwitchSession:
				if req.UserID != "" {
					userID = req.UserID
				}
				sess, sessionID = arena.Acquire(userID, req.SessionID)
				sendEvent(ws, socketEvent{Type: eventSessionSwitched, SessionID: sessionID})

			case actionClearSession:
				arena.Clear(sessionID)
				sendEvent(ws, socketEvent{Type: eventSessionCleared, SessionID: sessionID})

			case "":
				if strings.TrimSpace(req.Message) == "" {
					sendEvent(ws, socketEvent{
						Type:      eventError,
						SessionID: sessionID,
						Message:   "Message cannot be empty",
					})
					continue
				}
				ctx, span := tracer.Start(c.Request.Context(), "ChatSocketTurn")
				sendEvent(ws, socketEvent{Type: eventTurnAccepted, SessionID: sessionID})
				resp := advisor.Respond(ctx, sess, agent.Request{
					Message:  req.Message,
					Metadata: req.Context,
				})
				span.End()
				sendEvent(ws, socketEvent{Type: eventResponse, SessionID: sessionID, Data: resp})

			default:
				sendEvent(ws, socketEvent{
					Type:      eventError,
					SessionID: sessionID,
					Message:   "unknown action: " + req.Action,
				})
			}
		}
	}
}

// sendEvent writes one frame. Failures only log; the read loop notices a
// dead connection on its next read.
func sendEvent(ws *websocket.Conn, event socketEvent) {
	if err := ws.WriteJSON(event); err != nil {
		slog.Warn("Failed to write a websocket frame", "type", event.Type, "error", err)
	}
}
