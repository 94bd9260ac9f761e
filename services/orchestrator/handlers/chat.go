// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/codes"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

// defaultHistoryLimit caps history replies when the caller does not ask
// for a specific window.
const defaultHistoryLimit = 50

// HistoryData is the payload of the history endpoints.
type HistoryData struct {
	SessionID string                      `json:"session_id"`
	Messages  []conversation.HistoryEntry `json:"messages"`
	Count     int                         `json:"count"`
}

// Chat runs one conversation turn.
//
// # Description
//
// The request is bound and validated, the session is acquired (created on
// first contact, a blank session_id gets a fresh one), and the agent
// produces the reply. Agent-level trouble rides inside the response body
// with status 200: a turn that degraded still produced a reply the client
// should render. Only malformed requests fail the HTTP call.
func Chat(arena *sessions.Arena, advisor *agent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Chat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, chatBindFailure(err))
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, datatypes.Failure("Message cannot be empty"))
			return
		}

		userID := middleware.UserID(c, req.UserID)
		sess, sessionID := arena.Acquire(userID, req.SessionID)

		resp := advisor.Respond(ctx, sess, agent.Request{
			Message:  req.Message,
			Metadata: req.Context,
		})
		if resp.Error != "" {
			span.SetStatus(codes.Error, resp.Error)
			slog.Warn("Chat turn degraded",
				"session_id", sessionID,
				"user_id", userID,
				"error", resp.Error)
		}
		c.JSON(http.StatusOK, datatypes.Success(resp))
	}
}

// ChatHistory returns the stored history for the session named in the
// query string. session_id is required here; the path-parameter variant
// lives in SessionHistory.
func ChatHistory(arena *sessions.Arena) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "ChatHistory")
		defer span.End()

		var q datatypes.HistoryQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid history query", err))
			return
		}
		if q.SessionID == "" {
			c.JSON(http.StatusBadRequest, datatypes.Failure("session_id is required"))
			return
		}
		historyReply(c, arena, q.SessionID, q.Limit)
	}
}

// historyReply writes the history payload for sessionID, shared by the
// query-string and path-parameter endpoints.
func historyReply(c *gin.Context, arena *sessions.Arena, sessionID string, limit int) {
	sess, ok := arena.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, datatypes.Failure("session not found"))
		return
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	entries := []conversation.HistoryEntry{}
	if sess.Memory != nil {
		entries = sess.Memory.GetConversationHistory(limit)
	}
	c.JSON(http.StatusOK, datatypes.Success(HistoryData{
		SessionID: sessionID,
		Messages:  entries,
		Count:     len(entries),
	}))
}

// chatBindFailure maps a binding error to the wire message. A missing
// message keeps the exact wording clients match on.
func chatBindFailure(err error) datatypes.ErrorEnvelope {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Message" && fe.Tag() == "required" {
				return datatypes.Failure("Message cannot be empty")
			}
		}
	}
	return datatypes.FailureWithDetail("invalid request body", err)
}
