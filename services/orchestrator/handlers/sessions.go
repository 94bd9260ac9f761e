// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

// SessionListData is the payload of the session listing endpoint.
type SessionListData struct {
	Sessions []sessions.Info `json:"sessions"`
	Count    int             `json:"count"`
}

// ListSessions returns every live session, most recently active first.
func ListSessions(arena *sessions.Arena) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "ListSessions")
		defer span.End()

		list := arena.List()
		c.JSON(http.StatusOK, datatypes.Success(SessionListData{
			Sessions: list,
			Count:    len(list),
		}))
	}
}

// SessionHistory returns the stored history for the session in the path.
func SessionHistory(arena *sessions.Arena) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "SessionHistory")
		defer span.End()

		var q datatypes.HistoryQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid history query", err))
			return
		}
		historyReply(c, arena, c.Param("sessionId"), q.Limit)
	}
}

// SwitchSession acquires the named session, creating it when unknown. An
// empty or absent body starts a brand-new session.
func SwitchSession(arena *sessions.Arena) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "SwitchSession")
		defer span.End()

		var req datatypes.SwitchSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid request body", err))
			return
		}

		userID := middleware.UserID(c, req.UserID)
		_, existed := arena.Get(req.SessionID)
		sess, sessionID := arena.Acquire(userID, req.SessionID)

		owner := userID
		if sess.Memory != nil && sess.Memory.UserID() != "" {
			owner = sess.Memory.UserID()
		}
		slog.Info("Switched session",
			"session_id", sessionID,
			"user_id", owner,
			"created", !existed)
		c.JSON(http.StatusOK, datatypes.Success(datatypes.SwitchSessionData{
			SessionID: sessionID,
			UserID:    owner,
			Created:   !existed,
		}))
	}
}

// DeleteSession persists and drops the session in the path.
func DeleteSession(arena *sessions.Arena) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "DeleteSession")
		defer span.End()

		sessionID := c.Param("sessionId")
		if !arena.Remove(sessionID) {
			c.JSON(http.StatusNotFound, datatypes.Failure("session not found"))
			return
		}
		slog.Info("Deleted session", "session_id", sessionID)
		c.JSON(http.StatusOK, datatypes.Success(datatypes.DeleteSessionData{
			DeletedSessionID: sessionID,
		}))
	}
}

// ClearSession wipes the conversation of the session in the path while
// keeping the session itself alive.
func ClearSession(arena *sessions.Arena) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "ClearSession")
		defer span.End()

		sessionID := c.Param("sessionId")
		if !arena.Clear(sessionID) {
			c.JSON(http.StatusNotFound, datatypes.Failure("session not found"))
			return
		}
		slog.Info("Cleared session", "session_id", sessionID)
		c.JSON(http.StatusOK, datatypes.Success(datatypes.ClearSessionData{
			SessionID: sessionID,
			Cleared:   true,
		}))
	}
}
