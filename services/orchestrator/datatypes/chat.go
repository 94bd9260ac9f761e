// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// MaxMessageBytes caps a single chat message so an oversized payload
// cannot exhaust the context window or the snapshot store.
const MaxMessageBytes = 32 * 1024

// ChatRequest is the body of POST /v1/chat.
//
// # Fields
//
//   - Message: Required. The user's text, up to 32KB.
//   - SessionID: Optional. A blank id starts a fresh session; the
//     response echoes the id the turn actually ran against.
//   - UserID: Optional. Falls back to the X-User-ID header, then to
//     the default user.
//   - Context: Optional free-form metadata stored on the user's turn.
type ChatRequest struct {
	Message   string         `json:"message" binding:"required,max=32768"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Context   map[string]any `json:"context"`
}

// HistoryQuery holds the query parameters of the history endpoints.
type HistoryQuery struct {
	SessionID string `form:"session_id"`
	Limit     int    `form:"limit" binding:"omitempty,gte=1,lte=500"`
}

// SwitchSessionRequest is the body of POST /v1/sessions/switch. A blank
// SessionID asks for a brand new session.
type SwitchSessionRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SwitchSessionData reports the session the caller is now on.
type SwitchSessionData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Created   bool   `json:"created"`
}

// DeleteSessionData confirms a removal.
type DeleteSessionData struct {
	DeletedSessionID string `json:"deleted_session_id"`
}

// ClearSessionData confirms a history wipe.
type ClearSessionData struct {
	SessionID string `json:"session_id"`
	Cleared   bool   `json:"cleared"`
}
