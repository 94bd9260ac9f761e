// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import "time"

// UserSession is the raw per-user state.
type UserSession struct {
	UserID              string              `json:"user_id"`
	FirstSeen           time.Time           `json:"first_seen"`
	LastSeen            time.Time           `json:"last_seen"`
	ToolUsage           map[string]int64    `json:"tool_usage"`
	SessionCount        int                 `json:"session_count"`
	CurrentSessionStart time.Time           `json:"current_session_start"`
	ViewedArticles      map[string]struct{} `json:"viewed_articles,omitempty"`
}

// UserEngagement is the derived per-user report.
type UserEngagement struct {
	UserID                 string           `json:"user_id"`
	FirstSeen              time.Time        `json:"first_seen"`
	LastSeen               time.Time        `json:"last_seen"`
	TotalSessions          int              `json:"total_sessions"`
	CurrentSessionDuration float64          `json:"current_session_duration_seconds"`
	ToolUsage              map[string]int64 `json:"tool_usage"`
	FavoriteTool           string           `json:"favorite_tool"`
}

// GetUserEngagement returns the engagement report for one user. Users whose
// last activity falls outside the window report false, as do unknown users.
// A days value of zero or less means the default 30-day window.
func (t *Tracker) GetUserEngagement(userID string, days int) (UserEngagement, bool) {
	if days <= 0 {
		days = 30
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.users[userID]
	if !ok {
		return UserEngagement{}, false
	}
	cutoff := t.now().AddDate(0, 0, -days)
	if sess.LastSeen.Before(cutoff) {
		return UserEngagement{}, false
	}
	return t.buildEngagement(sess), true
}

// AllUserEngagement returns the engagement report for every user active
// inside the window.
func (t *Tracker) AllUserEngagement(days int) map[string]UserEngagement {
	if days <= 0 {
		days = 30
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().AddDate(0, 0, -days)
	out := make(map[string]UserEngagement)
	for id, sess := range t.users {
		if sess.LastSeen.Before(cutoff) {
			continue
		}
		out[id] = t.buildEngagement(sess)
	}
	return out
}

// buildEngagement derives the report from a session record. Caller holds
// the mutex.
func (t *Tracker) buildEngagement(sess *UserSession) UserEngagement {
	eng := UserEngagement{
		UserID:        sess.UserID,
		FirstSeen:     sess.FirstSeen,
		LastSeen:      sess.LastSeen,
		TotalSessions: sess.SessionCount + 1,
		ToolUsage:     make(map[string]int64, len(sess.ToolUsage)),
	}
	if !sess.CurrentSessionStart.IsZero() {
		eng.CurrentSessionDuration = t.now().Sub(sess.CurrentSessionStart).Seconds()
	}

	// Favorite tool is the highest usage count; ties break on the
	// lexicographically smaller name so reports are stable.
	var bestCount int64
	for tool, count := range sess.ToolUsage {
		eng.ToolUsage[tool] = count
		switch {
		case count > bestCount:
			bestCount = count
			eng.FavoriteTool = tool
		case count == bestCount && (eng.FavoriteTool == "" || tool < eng.FavoriteTool):
			eng.FavoriteTool = tool
		}
	}
	return eng
}
