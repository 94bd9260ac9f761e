// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sessions keeps the live conversation sessions of the service.
//
// An Arena maps session ids to agent sessions and hands callers the
// same session for the same id until the session idles past its TTL.
// A background Cleaner sweeps the arena on a jittered interval and
// evicts expired sessions, persisting each one's memory before the
// entry is dropped.
package sessions

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/storage/snapshot"
)

// Config bounds the lifetime of idle sessions.
type Config struct {
	// TTL is how long a session may sit idle before eviction.
	TTL time.Duration

	// CleanupInterval is the base period between eviction sweeps. The
	// cleaner jitters each period by a few percent.
	CleanupInterval time.Duration
}

// DefaultConfig reads the session lifetime settings from the
// environment:
//
//	SESSION_TTL_HOURS                (default 24)
//	SESSION_CLEANUP_INTERVAL_MINUTES (default 60)
func DefaultConfig() Config {
	return Config{
		TTL:             time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CleanupInterval: time.Duration(getEnvInt("SESSION_CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}

// Factory builds the session for a (user, session id) pair that is not
// in the arena yet. Implementations choose the memory backend, the
// context window bounds, and any summarizer wiring.
type Factory func(userID, sessionID string) *agent.Session

// Info is one row of the session listing.
type Info struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
	MessageCount int       `json:"message_count"`
}

// CleanupError records a session the eviction sweep could not fully
// process. The sweep keeps going past individual failures.
type CleanupError struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// CleanupResult summarizes one eviction sweep.
type CleanupResult struct {
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	SessionsScanned int            `json:"sessions_scanned"`
	SessionsEvicted int            `json:"sessions_evicted"`
	Errors          []CleanupError `json:"errors,omitempty"`
}

// Duration reports how long the sweep took.
func (r CleanupResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// DurationMs reports the sweep duration in milliseconds.
func (r CleanupResult) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

// HasErrors reports whether any session failed during the sweep.
func (r CleanupResult) HasErrors() bool {
	return len(r.Errors) > 0
}

type entry struct {
	session    *agent.Session
	createdAt  time.Time
	lastActive time.Time
}

// Arena is the in-process registry of live sessions.
//
// All methods are safe for concurrent use. Individual sessions are not
// locked here; a single session is expected to serve one turn at a
// time.
type Arena struct {
	cfg     Config
	factory Factory
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewArena builds an arena. A nil factory gets a default that backs
// each session with its own in-memory snapshot store; metrics may be
// nil.
func NewArena(cfg Config, factory Factory, metrics *observability.Metrics) *Arena {
	if factory == nil {
		factory = defaultFactory
	}
	return &Arena{
		cfg:     cfg.withDefaults(),
		factory: factory,
		metrics: metrics,
		entries: make(map[string]*entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func defaultFactory(userID, sessionID string) *agent.Session {
	cfg := conversation.DefaultMemoryConfig()
	cfg.UserID = userID
	cfg.SessionID = sessionID
	mem := conversation.NewMemory(cfg, snapshot.NewMemoryStore(), nil, nil)
	return agent.NewSession(mem, nil)
}

// Acquire returns the session for sessionID, creating it if needed, and
// marks it active. A blank sessionID gets a freshly generated id. The
// returned id is the one the session is registered under.
func (a *Arena) Acquire(userID, sessionID string) (*agent.Session, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if sessionID == "" {
		sessionID = conversation.NewSessionID()
	}

	if e, ok := a.entries[sessionID]; ok {
		e.lastActive = a.now()
		a.recordEvent(observability.SessionResumed)
		return e.session, sessionID
	}

	sess := a.factory(userID, sessionID)
	now := a.now()
	a.entries[sessionID] = &entry{session: sess, createdAt: now, lastActive: now}
	a.recordEvent(observability.SessionCreated)
	a.updateGauge()
	slog.Info("Session created", "session_id", sessionID, "user_id", userID)
	return sess, sessionID
}

// Get returns the session for sessionID without creating or touching
// it.
func (a *Arena) Get(sessionID string) (*agent.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[sessionID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Clear empties the conversation of sessionID but keeps the session
// registered, so the caller can continue under the same id with a
// blank history.
func (a *Arena) Clear(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[sessionID]
	if !ok {
		return false
	}
	if e.session != nil {
		e.session.Reset()
	}
	e.lastActive = a.now()
	a.recordEvent(observability.SessionCleared)
	slog.Info("Session cleared", "session_id", sessionID)
	return true
}

// Remove drops sessionID from the arena immediately, persisting its
// memory first.
func (a *Arena) Remove(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[sessionID]
	if !ok {
		return false
	}
	a.evictLocked(sessionID, e)
	a.updateGauge()
	return true
}

// List returns one Info per live session, most recently active first.
func (a *Arena) List() []Info {
	a.mu.Lock()
	defer a.mu.Unlock()

	infos := make([]Info, 0, len(a.entries))
	for id, e := range a.entries {
		info := Info{
			SessionID:  id,
			CreatedAt:  e.createdAt,
			LastActive: e.lastActive,
		}
		if e.session != nil && e.session.Memory != nil {
			info.UserID = e.session.Memory.UserID()
			info.MessageCount = e.session.Memory.Len()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].LastActive.Equal(infos[j].LastActive) {
			return infos[i].SessionID < infos[j].SessionID
		}
		return infos[i].LastActive.After(infos[j].LastActive)
	})
	return infos
}

// Len reports the number of live sessions.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// TTL reports the current session time-to-live.
func (a *Arena) TTL() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.TTL
}

// SetTTL swaps the session time-to-live at runtime. The next eviction
// sweep uses the new value. Non-positive values are ignored.
func (a *Arena) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	a.mu.Lock()
	a.cfg.TTL = ttl
	a.mu.Unlock()
}

// EvictExpired removes every session idle longer than the TTL. Each
// evicted session's memory is persisted before its entry is dropped.
// Individual failures are collected in the result rather than aborting
// the sweep.
func (a *Arena) EvictExpired(ctx context.Context) CleanupResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := CleanupResult{StartTime: a.now()}
	cutoff := result.StartTime.Add(-a.cfg.TTL)

	for id, e := range a.entries {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, CleanupError{
				SessionID: id,
				Reason:    "sweep cancelled: " + err.Error(),
			})
			break
		}
		result.SessionsScanned++
		if e.lastActive.After(cutoff) {
			continue
		}
		if e.session == nil || e.session.Memory == nil {
			result.Errors = append(result.Errors, CleanupError{
				SessionID: id,
				Reason:    "no memory to persist",
			})
			delete(a.entries, id)
			continue
		}
		a.evictLocked(id, e)
		result.SessionsEvicted++
	}

	a.updateGauge()
	result.EndTime = a.now()
	return result
}

// evictLocked persists and drops one entry. Caller holds a.mu.
func (a *Arena) evictLocked(sessionID string, e *entry) {
	if e.session != nil && e.session.Memory != nil {
		e.session.Memory.Persist()
	}
	delete(a.entries, sessionID)
	a.recordEvent(observability.SessionEvicted)
	slog.Info("Session evicted", "session_id", sessionID, "last_active", e.lastActive)
}

func (a *Arena) recordEvent(event observability.SessionEvent) {
	if a.metrics != nil {
		a.metrics.RecordSessionEvent(event)
	}
}

// updateGauge pushes the live session count. Caller holds a.mu.
func (a *Arena) updateGauge() {
	if a.metrics != nil {
		a.metrics.SetActiveSessions(len(a.entries))
	}
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
