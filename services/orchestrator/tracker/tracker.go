// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tracker records tool-usage analytics for the advice pipeline.
//
// # Description
//
// A Tracker aggregates, per tool: invocation and error counters, a bounded
// window of response-time samples, the set of distinct users, and a bounded
// "frequently used with" set derived from each user's previous tool. Per
// user it keeps a session record with first/last seen times and per-tool
// usage counts. Article interactions routed through the article_recommender
// tool additionally feed per-article view/like/share/save metrics and a
// popularity score used for recommendations.
//
// All state lives in memory behind one mutex and is periodically flushed to
// a snapshot.Store as JSON. Persistence failures are logged and never
// propagate to callers; analytics must not break the chat path.
package tracker

import (
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/storage/snapshot"
)

// ToolArticleRecommender is the tool name whose invocations carry article
// interaction metadata.
const ToolArticleRecommender = "article_recommender"

// Config bounds the tracker's in-memory state and names its snapshot.
type Config struct {
	// SnapshotName is the snapshot.Store key the tracker persists under.
	SnapshotName string

	// MaxResponseSamples caps the per-tool response-time window. Older
	// samples are discarded first.
	MaxResponseSamples int

	// CoOccurrenceLimit caps the per-tool "frequently used with" set.
	CoOccurrenceLimit int

	// FlushInterval is the period of the background snapshot flush.
	FlushInterval time.Duration
}

// DefaultConfig reads tracker settings from the environment.
func DefaultConfig() Config {
	return Config{
		SnapshotName:       getEnvString("TRACKER_SNAPSHOT_NAME", "tool_usage.json"),
		MaxResponseSamples: getEnvInt("TRACKER_MAX_RESPONSE_SAMPLES", 1000),
		CoOccurrenceLimit:  getEnvInt("TRACKER_CO_OCCURRENCE_LIMIT", 10),
		FlushInterval:      time.Duration(getEnvInt("TRACKER_FLUSH_INTERVAL_SECONDS", 300)) * time.Second,
	}
}

// Invocation describes one tool call to be recorded.
//
// Success reports whether the call produced a usable result. Error is only
// counted when Success is false and Error is non-empty; a failed call with
// no error text increments invocations but not errors. ResponseTime is in
// seconds and is sampled only when non-nil.
type Invocation struct {
	Tool         string
	UserID       string
	Success      bool
	Error        string
	ResponseTime *float64
	Metadata     map[string]any
}

// Float64 returns a pointer to v, for optional Invocation fields.
func Float64(v float64) *float64 { return &v }

// ToolMetrics is the derived per-tool report.
type ToolMetrics struct {
	Invocations        int64     `json:"invocations"`
	Errors             int64     `json:"errors"`
	ErrorRate          float64   `json:"error_rate"`
	AvgResponseTime    float64   `json:"avg_response_time"`
	P95ResponseTime    float64   `json:"p95_response_time"`
	UniqueUsers        int       `json:"unique_users"`
	FrequentlyUsedWith []string  `json:"frequently_used_with"`
	LastUsed           time.Time `json:"last_used"`
}

// toolStats is the raw per-tool state. Fields are exported for the JSON
// snapshot round trip.
type toolStats struct {
	Invocations   int64               `json:"invocations"`
	Errors        int64               `json:"errors"`
	ResponseTimes []float64           `json:"response_times"`
	LastUsed      time.Time           `json:"last_used"`
	Users         map[string]struct{} `json:"users"`
	UsedWith      map[string]struct{} `json:"used_with"`
}

// Tracker aggregates tool-usage analytics.
//
// # Thread Safety
//
// All methods are safe for concurrent use; every read or write of tracker
// state happens inside one critical section.
type Tracker struct {
	mu  sync.Mutex
	cfg Config

	store snapshot.Store
	now   func() time.Time

	tools    map[string]*toolStats
	users    map[string]*UserSession
	articles map[string]*ArticleMetrics
	lastTool map[string]string
}

// New builds a Tracker and loads any prior snapshot from store. A nil store
// disables persistence. A missing snapshot starts fresh silently; a corrupt
// one is logged and discarded.
func New(cfg Config, store snapshot.Store) *Tracker {
	if cfg.SnapshotName == "" {
		cfg.SnapshotName = "tool_usage.json"
	}
	if cfg.MaxResponseSamples <= 0 {
		cfg.MaxResponseSamples = 1000
	}
	if cfg.CoOccurrenceLimit <= 0 {
		cfg.CoOccurrenceLimit = 10
	}
	t := &Tracker{
		cfg:      cfg,
		store:    store,
		now:      time.Now,
		tools:    make(map[string]*toolStats),
		users:    make(map[string]*UserSession),
		articles: make(map[string]*ArticleMetrics),
		lastTool: make(map[string]string),
	}
	t.loadSnapshot()
	return t
}

// LogToolUse records one tool invocation.
//
// # Description
//
// Increments the tool's invocation counter, counts an error only when the
// call failed with non-empty error text, samples the response time when one
// is provided, and stamps last-used. When a user is attached it also updates
// that user's session record and pairs the tool with the user's previous
// tool in the "frequently used with" set. Invocations of the
// article_recommender tool whose metadata carries an article_id feed the
// article metrics as well.
//
// An Invocation with an empty Tool is ignored.
func (t *Tracker) LogToolUse(inv Invocation) {
	if inv.Tool == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.tools[inv.Tool]
	if st == nil {
		st = &toolStats{
			Users:    make(map[string]struct{}),
			UsedWith: make(map[string]struct{}),
		}
		t.tools[inv.Tool] = st
	}

	st.Invocations++
	if !inv.Success && inv.Error != "" {
		st.Errors++
		slog.Warn("Tool reported error", "tool", inv.Tool, "error", inv.Error)
	}
	if inv.ResponseTime != nil {
		st.ResponseTimes = append(st.ResponseTimes, *inv.ResponseTime)
		if len(st.ResponseTimes) > t.cfg.MaxResponseSamples {
			trimmed := make([]float64, t.cfg.MaxResponseSamples)
			copy(trimmed, st.ResponseTimes[len(st.ResponseTimes)-t.cfg.MaxResponseSamples:])
			st.ResponseTimes = trimmed
		}
	}
	st.LastUsed = t.now()

	if inv.UserID != "" {
		st.Users[inv.UserID] = struct{}{}
		t.touchSession(inv.UserID, inv.Tool)

		// The user's previous tool becomes this tool's co-occurrence
		// entry. The relation is one-sided per event; the reverse edge
		// appears when the sequence runs the other way.
		if last, ok := t.lastTool[inv.UserID]; ok && last != inv.Tool {
			if len(st.UsedWith) < t.cfg.CoOccurrenceLimit {
				st.UsedWith[last] = struct{}{}
			}
		}
		t.lastTool[inv.UserID] = inv.Tool
	}

	if inv.Tool == ToolArticleRecommender {
		if articleID := metadataString(inv.Metadata, "article_id"); articleID != "" {
			t.recordArticleEvent(inv.UserID, articleID, inv.Metadata)
		}
	}
}

// touchSession creates or refreshes the session record for userID. Caller
// holds the mutex.
func (t *Tracker) touchSession(userID, tool string) {
	sess := t.users[userID]
	if sess == nil {
		now := t.now()
		sess = &UserSession{
			UserID:              userID,
			FirstSeen:           now,
			CurrentSessionStart: now,
			ToolUsage:           make(map[string]int64),
		}
		t.users[userID] = sess
	}
	sess.LastSeen = t.now()
	sess.ToolUsage[tool]++
}

// GetToolMetrics returns the derived report for one tool. The second return
// is false when the tool has never been logged.
func (t *Tracker) GetToolMetrics(tool string) (ToolMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.tools[tool]
	if !ok {
		return ToolMetrics{}, false
	}
	return buildToolMetrics(st), true
}

// AllToolMetrics returns the derived report for every tool seen so far.
func (t *Tracker) AllToolMetrics() map[string]ToolMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ToolMetrics, len(t.tools))
	for name, st := range t.tools {
		out[name] = buildToolMetrics(st)
	}
	return out
}

// buildToolMetrics derives the report from raw stats. Caller holds the
// mutex.
func buildToolMetrics(st *toolStats) ToolMetrics {
	m := ToolMetrics{
		Invocations: st.Invocations,
		Errors:      st.Errors,
		ErrorRate:   float64(st.Errors) / math.Max(1, float64(st.Invocations)),
		UniqueUsers: len(st.Users),
		LastUsed:    st.LastUsed,
	}

	if n := len(st.ResponseTimes); n > 0 {
		var sum float64
		for _, v := range st.ResponseTimes {
			sum += v
		}
		m.AvgResponseTime = sum / float64(n)

		sorted := make([]float64, n)
		copy(sorted, st.ResponseTimes)
		sort.Float64s(sorted)
		m.P95ResponseTime = sorted[int(float64(n)*0.95)]
	}

	if len(st.UsedWith) > 0 {
		m.FrequentlyUsedWith = make([]string, 0, len(st.UsedWith))
		for name := range st.UsedWith {
			m.FrequentlyUsedWith = append(m.FrequentlyUsedWith, name)
		}
		sort.Strings(m.FrequentlyUsedWith)
	}
	return m
}

// metadataString extracts a string metadata value, or "".
func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// metadataFloat extracts a numeric metadata value. JSON decoding yields
// float64, but callers constructing metadata in Go may pass ints.
func metadataFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
