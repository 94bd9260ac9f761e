// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"time"
)

// trackerSnapshot is the raw persisted state. It round-trips exactly: a
// tracker restored from its own snapshot reports identical metrics.
type trackerSnapshot struct {
	Tools    map[string]*toolStats      `json:"tools"`
	Users    map[string]*UserSession    `json:"users"`
	Articles map[string]*ArticleMetrics `json:"articles"`
	LastTool map[string]string          `json:"last_tool"`
}

// UsageExport is the derived analytics report across every tool, article
// and recently active user.
type UsageExport struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Tools       map[string]ToolMetrics    `json:"tools"`
	Articles    map[string]ArticleMetrics `json:"articles"`
	Users       map[string]UserEngagement `json:"users"`
}

// Export returns the derived analytics report as a structured value. Users
// are filtered to the default 30-day engagement window.
func (t *Tracker) Export() UsageExport {
	return UsageExport{
		GeneratedAt: t.now(),
		Tools:       t.AllToolMetrics(),
		Articles:    t.AllArticleMetrics(),
		Users:       t.AllUserEngagement(0),
	}
}

// ExportJSON returns the derived analytics report as indented JSON.
func (t *Tracker) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(t.Export(), "", "  ")
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Flush persists the raw state to the snapshot store. Failures are logged
// and swallowed. Flush is a no-op without a store.
func (t *Tracker) Flush() {
	if t.store == nil {
		return
	}

	t.mu.Lock()
	data, err := json.MarshalIndent(trackerSnapshot{
		Tools:    t.tools,
		Users:    t.users,
		Articles: t.articles,
		LastTool: t.lastTool,
	}, "", "  ")
	t.mu.Unlock()
	if err != nil {
		slog.Warn("Failed to encode usage snapshot", "error", err)
		return
	}

	if err := t.store.Save(t.cfg.SnapshotName, data); err != nil {
		slog.Warn("Failed to persist usage snapshot",
			"snapshot", t.cfg.SnapshotName,
			"error", err)
	}
}

// loadSnapshot restores prior state from the snapshot store. A missing
// snapshot starts fresh silently; an unreadable or corrupt one is logged
// and discarded.
func (t *Tracker) loadSnapshot() {
	if t.store == nil {
		return
	}

	data, err := t.store.Load(t.cfg.SnapshotName)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read usage snapshot",
				"snapshot", t.cfg.SnapshotName,
				"error", err)
		}
		return
	}

	var snap trackerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("Discarding corrupt usage snapshot",
			"snapshot", t.cfg.SnapshotName,
			"error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if snap.Tools != nil {
		for _, st := range snap.Tools {
			if st.Users == nil {
				st.Users = make(map[string]struct{})
			}
			if st.UsedWith == nil {
				st.UsedWith = make(map[string]struct{})
			}
		}
		t.tools = snap.Tools
	}
	if snap.Users != nil {
		for _, sess := range snap.Users {
			if sess.ToolUsage == nil {
				sess.ToolUsage = make(map[string]int64)
			}
		}
		t.users = snap.Users
	}
	if snap.Articles != nil {
		t.articles = snap.Articles
	}
	if snap.LastTool != nil {
		t.lastTool = snap.LastTool
	}
}

// RunPeriodicFlush persists the tracker on the configured interval until
// ctx is cancelled, then flushes once more.
//
// # Description
//
// Meant to run in its own goroutine for the life of the service. The final
// flush on shutdown bounds snapshot staleness to one interval during normal
// operation and to zero at exit.
func (t *Tracker) RunPeriodicFlush(ctx context.Context) {
	interval := t.cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Usage snapshot flush loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			t.Flush()
			slog.Info("Usage snapshot flush loop stopped")
			return
		case <-ticker.C:
			t.Flush()
		}
	}
}
