// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/storage/snapshot"
)

const (
	profileSnapshotName = "user_profiles.json"

	// maxStoredInteractions bounds the per-user interaction log.
	maxStoredInteractions = 20

	// maxInteractionContent bounds stored interaction text.
	maxInteractionContent = 1000

	// contextInteractions is how many recent interactions feed the
	// personalized query, and contextSnippet how much of each.
	contextInteractions = 10
	contextSnippet      = 200
)

// Interaction is one logged user action kept for personalization.
type Interaction struct {
	Content   string    `json:"content"`
	Type      string    `json:"interaction_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the per-user personalization state.
type Profile struct {
	Preferences  map[string]string `json:"preferences"`
	Interactions []Interaction     `json:"interactions"`
}

// ProfileStore keeps user preferences and recent interactions, persisted
// through a snapshot store. It implements PreferenceProvider.
//
// # Thread Safety
//
// Safe for concurrent use.
type ProfileStore struct {
	mu       sync.Mutex
	store    snapshot.Store
	now      func() time.Time
	profiles map[string]*Profile
}

var _ PreferenceProvider = (*ProfileStore)(nil)

// NewProfileStore builds a ProfileStore and loads any prior snapshot. A nil
// store disables persistence.
func NewProfileStore(store snapshot.Store) *ProfileStore {
	p := &ProfileStore{
		store:    store,
		now:      time.Now,
		profiles: make(map[string]*Profile),
	}
	p.load()
	return p
}

// SetPreference stores one preference key for the user. An empty value
// removes the key.
func (p *ProfileStore) SetPreference(userID, key, value string) {
	if userID == "" || key == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prof := p.profile(userID)
	if value == "" {
		delete(prof.Preferences, key)
		return
	}
	prof.Preferences[key] = value
}

// LogInteraction appends one interaction to the user's history for future
// personalization. Content is truncated and the log is bounded, oldest
// first out.
func (p *ProfileStore) LogInteraction(userID, content, interactionType string) {
	if userID == "" || content == "" {
		return
	}
	if len(content) > maxInteractionContent {
		content = content[:maxInteractionContent]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prof := p.profile(userID)
	prof.Interactions = append(prof.Interactions, Interaction{
		Content:   content,
		Type:      interactionType,
		Timestamp: p.now(),
	})
	if len(prof.Interactions) > maxStoredInteractions {
		prof.Interactions = prof.Interactions[len(prof.Interactions)-maxStoredInteractions:]
	}
}

// UserContext returns the personalization context for one user: their
// preferences plus snippets of the most recent interactions, newest first.
// An unknown user yields an empty context, not an error.
func (p *ProfileStore) UserContext(_ context.Context, userID string) (UserContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prof, ok := p.profiles[userID]
	if !ok {
		return UserContext{}, nil
	}

	userCtx := UserContext{Preferences: make(map[string]string, len(prof.Preferences))}
	for k, v := range prof.Preferences {
		userCtx.Preferences[k] = v
	}

	start := len(prof.Interactions) - contextInteractions
	if start < 0 {
		start = 0
	}
	for i := len(prof.Interactions) - 1; i >= start; i-- {
		content := prof.Interactions[i].Content
		if len(content) > contextSnippet {
			content = content[:contextSnippet]
		}
		userCtx.RecentInteractions = append(userCtx.RecentInteractions, content)
	}
	return userCtx, nil
}

// Flush persists all profiles. Failures are logged and swallowed.
func (p *ProfileStore) Flush() {
	if p.store == nil {
		return
	}

	p.mu.Lock()
	data, err := json.MarshalIndent(p.profiles, "", "  ")
	p.mu.Unlock()
	if err != nil {
		slog.Warn("Failed to encode user profiles", "error", err)
		return
	}

	if err := p.store.Save(profileSnapshotName, data); err != nil {
		slog.Warn("Failed to persist user profiles", "error", err)
	}
}

// profile returns the user's record, creating it on first touch. Caller
// holds the mutex.
func (p *ProfileStore) profile(userID string) *Profile {
	prof := p.profiles[userID]
	if prof == nil {
		prof = &Profile{Preferences: make(map[string]string)}
		p.profiles[userID] = prof
	}
	return prof
}

// load restores profiles from the snapshot store. A missing snapshot is
// silent; a corrupt one is logged and discarded.
func (p *ProfileStore) load() {
	if p.store == nil {
		return
	}

	data, err := p.store.Load(profileSnapshotName)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read user profiles", "error", err)
		}
		return
	}

	var profiles map[string]*Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		slog.Warn("Discarding corrupt user profile snapshot", "error", err)
		return
	}
	if profiles == nil {
		return
	}
	for id, prof := range profiles {
		if prof == nil {
			delete(profiles, id)
			continue
		}
		if prof.Preferences == nil {
			prof.Preferences = make(map[string]string)
		}
	}
	p.profiles = profiles
}
