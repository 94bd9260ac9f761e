// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package snapshot persists named JSON blobs for conversation history and
// tool-usage analytics.
//
// # Description
//
// Three backends implement the same Store contract:
//
//   - FileStore writes each snapshot as a file, replaced atomically via a
//     temp file and rename, so a crash mid-write never corrupts the
//     previous snapshot.
//   - BadgerStore keeps snapshots in an embedded BadgerDB, one key per
//     snapshot name. Useful when many small sessions would otherwise
//     churn the filesystem.
//   - MemoryStore holds snapshots in a map. Used by tests and as the
//     degraded fallback when the configured backend cannot start.
//
// All backends report a missing snapshot with an error satisfying
// errors.Is(err, fs.ErrNotExist), and deleting a missing snapshot is not
// an error.
package snapshot

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// Store persists named snapshots.
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
type Store interface {
	// Save atomically replaces the snapshot called name.
	Save(name string, data []byte) error

	// Load returns the snapshot called name, or an error satisfying
	// errors.Is(err, fs.ErrNotExist) when none exists.
	Load(name string) ([]byte, error)

	// Delete removes the snapshot called name. Deleting a missing
	// snapshot is not an error.
	Delete(name string) error
}

// Backend names accepted by Config.Backend.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and locates a snapshot backend.
type Config struct {
	// Backend is one of "file", "badger" or "memory". Default: "file"
	Backend string

	// Dir is the directory for the file backend.
	// Default: "./data/snapshots"
	Dir string

	// BadgerPath is the directory for the badger backend.
	// Default: "./data/snapshots.badger"
	BadgerPath string
}

// DefaultConfig reads the backend selection from the environment:
//   - SNAPSHOT_BACKEND (default: "file")
//   - SNAPSHOT_DIR (default: "./data/snapshots")
//   - SNAPSHOT_BADGER_PATH (default: "./data/snapshots.badger")
func DefaultConfig() Config {
	return Config{
		Backend:    getEnvString("SNAPSHOT_BACKEND", BackendFile),
		Dir:        getEnvString("SNAPSHOT_DIR", "./data/snapshots"),
		BadgerPath: getEnvString("SNAPSHOT_BADGER_PATH", "./data/snapshots.badger"),
	}
}

// New builds the configured backend.
//
// # Description
//
// An unknown backend name is an error. A backend that fails to start is
// not: the factory logs the failure and degrades to a MemoryStore, so the
// process keeps serving with in-memory state only and persistence resumes
// on the next restart with a healthy disk. Callers that must not degrade
// should construct their backend directly.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		store, err := NewFileStore(cfg.Dir)
		if err != nil {
			slog.Warn("file snapshot store unavailable, running with in-memory snapshots",
				"dir", cfg.Dir,
				"error", err)
			return NewMemoryStore(), nil
		}
		return store, nil
	case BackendBadger:
		store, err := OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			slog.Warn("badger snapshot store unavailable, running with in-memory snapshots",
				"path", cfg.BadgerPath,
				"error", err)
			return NewMemoryStore(), nil
		}
		return store, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// MemoryStore keeps snapshots in process memory. Contents are lost on
// restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save stores a copy of data under name.
func (s *MemoryStore) Save(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the snapshot called name.
func (s *MemoryStore) Load(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the snapshot called name.
func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, name)
	return nil
}

// getEnvString returns an environment variable, or defaultVal if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
