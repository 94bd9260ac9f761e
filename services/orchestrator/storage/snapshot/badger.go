// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// snapshotKeyPrefix namespaces snapshot keys inside the database.
const snapshotKeyPrefix = "snapshot/"

// BadgerConfig holds configuration for the embedded BadgerDB backend.
type BadgerConfig struct {
	// Path is the directory for database files. Required unless InMemory
	// is true.
	Path string

	// InMemory keeps the database in RAM, for tests.
	InMemory bool

	// SyncWrites makes every write durable before returning.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger

	// GCDiscardRatio is the minimum ratio of discardable data before a
	// value-log GC pass rewrites a file. Default: 0.5
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns durable production settings.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns settings for tests: no disk, no sync.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:       true,
		GCDiscardRatio: 0.5,
	}
}

// badgerLogger adapts slog to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore keeps snapshots in an embedded BadgerDB, one key per name.
//
// # Description
//
// Badger transactions give the same crash contract as FileStore's
// temp-and-rename: a snapshot is either fully replaced or untouched.
// Compared to one file per session, the embedded database avoids
// filesystem churn when many short-lived sessions write snapshots.
type BadgerStore struct {
	db  *badger.DB
	cfg BadgerConfig
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens a database with the given configuration. The caller
// owns the returned store and must Close it.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db, cfg: cfg}, nil
}

// OpenBadgerStore opens a persistent store with production defaults.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	return NewBadgerStore(DefaultBadgerConfig(path))
}

// OpenInMemoryBadgerStore opens a throwaway store for tests.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	return NewBadgerStore(InMemoryBadgerConfig())
}

// Save atomically replaces the snapshot called name.
func (s *BadgerStore) Save(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKeyPrefix+name), data)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// Load returns the snapshot called name.
func (s *BadgerStore) Load(name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKeyPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("snapshot %s: %w", name, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return data, nil
}

// Delete removes the snapshot called name.
func (s *BadgerStore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(snapshotKeyPrefix + name))
	})
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

// Close releases the database. The store must not be used afterwards.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunGC rewrites value-log files on a fixed interval until ctx is
// cancelled. Run it in its own goroutine when the store is long lived;
// badger.ErrNoRewrite simply means there was nothing worth collecting.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.cfg.InMemory {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				slog.Warn("badger value log gc failed", "error", err)
			}
		}
	}
}
