// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-reads the configuration file when it changes on disk.
//
// The file's parent directory is watched rather than the file itself, so
// writers that replace the file (write to a temp name, rename over it)
// keep producing events after the original inode is gone. Bursts of
// events are coalesced within a debounce window before the file is
// re-read. A re-read that fails to load only logs; the previous
// configuration stays in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Config)

	watcher  *fsnotify.Watcher
	changes  chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long the watcher waits after the last
	// event before re-reading the file.
	DebounceWindow time.Duration
}

// DefaultWatcherOptions returns the default watcher options.
func DefaultWatcherOptions() *WatcherOptions {
	return &WatcherOptions{
		DebounceWindow: 200 * time.Millisecond,
	}
}

// NewWatcher builds a watcher for the configuration file at path.
// onChange receives every successfully re-read Config. opts may be nil
// for the defaults.
func NewWatcher(path string, onChange func(Config), opts *WatcherOptions) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config watch path is empty")
	}
	if onChange == nil {
		return nil, errors.New("config watch callback is nil")
	}
	if opts == nil {
		opts = DefaultWatcherOptions()
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultWatcherOptions().DebounceWindow
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:     filepath.Clean(path),
		debounce: opts.DebounceWindow,
		onChange: onChange,
		watcher:  watcher,
		changes:  make(chan struct{}, 16),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The watch ends when ctx is cancelled or Stop is
// called. Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return fmt.Errorf("watch config directory: %w", err)
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher. Stopping twice is safe.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// processEvents filters raw filesystem events down to ones touching the
// watched file and signals the debouncer.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.concerns(event) {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
				// A signal is already pending; one reload covers both.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watch error", "path", w.path, "error", err)
		}
	}
}

// concerns reports whether the event is a content change of the watched
// file. Create and Rename cover atomic replacement.
func (w *Watcher) concerns(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename)
}

// debounceLoop waits out the debounce window after the last signal, then
// reloads the file.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.changes:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("Config reload failed, keeping previous settings",
			"path", w.path, "error", err)
		return
	}
	slog.Info("Configuration reloaded", "path", w.path)
	w.onChange(cfg)
}
