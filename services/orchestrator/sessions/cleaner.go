// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// EvictionRunner is the lifecycle surface of the background session
// sweep.
type EvictionRunner interface {
	// Start launches the sweep loop. It returns an error if the runner
	// is already running.
	Start(ctx context.Context) error

	// Stop halts the sweep loop. Stopping a stopped runner is a no-op.
	Stop() error
}

// Cleaner periodically evicts expired sessions from an arena.
//
// Each sweep period is jittered by a few percent so replicas sharing a
// snapshot backend do not write their evictions in lockstep.
type Cleaner struct {
	arena    *Arena
	interval time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

var _ EvictionRunner = (*Cleaner)(nil)

// NewCleaner builds a cleaner sweeping arena every interval. A
// non-positive interval falls back to the arena's configured
// CleanupInterval.
func NewCleaner(arena *Arena, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = arena.cfg.CleanupInterval
	}
	return &Cleaner{arena: arena, interval: interval}
}

// Start launches the sweep loop in a goroutine. The loop exits when ctx
// is cancelled or Stop is called.
func (c *Cleaner) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("session cleaner is already running")
	}
	c.running = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	slog.Info("Session cleaner starting",
		"interval", c.interval.String(),
		"ttl", c.arena.TTL().String())
	go c.runLoop(ctx, done)
	return nil
}

// Stop halts the sweep loop. A sweep in flight finishes first.
func (c *Cleaner) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	close(c.done)
	c.running = false
	slog.Info("Session cleaner stopped")
	return nil
}

// RunNow performs one sweep immediately, outside the schedule.
func (c *Cleaner) RunNow(ctx context.Context) CleanupResult {
	return c.executeSweep(ctx)
}

func (c *Cleaner) runLoop(ctx context.Context, done chan struct{}) {
	timer := time.NewTimer(c.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session cleaner exiting", "reason", "context cancelled")
			return
		case <-done:
			slog.Info("Session cleaner exiting", "reason", "stop requested")
			return
		case <-timer.C:
			c.executeSweep(ctx)
			timer.Reset(c.nextInterval())
		}
	}
}

func (c *Cleaner) executeSweep(ctx context.Context) CleanupResult {
	result := c.arena.EvictExpired(ctx)
	if result.SessionsEvicted > 0 || result.HasErrors() {
		slog.Info("Session sweep completed",
			"scanned", result.SessionsScanned,
			"evicted", result.SessionsEvicted,
			"errors", len(result.Errors),
			"duration_ms", result.DurationMs())
	} else {
		slog.Debug("Session sweep completed",
			"scanned", result.SessionsScanned)
	}
	return result
}

// nextInterval returns the base interval jittered by up to plus or
// minus five percent.
func (c *Cleaner) nextInterval() time.Duration {
	jitterRange := int64(c.interval / 10)
	if jitterRange <= 0 {
		return c.interval
	}
	return c.interval - c.interval/20 + time.Duration(rand.Int63n(jitterRange))
}

// NoopCleaner satisfies EvictionRunner without ever sweeping, for
// deployments that manage session lifetime externally.
type NoopCleaner struct{}

var _ EvictionRunner = NoopCleaner{}

// Start is a no-op.
func (NoopCleaner) Start(context.Context) error { return nil }

// Stop is a no-op.
func (NoopCleaner) Stop() error { return nil }
