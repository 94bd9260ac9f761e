// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sessions

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/storage/snapshot"
)

// countingStore counts Save calls so tests can see the extra persist an
// eviction performs on top of the per-mutation writes.
type countingStore struct {
	mu    sync.Mutex
	inner *snapshot.MemoryStore
	saves int
}

func newCountingStore() *countingStore {
	return &countingStore{inner: snapshot.NewMemoryStore()}
}

func (s *countingStore) Save(name string, data []byte) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.inner.Save(name, data)
}

func (s *countingStore) Load(name string) ([]byte, error) { return s.inner.Load(name) }
func (s *countingStore) Delete(name string) error         { return s.inner.Delete(name) }

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func storeFactory(store conversation.SnapshotStore) Factory {
	return func(userID, sessionID string) *agent.Session {
		cfg := conversation.DefaultMemoryConfig()
		cfg.UserID = userID
		cfg.SessionID = sessionID
		mem := conversation.NewMemory(cfg, store, nil, nil)
		return agent.NewSession(mem, nil)
	}
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

func frozenClock(start time.Time) (*time.Time, func() time.Time) {
	current := start
	return &current, func() time.Time { return current }
}

func TestAcquireCreatesThenReuses(t *testing.T) {
	metrics := testMetrics()
	made := 0
	factory := func(userID, sessionID string) *agent.Session {
		made++
		return defaultFactory(userID, sessionID)
	}
	arena := NewArena(Config{TTL: time.Hour}, factory, metrics)

	sess, id := arena.Acquire("alice", "")
	require.NotNil(t, sess)
	require.True(t, strings.HasPrefix(id, "sess_"), "generated id %q should carry the session prefix", id)
	require.Equal(t, 1, made)

	again, sameID := arena.Acquire("alice", id)
	assert.Same(t, sess, again)
	assert.Equal(t, id, sameID)
	assert.Equal(t, 1, made, "resuming must not rebuild the session")
	assert.Equal(t, 1, arena.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionEventsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionEventsTotal.WithLabelValues("resumed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveSessions))
}

func TestAcquireBlankIDsAreDistinct(t *testing.T) {
	arena := NewArena(Config{TTL: time.Hour}, nil, nil)

	first, firstID := arena.Acquire("alice", "")
	second, secondID := arena.Acquire("alice", "")

	assert.NotEqual(t, firstID, secondID)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, arena.Len())
}

func TestClearResetsConversationKeepsSession(t *testing.T) {
	metrics := testMetrics()
	arena := NewArena(Config{TTL: time.Hour}, nil, metrics)

	sess, id := arena.Acquire("alice", "")
	sess.Memory.SaveContext(context.Background(), conversation.Exchange{
		UserInput:       "What balances pitta?",
		AssistantOutput: "Cooling foods and a regular routine.",
	})
	sess.Context.AddMessage(conversation.RoleUser, "What balances pitta?", nil)
	require.Equal(t, 2, sess.Memory.Len())
	require.Equal(t, 2, sess.Context.Len())

	require.True(t, arena.Clear(id))

	assert.Equal(t, 0, sess.Memory.Len())
	assert.Equal(t, 1, sess.Context.Len(), "standing instruction should be reseeded")
	assert.Equal(t, 1, arena.Len(), "clearing must not drop the session")

	got, ok := arena.Get(id)
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.False(t, arena.Clear("missing"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionEventsTotal.WithLabelValues("cleared")))
}

func TestRemovePersistsBeforeDrop(t *testing.T) {
	store := newCountingStore()
	arena := NewArena(Config{TTL: time.Hour}, storeFactory(store), nil)

	sess, id := arena.Acquire("alice", "")
	sess.Memory.SaveContext(context.Background(), conversation.Exchange{
		UserInput:       "hello",
		AssistantOutput: "hi",
	})
	before := store.saveCount()

	require.True(t, arena.Remove(id))

	assert.Equal(t, before+1, store.saveCount(), "removal should write one final snapshot")
	assert.Equal(t, 0, arena.Len())
	_, ok := arena.Get(id)
	assert.False(t, ok)
	assert.False(t, arena.Remove(id))
}

func TestEvictExpiredHonorsTTL(t *testing.T) {
	metrics := testMetrics()
	arena := NewArena(Config{TTL: 24 * time.Hour}, nil, metrics)
	current, clock := frozenClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	arena.now = clock

	_, staleID := arena.Acquire("alice", "")
	*current = current.Add(25 * time.Hour)
	_, freshID := arena.Acquire("bob", "")

	result := arena.EvictExpired(context.Background())

	assert.Equal(t, 2, result.SessionsScanned)
	assert.Equal(t, 1, result.SessionsEvicted)
	assert.False(t, result.HasErrors())

	_, ok := arena.Get(staleID)
	assert.False(t, ok, "idle session should be gone")
	_, ok = arena.Get(freshID)
	assert.True(t, ok, "active session should survive")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionEventsTotal.WithLabelValues("evicted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveSessions))
}

func TestEvictExpiredTouchExtendsLifetime(t *testing.T) {
	arena := NewArena(Config{TTL: 24 * time.Hour}, nil, nil)
	current, clock := frozenClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	arena.now = clock

	_, id := arena.Acquire("alice", "")
	*current = current.Add(23 * time.Hour)
	arena.Acquire("alice", id)
	*current = current.Add(23 * time.Hour)

	result := arena.EvictExpired(context.Background())

	assert.Equal(t, 0, result.SessionsEvicted, "46h old but touched 23h ago")
	assert.Equal(t, 1, arena.Len())
}

func TestSetTTLAppliesToNextSweep(t *testing.T) {
	arena := NewArena(Config{TTL: 24 * time.Hour}, nil, nil)
	current, clock := frozenClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	arena.now = clock

	_, id := arena.Acquire("alice", "")
	*current = current.Add(2 * time.Hour)

	result := arena.EvictExpired(context.Background())
	assert.Equal(t, 0, result.SessionsEvicted)

	arena.SetTTL(time.Hour)
	assert.Equal(t, time.Hour, arena.TTL())

	result = arena.EvictExpired(context.Background())
	assert.Equal(t, 1, result.SessionsEvicted)
	_, ok := arena.Get(id)
	assert.False(t, ok)

	arena.SetTTL(0)
	assert.Equal(t, time.Hour, arena.TTL(), "non-positive values are ignored")
}

func TestEvictExpiredPersistsBeforeDrop(t *testing.T) {
	store := newCountingStore()
	arena := NewArena(Config{TTL: 24 * time.Hour}, storeFactory(store), nil)
	current, clock := frozenClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	arena.now = clock

	sess, _ := arena.Acquire("alice", "")
	sess.Memory.SaveContext(context.Background(), conversation.Exchange{
		UserInput:       "hello",
		AssistantOutput: "hi",
	})
	before := store.saveCount()
	*current = current.Add(25 * time.Hour)

	result := arena.EvictExpired(context.Background())

	assert.Equal(t, 1, result.SessionsEvicted)
	assert.Equal(t, before+1, store.saveCount(), "eviction should write one final snapshot")
}

func TestEvictExpiredStopsOnCancelledContext(t *testing.T) {
	arena := NewArena(Config{TTL: time.Hour}, nil, nil)
	current, clock := frozenClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	arena.now = clock

	arena.Acquire("alice", "")
	arena.Acquire("bob", "")
	*current = current.Add(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := arena.EvictExpired(ctx)

	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].Reason, "cancelled")
	assert.Equal(t, 0, result.SessionsEvicted)
	assert.Equal(t, 2, arena.Len())
}

func TestListOrdersByRecency(t *testing.T) {
	arena := NewArena(Config{TTL: time.Hour}, nil, nil)
	current, clock := frozenClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	arena.now = clock

	_, oldest := arena.Acquire("alice", "")
	*current = current.Add(time.Minute)
	_, middle := arena.Acquire("bob", "")
	*current = current.Add(time.Minute)
	sess, newest := arena.Acquire("carol", "")
	sess.Memory.SaveContext(context.Background(), conversation.Exchange{
		UserInput:       "hello",
		AssistantOutput: "hi",
	})

	infos := arena.List()

	require.Len(t, infos, 3)
	assert.Equal(t, newest, infos[0].SessionID)
	assert.Equal(t, middle, infos[1].SessionID)
	assert.Equal(t, oldest, infos[2].SessionID)
	assert.Equal(t, "carol", infos[0].UserID)
	assert.Equal(t, 2, infos[0].MessageCount)
	assert.Equal(t, 0, infos[2].MessageCount)
	assert.True(t, infos[0].LastActive.After(infos[2].LastActive))
}

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "1")
	t.Setenv("SESSION_CLEANUP_INTERVAL_MINUTES", "5")

	cfg := DefaultConfig()

	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
}

func TestNewArenaFillsZeroConfig(t *testing.T) {
	arena := NewArena(Config{}, nil, nil)

	assert.Positive(t, arena.cfg.TTL)
	assert.Positive(t, arena.cfg.CleanupInterval)

	sess, id := arena.Acquire("", "")
	require.NotNil(t, sess)
	require.NotNil(t, sess.Memory)
	require.NotNil(t, sess.Context)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, sess.Context.Len(), "default factory seeds the standing instruction")
}
