// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tokens"
)

// SnapshotStore persists named JSON snapshots.
//
// # Description
//
// Memory is the consumer of this interface; implementations live in
// storage/snapshot. Save must replace the previous snapshot atomically so
// a crash mid-write leaves either the old or the new content, never a
// partial mix. Load reports a missing snapshot with an error satisfying
// errors.Is(err, fs.ErrNotExist). Delete of a missing snapshot is not an
// error.
type SnapshotStore interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
	Delete(name string) error
}

// Exchange is one completed user/assistant round trip handed to
// Memory.SaveContext.
type Exchange struct {
	// UserInput is the user's message text.
	UserInput string

	// AssistantOutput is the model's final response text.
	AssistantOutput string

	// ToolCalls is the tool trace recorded while producing the response.
	ToolCalls []ToolCallRecord

	// ToolResults is the tool outcome trace, in call order.
	ToolResults []ToolResultRecord

	// Custom carries extra tags merged into the assistant message's
	// metadata. May be nil.
	Custom map[string]any
}

// HistoryEntry is the read-only projection returned by
// GetConversationHistory.
type HistoryEntry struct {
	Content  string          `json:"content"`
	Type     string          `json:"type"`
	Metadata MessageMetadata `json:"metadata"`
}

// Memory is the persistence and lifecycle wrapper for one session's
// conversation state.
//
// # Description
//
// Memory keeps two parallel lists, stored messages and their metadata, and
// guarantees they stay the same length through every save, summarize and
// prune. Each mutation ends with an atomic snapshot write. Persistence
// failures are logged and swallowed, in-memory operation continues and the
// next successful write corrects the on-disk state.
//
// # Thread Safety
//
// Memory is not safe for concurrent use. Each session owns exactly one
// instance and the session arena serializes access to it.
type Memory struct {
	cfg        MemoryConfig
	store      SnapshotStore
	summarizer *Summarizer
	counter    tokens.Counter
	now        func() time.Time
	newID      func() string

	messages []StoredMessage
	metadata []MessageMetadata
}

// NewMemory constructs a memory bound to cfg.SessionID and loads its
// snapshot when one exists.
//
// # Inputs
//
//   - cfg: bounds and identity. An empty SessionID generates a fresh one,
//     an empty UserID becomes "default_user".
//   - store: snapshot backend. Required.
//   - summarizer: used by the summarization pass. May be nil, which
//     disables summarization regardless of cfg.EnableSummarization.
//   - counter: used for token-based pruning. Nil disables that phase.
func NewMemory(cfg MemoryConfig, store SnapshotStore, summarizer *Summarizer, counter tokens.Counter) *Memory {
	if cfg.UserID == "" {
		cfg.UserID = "default_user"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = NewSessionID()
	}
	m := &Memory{
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		counter:    counter,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	m.loadHistory()
	return m
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return "sess_" + uuid.NewString()
}

// SessionID returns the session this memory is bound to.
func (m *Memory) SessionID() string {
	return m.cfg.SessionID
}

// UserID returns the user this memory belongs to.
func (m *Memory) UserID() string {
	return m.cfg.UserID
}

// Len returns the number of stored messages.
func (m *Memory) Len() int {
	return len(m.messages)
}

// SaveContext records one exchange: a human message, an assistant message,
// and one metadata entry for each.
//
// # Description
//
// After appending the pair, the history runs through summarization when
// enabled, then pruning, then an atomic snapshot write. Pruning removes
// messages in pairs from the oldest end so a response is never orphaned
// from its prompt. All failures along the way are logged and swallowed,
// an exchange is never lost from memory because a downstream step failed.
//
// # Inputs
//
//   - ctx: bounds the summarization LLM call, if one happens.
//   - ex: the completed exchange.
func (m *Memory) SaveContext(ctx context.Context, ex Exchange) {
	now := m.now()

	m.messages = append(m.messages, StoredMessage{
		Type:    MessageTypeHuman,
		Content: ex.UserInput,
	})
	m.metadata = append(m.metadata, MessageMetadata{
		Timestamp: now,
		MessageID: m.newID(),
		UserID:    m.cfg.UserID,
		SessionID: m.cfg.SessionID,
		Custom:    map[string]any{"role": "human"},
	})

	aiCustom := map[string]any{"role": "ai"}
	for k, v := range ex.Custom {
		aiCustom[k] = v
	}
	m.messages = append(m.messages, StoredMessage{
		Type:    MessageTypeAI,
		Content: ex.AssistantOutput,
	})
	m.metadata = append(m.metadata, MessageMetadata{
		Timestamp:   now,
		MessageID:   m.newID(),
		ToolCalls:   ex.ToolCalls,
		ToolResults: ex.ToolResults,
		UserID:      m.cfg.UserID,
		SessionID:   m.cfg.SessionID,
		Custom:      aiCustom,
	})

	if m.cfg.EnableSummarization && m.summarizer != nil {
		m.processForSummarization(ctx)
	}
	m.pruneMessages()
	m.persist()
}

// GetConversationHistory returns up to limit of the newest entries, oldest
// first. A non-positive limit returns everything.
func (m *Memory) GetConversationHistory(limit int) []HistoryEntry {
	msgs, meta := m.messages, m.metadata
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
		meta = meta[len(meta)-limit:]
	}

	out := make([]HistoryEntry, 0, len(msgs))
	for i := range msgs {
		entry := HistoryEntry{Content: msgs[i].Content, Type: msgs[i].Type}
		if i < len(meta) {
			entry.Metadata = meta[i]
		}
		out = append(out, entry)
	}
	return out
}

// SwitchSession persists the current session and returns a fresh Memory
// bound to sessionID, loading that session's snapshot when one exists. The
// caller must repoint its reference to the returned instance; the receiver
// is left persisted but should not be written to afterwards.
func (m *Memory) SwitchSession(sessionID string) *Memory {
	m.persist()
	cfg := m.cfg
	cfg.SessionID = sessionID
	fresh := NewMemory(cfg, m.store, m.summarizer, m.counter)
	fresh.now = m.now
	fresh.newID = m.newID
	return fresh
}

// Clear drops all messages and metadata and persists the empty state.
func (m *Memory) Clear() {
	m.messages = nil
	m.metadata = nil
	m.persist()
}

// Persist writes the current snapshot now. Every mutation already
// persists, so this exists for shutdown and eviction paths that want one
// explicit final write.
func (m *Memory) Persist() {
	m.persist()
}

// processForSummarization runs the summarizer over the stored history and,
// when it reduced the message count, rebuilds both lists pairwise. Summary
// turns consume original_messages_count source entries and get fresh
// metadata; passthrough turns keep their original message and metadata.
func (m *Memory) processForSummarization(ctx context.Context) {
	turns := make([]Turn, len(m.messages))
	for i, msg := range m.messages {
		turns[i] = Turn{Role: roleForType(msg.Type), Content: msg.Content}
	}

	processed := m.summarizer.ProcessMessages(ctx, turns, m.cfg.UserID, m.cfg.SessionID)
	if len(processed) >= len(turns) {
		return
	}

	newMessages := make([]StoredMessage, 0, len(processed))
	newMetadata := make([]MessageMetadata, 0, len(processed))
	src := 0
	for _, t := range processed {
		if t.IsSummary {
			consumed := summarizedCount(t.Metadata)
			kwargs := map[string]any{"is_summary": true}
			for k, v := range t.Metadata {
				kwargs[k] = v
			}
			newMessages = append(newMessages, StoredMessage{
				Type:             MessageTypeAI,
				Content:          t.Content,
				AdditionalKwargs: kwargs,
			})
			newMetadata = append(newMetadata, MessageMetadata{
				Timestamp: m.now(),
				MessageID: m.newID(),
				UserID:    m.cfg.UserID,
				SessionID: m.cfg.SessionID,
				Custom:    map[string]any{"role": "ai", "is_summary": true},
			})
			src += consumed
			continue
		}
		if src < len(m.messages) {
			newMessages = append(newMessages, m.messages[src])
		} else {
			newMessages = append(newMessages, StoredMessage{Type: MessageTypeAI, Content: t.Content})
		}
		if src < len(m.metadata) {
			newMetadata = append(newMetadata, m.metadata[src])
		} else {
			newMetadata = append(newMetadata, MessageMetadata{
				Timestamp: m.now(),
				MessageID: m.newID(),
				UserID:    m.cfg.UserID,
				SessionID: m.cfg.SessionID,
			})
		}
		src++
	}

	slog.Info("conversation summarized",
		"session_id", m.cfg.SessionID,
		"before", len(turns),
		"after", len(processed))

	m.messages = newMessages
	m.metadata = newMetadata
}

// pruneMessages enforces the message-count cap, dropping the oldest excess,
// then the token budget, dropping the oldest pair per iteration so a
// response never survives without its prompt. At least one message always
// remains after count pruning; token pruning stops once a single message
// is left even when that message alone exceeds the budget.
func (m *Memory) pruneMessages() {
	if len(m.messages) > m.cfg.MaxMessages {
		excess := len(m.messages) - m.cfg.MaxMessages
		m.messages = m.messages[excess:]
		m.metadata = m.metadata[excess:]
	}

	if m.cfg.MaxTokens <= 0 || m.counter == nil {
		return
	}
	for {
		total := 0
		for _, msg := range m.messages {
			total += m.counter.Count(msg.Content)
		}
		if total <= m.cfg.MaxTokens || len(m.messages) <= 1 {
			return
		}
		m.messages = m.messages[2:]
		m.metadata = m.metadata[2:]
	}
}

// persist writes the current state through the snapshot store. Failures
// are logged and swallowed.
func (m *Memory) persist() {
	msgs := m.messages
	if msgs == nil {
		msgs = []StoredMessage{}
	}
	meta := m.metadata
	if meta == nil {
		meta = []MessageMetadata{}
	}

	data, err := json.MarshalIndent(historySnapshot{Messages: msgs, Metadata: meta}, "", "  ")
	if err != nil {
		slog.Error("conversation snapshot encode failed",
			"session_id", m.cfg.SessionID,
			"error", err)
		return
	}
	if err := m.store.Save(m.snapshotName(), data); err != nil {
		slog.Warn("conversation snapshot write failed",
			"session_id", m.cfg.SessionID,
			"error", err)
	}
}

// loadHistory restores state from the session's snapshot. A missing
// snapshot is a normal fresh start; a corrupt or unreadable one is logged
// and skipped. Unknown message types load as MessageTypeGeneric. When the
// two lists disagree in length both are truncated to the shorter one.
func (m *Memory) loadHistory() {
	data, err := m.store.Load(m.snapshotName())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("conversation snapshot load failed",
				"session_id", m.cfg.SessionID,
				"error", err)
		}
		return
	}

	var snap historySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("conversation snapshot is corrupt, starting fresh",
			"session_id", m.cfg.SessionID,
			"error", err)
		return
	}

	for i := range snap.Messages {
		switch snap.Messages[i].Type {
		case MessageTypeHuman, MessageTypeAI, MessageTypeSystem:
		default:
			snap.Messages[i].Type = MessageTypeGeneric
		}
	}

	if len(snap.Messages) != len(snap.Metadata) {
		slog.Warn("conversation snapshot lists out of step, truncating",
			"session_id", m.cfg.SessionID,
			"messages", len(snap.Messages),
			"metadata", len(snap.Metadata))
		n := len(snap.Messages)
		if len(snap.Metadata) < n {
			n = len(snap.Metadata)
		}
		snap.Messages = snap.Messages[:n]
		snap.Metadata = snap.Metadata[:n]
	}

	m.messages = snap.Messages
	m.metadata = snap.Metadata
}

func (m *Memory) snapshotName() string {
	return "conversation_" + m.cfg.SessionID + ".json"
}

// roleForType maps a stored message type to the role the summarizer sees.
func roleForType(msgType string) Role {
	switch msgType {
	case MessageTypeHuman:
		return RoleUser
	case MessageTypeAI:
		return RoleAssistant
	default:
		return RoleSystem
	}
}

// summarizedCount reads original_messages_count from summary metadata,
// tolerating the float64 that a JSON round trip produces. Falls back to 1
// so a malformed summary still advances the rebuild cursor.
func summarizedCount(meta map[string]any) int {
	switch v := meta["original_messages_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 1
	}
}
