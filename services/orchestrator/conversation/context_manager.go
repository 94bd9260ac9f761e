// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tokens"
)

// referencePhrases are explicit back-references that mark a message as a
// follow-up to an earlier turn.
var referencePhrases = []string{
	"as you mentioned", "you said", "earlier you said",
	"about that", "regarding", "you mentioned",
}

// pronounPattern matches anaphoric pronouns as whole words, so "items" or
// "together" never count as references.
var pronounPattern = regexp.MustCompile(`(?i)\b(it|that|this|they|them|those|these)\b`)

// ContextManager maintains a bounded window of turns for one session.
//
// # Description
//
// Turns are appended through AddMessage and pruned immediately afterwards,
// first against the message-count cap and then against the token budget.
// System turns and the newest MinRecentMessages turns survive pruning, so
// the model never loses its instructions or immediate continuity.
//
// Pruning discards turns outright. Compression of older content into a
// summary is a separate flow: the orchestrator runs the Summarizer and
// stores its output here through UpdateSummary.
//
// # Thread Safety
//
// ContextManager is not safe for concurrent use. Each session owns exactly
// one instance and the session arena serializes access to it.
type ContextManager struct {
	cfg     ContextConfig
	counter tokens.Counter
	now     func() time.Time

	turns   []Turn
	summary string
}

// NewContextManager returns an empty context window with the given bounds.
// A nil counter falls back to the heuristic counter.
func NewContextManager(cfg ContextConfig, counter tokens.Counter) *ContextManager {
	if counter == nil {
		counter = tokens.HeuristicCounter{}
	}
	return &ContextManager{
		cfg:     cfg,
		counter: counter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AddMessage appends a turn and prunes the window.
//
// # Inputs
//
//   - role: author of the turn.
//   - content: message text. Token cost is computed here, once.
//   - metadata: optional free-form extras stored on the turn. May be nil.
func (cm *ContextManager) AddMessage(role Role, content string, metadata map[string]any) {
	cm.turns = append(cm.turns, Turn{
		Role:       role,
		Content:    content,
		Timestamp:  cm.now(),
		TokenCount: cm.countTokens(content),
		Metadata:   metadata,
	})
	cm.pruneHistory()
}

// GetContext returns the turns a response should be conditioned on.
//
// # Description
//
// The result is ordered: all system turns first, then (when requested and
// available) one synthetic system turn carrying the running summary, then
// the most recent turns up to MaxMessages. Recipients depend on that
// ordering, system instructions must dominate whatever follows.
//
// # Inputs
//
//   - includeRecent: append the recent-turns tail.
//   - includeSummary: append the synthetic summary turn when a summary
//     exists.
func (cm *ContextManager) GetContext(includeRecent, includeSummary bool) []Turn {
	context := make([]Turn, 0, len(cm.turns)+1)

	for _, t := range cm.turns {
		if t.Role == RoleSystem {
			context = append(context, t)
		}
	}

	if includeSummary && cm.summary != "" {
		context = append(context, Turn{
			Role:      RoleSystem,
			Content:   "Conversation summary: " + cm.summary,
			IsSummary: true,
		})
	}

	if includeRecent {
		n := cm.cfg.MaxMessages
		if n > len(cm.turns) {
			n = len(cm.turns)
		}
		context = append(context, cm.turns[len(cm.turns)-n:]...)
	}

	return context
}

// UpdateSummary replaces the running summary text. Called by the
// orchestrator after a summarization pass.
func (cm *ContextManager) UpdateSummary(summary string) {
	cm.summary = summary
}

// Summary returns the current running summary, empty if none exists.
func (cm *ContextManager) Summary() string {
	return cm.summary
}

// Len returns the number of retained turns.
func (cm *ContextManager) Len() int {
	return len(cm.turns)
}

// HandleFollowUp reports whether message refers back to an earlier turn,
// and if so which turn it most plausibly refers to.
//
// # Description
//
// Two passes run in order. Explicit reference phrases ("as you mentioned",
// "you said", ...) are matched case-insensitively as substrings; on a hit
// the newest prior user or assistant turn is returned, skipping the very
// last turn since that may be the message itself. Otherwise a small set of
// anaphoric pronouns is matched as whole words; on a hit the newest user or
// assistant turn is returned.
//
// This is a lexical heuristic, not a semantic resolver. It tells the
// orchestrator that prior context is probably needed, nothing more.
//
// # Outputs
//
//   - bool: true when a back-reference was detected and a turn found.
//   - *Turn: copy of the referenced turn, nil when bool is false.
func (cm *ContextManager) HandleFollowUp(message string) (bool, *Turn) {
	lower := strings.ToLower(message)
	for _, phrase := range referencePhrases {
		if !strings.Contains(lower, phrase) {
			continue
		}
		for i := len(cm.turns) - 2; i >= 0; i-- {
			if cm.turns[i].Role == RoleUser || cm.turns[i].Role == RoleAssistant {
				ref := cm.turns[i]
				return true, &ref
			}
		}
		break
	}

	if pronounPattern.MatchString(message) {
		for i := len(cm.turns) - 1; i >= 0; i-- {
			if cm.turns[i].Role == RoleUser || cm.turns[i].Role == RoleAssistant {
				ref := cm.turns[i]
				return true, &ref
			}
		}
	}

	return false, nil
}

// Clear drops all turns and the summary.
func (cm *ContextManager) Clear() {
	cm.turns = nil
	cm.summary = ""
}

// pruneHistory enforces the message-count cap, then the token budget.
//
// Count phase: when the cap is exceeded, the last MinRecentMessages turns
// are set aside untouched, system turns among the remainder are all kept,
// and the rest are sorted newest-first with only as many kept as still fit
// under MaxMessages. The window is reassembled as system turns, kept
// middle, recent tail.
//
// Token phase: while the summed token count exceeds MaxTokens and more than
// one turn remains, the earliest non-system turn outside the protected tail
// is removed. When no such turn exists the loop stops rather than touch
// protected turns.
func (cm *ContextManager) pruneHistory() {
	if len(cm.turns) > cm.cfg.MaxMessages {
		tailStart := len(cm.turns) - cm.cfg.MinRecentMessages
		if tailStart < 0 {
			tailStart = 0
		}
		recent := cm.turns[tailStart:]

		var system, middle []Turn
		for _, t := range cm.turns[:tailStart] {
			if t.Role == RoleSystem {
				system = append(system, t)
			} else {
				middle = append(middle, t)
			}
		}

		sort.SliceStable(middle, func(i, j int) bool {
			return middle[i].Timestamp.After(middle[j].Timestamp)
		})

		keep := cm.cfg.MaxMessages - len(system) - cm.cfg.MinRecentMessages
		if keep < 0 {
			keep = 0
		}
		if keep > len(middle) {
			keep = len(middle)
		}

		rebuilt := make([]Turn, 0, len(system)+keep+len(recent))
		rebuilt = append(rebuilt, system...)
		rebuilt = append(rebuilt, middle[:keep]...)
		rebuilt = append(rebuilt, recent...)
		cm.turns = rebuilt
	}

	total := 0
	for _, t := range cm.turns {
		total += t.TokenCount
	}
	for total > cm.cfg.MaxTokens && len(cm.turns) > 1 {
		removed := false
		cutoff := len(cm.turns) - cm.cfg.MinRecentMessages
		for i, t := range cm.turns {
			if t.Role != RoleSystem && i < cutoff {
				total -= t.TokenCount
				cm.turns = append(cm.turns[:i], cm.turns[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
}

func (cm *ContextManager) countTokens(text string) int {
	if text == "" {
		return 0
	}
	return cm.counter.Count(text)
}
