// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ranking fuses knowledge-base search results into personalized,
// classified recommendations.
//
// # Description
//
// A Ranker runs two similarity searches per request: one on a query built
// purely from explicit filters (dosha, season, time of day, health concern,
// bucketed weather) and one on the same query augmented with the user's
// stored preferences and recent interaction topics. The two result lists
// are fused by rank-decayed scoring with a personalization weight, so an
// item appearing on both lists outranks one appearing on only one, then
// classified as food, lifestyle or general.
//
// Personalization failures never fail a request: any search error degrades
// to a plain base-query search whose results are tagged Fallback, and a
// total failure yields an empty list.
package ranking

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
)

var tracer = otel.Tracer("ayurveda.orchestrator.ranking")

// Recommendation is one ranked, classified result.
type Recommendation struct {
	Content        string         `json:"content"`
	Source         string         `json:"source"`
	RelevanceScore float64        `json:"relevance_score"`
	Classification string         `json:"classification"`
	Metadata       map[string]any `json:"metadata"`
	Personalized   bool           `json:"personalized"`
	Fallback       bool           `json:"fallback,omitempty"`
}

// UserContext is the personalization input for one user.
type UserContext struct {
	// Preferences holds free-form preference keys; dietary_restrictions
	// and health_goals feed the personalized query.
	Preferences map[string]string

	// RecentInteractions holds recent interaction texts, newest first.
	RecentInteractions []string
}

// PreferenceProvider supplies per-user personalization context.
type PreferenceProvider interface {
	UserContext(ctx context.Context, userID string) (UserContext, error)
}

// Config holds the fusion parameters.
type Config struct {
	// TopK is the number of recommendations returned.
	TopK int

	// PersonalizationWeight scales the personal list's contribution.
	PersonalizationWeight float64
}

// DefaultConfig reads ranking settings from the environment.
func DefaultConfig() Config {
	return Config{
		TopK:                  getEnvInt("RANKING_TOP_K", 5),
		PersonalizationWeight: getEnvFloat("RANKING_PERSONALIZATION_WEIGHT", 0.3),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.PersonalizationWeight <= 0 {
		c.PersonalizationWeight = def.PersonalizationWeight
	}
	return c
}

// Ranker produces recommendations from a retrieval store.
type Ranker struct {
	store retrieval.Store
	prefs PreferenceProvider

	mu  sync.RWMutex
	cfg Config
}

// NewRanker builds a Ranker. prefs may be nil, disabling stored-preference
// personalization while keeping the two-pass search.
func NewRanker(cfg Config, store retrieval.Store, prefs PreferenceProvider) *Ranker {
	return &Ranker{cfg: cfg.withDefaults(), store: store, prefs: prefs}
}

// SetConfig swaps the fusion parameters at runtime. Requests in flight
// finish with the parameters they started with.
func (r *Ranker) SetConfig(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg.withDefaults()
	r.mu.Unlock()
}

func (r *Ranker) config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Recommendations returns up to TopK ranked recommendations for the query.
//
// # Description
//
// The base search over-fetches at TopK*3 for diversity and the personal
// search at TopK*2; fusion, classification and truncation follow. A failed
// preference lookup only logs: the request continues without stored
// context. A failed search degrades to a plain base-query search tagged
// Fallback; if that fails too, the result is an empty list. This method
// never reports an error because a chat turn must not fail on
// recommendation trouble.
func (r *Ranker) Recommendations(ctx context.Context, userID string, q Query) []Recommendation {
	ctx, span := tracer.Start(ctx, "Recommendations")
	defer span.End()

	if r.store == nil {
		return []Recommendation{}
	}

	cfg := r.config()
	baseQuery := BuildQueryText(q)

	userCtx := r.userContext(ctx, userID)
	personalQuery := addPersonalContext(baseQuery, userCtx)

	baseResults, err := r.store.SimilaritySearch(ctx, baseQuery, cfg.TopK*3)
	if err != nil {
		slog.Error("Base recommendation search failed", "error", err)
		return r.fallback(ctx, baseQuery)
	}

	personalResults, err := r.store.SimilaritySearch(ctx, personalQuery, cfg.TopK*2)
	if err != nil {
		slog.Error("Personalized recommendation search failed", "error", err)
		return r.fallback(ctx, baseQuery)
	}

	fused := fuse(baseResults, personalResults, cfg.PersonalizationWeight)

	// Sources appearing near the top of the personal list mark their
	// recommendations as personalized.
	personalSources := make(map[string]struct{})
	for i, doc := range personalResults {
		if i >= cfg.TopK {
			break
		}
		personalSources[doc.Source()] = struct{}{}
	}

	recs := make([]Recommendation, 0, len(fused))
	for _, entry := range fused {
		rec := Recommendation{
			Content:        entry.doc.Content,
			Source:         entry.doc.Source(),
			RelevanceScore: entry.score,
			Classification: Classify(entry.doc.Content),
			Metadata: map[string]any{
				"dosha":                 metaString(entry.doc.Metadata, "dosha"),
				"category":              metaString(entry.doc.Metadata, "category"),
				"source_url":            metaString(entry.doc.Metadata, "source_url"),
				"recommendation_source": entry.origin,
			},
		}
		_, rec.Personalized = personalSources[rec.Source]
		recs = append(recs, rec)
	}

	if len(recs) > cfg.TopK {
		recs = recs[:cfg.TopK]
	}
	return recs
}

// fallback runs a plain similarity search on the base query and tags the
// results. A failure here yields an empty list, never an error.
func (r *Ranker) fallback(ctx context.Context, baseQuery string) []Recommendation {
	results, err := r.store.SimilaritySearch(ctx, baseQuery, r.config().TopK)
	if err != nil {
		slog.Error("Fallback recommendation search failed", "error", err)
		return []Recommendation{}
	}

	recs := make([]Recommendation, 0, len(results))
	for i, doc := range results {
		recs = append(recs, Recommendation{
			Content:        doc.Content,
			Source:         doc.Source(),
			RelevanceScore: 1.0 - 0.1*float64(i),
			Classification: Classify(doc.Content),
			Metadata:       doc.Metadata,
			Fallback:       true,
		})
	}
	return recs
}

// userContext fetches personalization context, degrading to empty on any
// failure.
func (r *Ranker) userContext(ctx context.Context, userID string) UserContext {
	if r.prefs == nil || userID == "" {
		return UserContext{}
	}
	userCtx, err := r.prefs.UserContext(ctx, userID)
	if err != nil {
		slog.Warn("Failed to load user preferences", "user_id", userID, "error", err)
		return UserContext{}
	}
	return userCtx
}

// addPersonalContext augments the base query with preference and
// recent-topic text. Without stored preferences the base query passes
// through unchanged.
func addPersonalContext(baseQuery string, userCtx UserContext) string {
	if len(userCtx.Preferences) == 0 {
		return baseQuery
	}

	var parts []string
	if v := userCtx.Preferences["dietary_restrictions"]; v != "" {
		parts = append(parts, "Dietary restrictions: "+v)
	}
	if v := userCtx.Preferences["health_goals"]; v != "" {
		parts = append(parts, "Health goals: "+v)
	}
	if topics := recentTopics(userCtx.RecentInteractions); len(topics) > 0 {
		parts = append(parts, "Recently interested in: "+strings.Join(topics, ", "))
	}

	if len(parts) == 0 {
		return baseQuery
	}
	return baseQuery + ". Personal context: " + strings.Join(parts, "; ")
}

// recentTopics extracts up to the first ten words of each interaction,
// lowercased and deduplicated in first-seen order.
func recentTopics(interactions []string) []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, text := range interactions {
		words := strings.Fields(strings.ToLower(text))
		if len(words) > 10 {
			words = words[:10]
		}
		for _, w := range words {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			topics = append(topics, w)
		}
	}
	return topics
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
