// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"log/slog"
	"math"
	"sort"
	"time"
)

// Article interaction kinds accepted by LogArticleInteraction.
const (
	InteractionView  = "view"
	InteractionLike  = "like"
	InteractionShare = "share"
	InteractionSave  = "save"
)

// ArticleMetrics aggregates engagement for one article. Every interaction
// counts as a view; likes, shares and saves are counted on top of that.
type ArticleMetrics struct {
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Shares      int64     `json:"shares"`
	Saves       int64     `json:"saves"`
	AvgReadTime float64   `json:"avg_read_time"`
	LastViewed  time.Time `json:"last_viewed"`
}

// ArticleRecommendation pairs an article with its popularity score.
type ArticleRecommendation struct {
	ArticleID string  `json:"article_id"`
	Score     float64 `json:"score"`
}

// LogArticleInteraction records one article event as an article_recommender
// tool invocation.
//
// # Inputs
//   - userID: the interacting user; empty skips session bookkeeping.
//   - articleID: the article, required.
//   - kind: one of the Interaction* constants; unknown kinds still count
//     as a view.
//   - readTimeSeconds: optional time spent reading, folded into the
//     article's incremental mean read time.
//   - extra: additional metadata merged into the invocation record.
func (t *Tracker) LogArticleInteraction(userID, articleID, kind string, readTimeSeconds *float64, extra map[string]any) {
	if articleID == "" {
		return
	}
	if kind == "" {
		kind = InteractionView
	}

	meta := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		meta[k] = v
	}
	meta["article_id"] = articleID
	meta["interaction_type"] = kind
	if readTimeSeconds != nil {
		meta["read_time_seconds"] = *readTimeSeconds
	}

	t.LogToolUse(Invocation{
		Tool:     ToolArticleRecommender,
		UserID:   userID,
		Success:  true,
		Metadata: meta,
	})
	slog.Info("Article interaction logged",
		"article_id", articleID,
		"interaction_type", kind,
		"user_id", userID)
}

// recordArticleEvent applies one interaction to the article's metrics and,
// when a user is attached, marks the article as viewed by that user. Caller
// holds the mutex.
func (t *Tracker) recordArticleEvent(userID, articleID string, meta map[string]any) {
	am := t.articles[articleID]
	if am == nil {
		am = &ArticleMetrics{}
		t.articles[articleID] = am
	}

	am.Views++
	am.LastViewed = t.now()

	switch metadataString(meta, "interaction_type") {
	case InteractionLike:
		am.Likes++
	case InteractionShare:
		am.Shares++
	case InteractionSave:
		am.Saves++
	}

	if rt, ok := metadataFloat(meta, "read_time_seconds"); ok && rt > 0 {
		am.AvgReadTime = (am.AvgReadTime*float64(am.Views-1) + rt) / float64(am.Views)
	}

	if userID != "" {
		if sess := t.users[userID]; sess != nil {
			if sess.ViewedArticles == nil {
				sess.ViewedArticles = make(map[string]struct{})
			}
			sess.ViewedArticles[articleID] = struct{}{}
		}
	}
}

// GetArticleMetrics returns the metrics for one article. The second return
// is false when the article has never been interacted with.
func (t *Tracker) GetArticleMetrics(articleID string) (ArticleMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	am, ok := t.articles[articleID]
	if !ok {
		return ArticleMetrics{}, false
	}
	return *am, true
}

// AllArticleMetrics returns the metrics for every article seen so far.
func (t *Tracker) AllArticleMetrics() map[string]ArticleMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ArticleMetrics, len(t.articles))
	for id, am := range t.articles {
		out[id] = *am
	}
	return out
}

// RecommendArticles ranks articles by time-decayed popularity.
//
// # Description
//
// Each article scores likes*2 + shares*3 + saves*2.5 + min(views/10, 10),
// multiplied by 0.95 per whole day since it was last viewed. When
// excludeViewed is set, articles the user has already interacted with are
// dropped; the viewed set comes from that user's own interaction history.
// Results are sorted by score descending, then article ID, and truncated
// to limit.
func (t *Tracker) RecommendArticles(userID string, limit int, excludeViewed bool) []ArticleRecommendation {
	if limit <= 0 {
		limit = 5
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var viewed map[string]struct{}
	if excludeViewed && userID != "" {
		if sess := t.users[userID]; sess != nil {
			viewed = sess.ViewedArticles
		}
	}

	now := t.now()
	recs := make([]ArticleRecommendation, 0, len(t.articles))
	for id, am := range t.articles {
		if _, seen := viewed[id]; seen {
			continue
		}
		recs = append(recs, ArticleRecommendation{
			ArticleID: id,
			Score:     popularityScore(am, now),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ArticleID < recs[j].ArticleID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// popularityScore computes the decayed engagement score for one article.
func popularityScore(am *ArticleMetrics, now time.Time) float64 {
	score := float64(am.Likes)*2 +
		float64(am.Shares)*3 +
		float64(am.Saves)*2.5 +
		math.Min(float64(am.Views)/10, 10)

	if !am.LastViewed.IsZero() {
		days := int(now.Sub(am.LastViewed).Hours() / 24)
		if days > 0 {
			score *= math.Pow(0.95, float64(days))
		}
	}
	return score
}
