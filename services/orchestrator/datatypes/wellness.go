// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Wellness request types: dosha assessment, recommendations, herbs,
// and knowledge-base articles.
package datatypes

// QuizRequest is the body of POST /v1/dosha/quiz. Responses maps
// question ids to the chosen option keys.
type QuizRequest struct {
	Responses map[string]string `json:"responses" binding:"required,min=1"`
	UserID    string            `json:"user_id"`
}

// SymptomRequest is the body of POST /v1/dosha/analyze-symptoms.
type SymptomRequest struct {
	Symptoms []string `json:"symptoms" binding:"required,min=1,dive,required"`
	UserID   string   `json:"user_id"`
}

// RecommendationQuery holds the parameters of GET /v1/recommendations.
//
// # Fields
//
//   - Query: Free-text concern ("poor sleep", "joint pain").
//   - Dosha/Season: Optional filters validated against the known sets.
//   - City/Country: When UseWeather is set, current conditions for this
//     location are folded into the search text.
//   - Limit: Result cap, defaulted by the ranker when zero.
type RecommendationQuery struct {
	Query         string `form:"query"`
	UserID        string `form:"user_id"`
	Dosha         string `form:"dosha" binding:"omitempty,dosha"`
	Season        string `form:"season" binding:"omitempty,season"`
	TimeOfDay     string `form:"time_of_day"`
	HealthConcern string `form:"health_concern"`
	Limit         int    `form:"limit" binding:"omitempty,gte=1,lte=20"`
	UseWeather    bool   `form:"use_weather"`
	City          string `form:"city"`
	Country       string `form:"country"`
}

// HerbRequest is the body of POST /v1/recommendations/herbs.
type HerbRequest struct {
	UserID            string   `json:"user_id"`
	Symptoms          []string `json:"symptoms"`
	Dosha             string   `json:"dosha" binding:"omitempty,dosha"`
	Season            string   `json:"season" binding:"omitempty,season"`
	CurrentAilments   []string `json:"current_ailments"`
	Contraindications []string `json:"contraindications"`
}

// ArticleIngestRequest is the body of POST /v1/articles. Content is
// chunked, embedded, and batch-written to the knowledge base.
type ArticleIngestRequest struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Category   string `json:"category"`
	Dosha      string `json:"dosha" binding:"omitempty,dosha"`
	SourceURL  string `json:"source_url"`
	VersionTag string `json:"version_tag"`
}

// EnsureDefaults fills optional ingest fields.
func (r *ArticleIngestRequest) EnsureDefaults() {
	if r.Category == "" {
		r.Category = "general"
	}
	if r.VersionTag == "" {
		r.VersionTag = "latest"
	}
}

// ArticleIngestData reports how much of an article survived chunking
// and batch import.
type ArticleIngestData struct {
	Source          string `json:"source"`
	ChunksProcessed int    `json:"chunks_processed"`
}

// ArticleSearchQuery holds the parameters of GET /v1/articles.
type ArticleSearchQuery struct {
	Query string `form:"query" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,gte=1,lte=50"`
}

// InteractionRequest is the body of POST /v1/articles/:articleId/interactions.
// Kind is one of view, like, share, or read; read interactions may
// carry the time spent reading.
type InteractionRequest struct {
	UserID          string         `json:"user_id" binding:"required"`
	Kind            string         `json:"kind" binding:"required,oneof=view like share save read"`
	ReadTimeSeconds *float64       `json:"read_time_seconds"`
	Metadata        map[string]any `json:"metadata"`
}

// EngagementQuery holds the parameters of the engagement analytics
// endpoints. Days bounds the activity window.
type EngagementQuery struct {
	Days int `form:"days" binding:"omitempty,gte=1,lte=365"`
}

// ArticleRecommendationQuery holds the parameters of
// GET /v1/recommendations/articles.
type ArticleRecommendationQuery struct {
	UserID        string `form:"user_id"`
	Limit         int    `form:"limit" binding:"omitempty,gte=1,lte=50"`
	ExcludeViewed bool   `form:"exclude_viewed"`
}
