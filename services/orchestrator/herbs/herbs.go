// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package herbs suggests Ayurvedic herbs and formulations.
//
// The recommender reuses the ranking engine, shaping symptoms, ailments,
// dosha and season into a recommendation query and then dropping any
// result whose text mentions a caller-supplied contraindication.
package herbs

import (
	"context"
	"strings"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/ranking"
)

// Request collects the herb recommendation filters. All fields are
// optional.
type Request struct {
	Symptoms          []string `json:"symptoms,omitempty"`
	Dosha             string   `json:"dosha,omitempty"`
	CurrentAilments   []string `json:"current_ailments,omitempty"`
	Season            string   `json:"season,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
}

// Parameters echoes the filters a response was built from.
type Parameters struct {
	Symptoms []string `json:"symptoms"`
	Dosha    string   `json:"dosha"`
	Season   string   `json:"season"`
}

// Response pairs recommendations with the parameters that produced them.
type Response struct {
	Recommendations []ranking.Recommendation `json:"recommendations"`
	Parameters      Parameters               `json:"parameters"`
}

// RecommendationSource produces ranked recommendations for a query.
type RecommendationSource interface {
	Recommendations(ctx context.Context, userID string, q ranking.Query) []ranking.Recommendation
}

// Recommender suggests herbs through a recommendation source.
type Recommender struct {
	source RecommendationSource
}

var _ RecommendationSource = (*ranking.Ranker)(nil)

// NewRecommender builds a Recommender on top of a recommendation source.
func NewRecommender(source RecommendationSource) *Recommender {
	return &Recommender{source: source}
}

// Recommend returns herb recommendations for the request.
//
// # Description
//
// Symptoms become the free-text query, current ailments the health
// concern, and dosha and season pass through as filters. Results whose
// content mentions any contraindication are dropped after ranking, so a
// contraindicated herb never reaches the caller even when it scores
// highest.
func (r *Recommender) Recommend(ctx context.Context, userID string, req Request) Response {
	q := ranking.Query{
		Text:          strings.Join(req.Symptoms, " "),
		Dosha:         req.Dosha,
		Season:        req.Season,
		HealthConcern: strings.Join(req.CurrentAilments, ", "),
	}

	recs := r.source.Recommendations(ctx, userID, q)
	recs = FilterContraindicated(recs, req.Contraindications)

	return Response{
		Recommendations: recs,
		Parameters: Parameters{
			Symptoms: req.Symptoms,
			Dosha:    req.Dosha,
			Season:   req.Season,
		},
	}
}

// FilterContraindicated drops recommendations whose content contains any
// contraindication term, case-insensitively. Blank terms are ignored so
// they cannot wipe the whole list.
func FilterContraindicated(recs []ranking.Recommendation, contraindications []string) []ranking.Recommendation {
	terms := make([]string, 0, len(contraindications))
	for _, c := range contraindications {
		if t := strings.ToLower(strings.TrimSpace(c)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return recs
	}

	filtered := make([]ranking.Recommendation, 0, len(recs))
	for _, rec := range recs {
		content := strings.ToLower(rec.Content)
		blocked := false
		for _, term := range terms {
			if strings.Contains(content, term) {
				blocked = true
				break
			}
		}
		if !blocked {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
