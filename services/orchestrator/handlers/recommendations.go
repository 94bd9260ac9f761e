// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/herbs"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/ranking"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/weather"
)

// defaultArticleRecommendations is the article count served when the
// caller does not ask for a specific number.
const defaultArticleRecommendations = 5

// RecommendationData is the payload of the general recommendation
// endpoint. Season reports the value the ranking actually used, which
// may come from live weather rather than the query.
type RecommendationData struct {
	Recommendations []ranking.Recommendation `json:"recommendations"`
	Count           int                      `json:"count"`
	Season          string                   `json:"season,omitempty"`
}

// ArticleRecommendationData is the payload of the engagement-driven
// article recommendation endpoint.
type ArticleRecommendationData struct {
	Recommendations []tracker.ArticleRecommendation `json:"recommendations"`
	Count           int                             `json:"count"`
}

// Recommendations serves personalized wellness recommendations.
//
// # Description
//
// The query's explicit filters are taken as-is. With use_weather set and
// a weather client wired, current conditions fill the season (unless the
// caller named one) and attach temperature and humidity to the ranking
// query. A failed weather lookup only logs; the request continues
// without conditions.
func Recommendations(ranker *ranking.Ranker, weatherClient *weather.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Recommendations")
		defer span.End()

		var q datatypes.RecommendationQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid recommendation query", err))
			return
		}
		if ranker == nil {
			knowledgeBaseDisabled(c)
			return
		}

		query := ranking.Query{
			Text:          q.Query,
			Dosha:         strings.ToLower(q.Dosha),
			Season:        strings.ToLower(q.Season),
			TimeOfDay:     q.TimeOfDay,
			HealthConcern: q.HealthConcern,
		}
		if q.UseWeather && weatherClient != nil {
			report, err := weatherClient.Current(ctx, q.City, q.Country)
			if err != nil {
				span.RecordError(err)
				slog.Warn("Weather lookup failed, ranking without conditions", "error", err)
			} else if report != nil {
				if query.Season == "" {
					query.Season = report.Season()
				}
				humidity := float64(report.Humidity)
				query.Weather = &ranking.Weather{
					Temperature: &report.Temperature,
					Humidity:    &humidity,
				}
			}
		}

		userID := middleware.UserID(c, q.UserID)
		recs := ranker.Recommendations(ctx, userID, query)
		if q.Limit > 0 && len(recs) > q.Limit {
			recs = recs[:q.Limit]
		}
		c.JSON(http.StatusOK, datatypes.Success(RecommendationData{
			Recommendations: recs,
			Count:           len(recs),
			Season:          query.Season,
		}))
	}
}

// HerbRecommendations serves symptom-driven herb suggestions.
func HerbRecommendations(recommender *herbs.Recommender) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HerbRecommendations")
		defer span.End()

		var req datatypes.HerbRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid herb request", err))
			return
		}
		if recommender == nil {
			knowledgeBaseDisabled(c)
			return
		}

		userID := middleware.UserID(c, req.UserID)
		resp := recommender.Recommend(ctx, userID, herbs.Request{
			Symptoms:          req.Symptoms,
			Dosha:             strings.ToLower(req.Dosha),
			Season:            strings.ToLower(req.Season),
			CurrentAilments:   req.CurrentAilments,
			Contraindications: req.Contraindications,
		})
		c.JSON(http.StatusOK, datatypes.Success(resp))
	}
}

// ArticleRecommendations serves articles ranked by the caller's reading
// history and the content's overall engagement.
func ArticleRecommendations(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "ArticleRecommendations")
		defer span.End()

		var q datatypes.ArticleRecommendationQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid recommendation query", err))
			return
		}
		if tr == nil {
			analyticsDisabled(c)
			return
		}

		userID := middleware.UserID(c, q.UserID)
		limit := q.Limit
		if limit <= 0 {
			limit = defaultArticleRecommendations
		}
		recs := tr.RecommendArticles(userID, limit, q.ExcludeViewed)
		c.JSON(http.StatusOK, datatypes.Success(ArticleRecommendationData{
			Recommendations: recs,
			Count:           len(recs),
		}))
	}
}
