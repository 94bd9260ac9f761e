// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the HTTP endpoints to their handlers.
package routes

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/handlers"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/herbs"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/ranking"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/weather"
)

// Deps carries everything the route table needs. Optional components
// (Ranker, Herbs, Search, Ingest, Weather, Tracker) may be nil; their
// endpoints then answer 503 instead of disappearing from the table, so
// clients see a stable contract across deployments.
type Deps struct {
	Arena      *sessions.Arena
	Advisor    *agent.Agent
	Tracker    *tracker.Tracker
	Ranker     *ranking.Ranker
	Herbs      *herbs.Recommender
	Profiles   *ranking.ProfileStore
	Search     retrieval.Store
	Ingest     handlers.Ingestor
	Calculator *dosha.Calculator
	Symptoms   *dosha.SymptomAnalyzer
	Weather    *weather.Client

	Version    string
	Started    time.Time
	Components map[string]string
}

// Setup registers every endpoint on router.
func Setup(router *gin.Engine, deps Deps) {
	registerValidators()

	router.GET("/health", handlers.Health(deps.Version, deps.Started, deps.Arena, deps.Components))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.Identity())
	{
		v1.POST("/chat", handlers.Chat(deps.Arena, deps.Advisor))
		v1.GET("/chat/history", handlers.ChatHistory(deps.Arena))
		v1.GET("/chat/ws", handlers.ChatSocket(deps.Arena, deps.Advisor))

		sessionGroup := v1.Group("/sessions")
		{
			sessionGroup.GET("", handlers.ListSessions(deps.Arena))
			sessionGroup.POST("", handlers.SwitchSession(deps.Arena))
			sessionGroup.GET("/:sessionId/history", handlers.SessionHistory(deps.Arena))
			sessionGroup.DELETE("/:sessionId", handlers.DeleteSession(deps.Arena))
			sessionGroup.POST("/:sessionId/clear", handlers.ClearSession(deps.Arena))
		}

		doshaGroup := v1.Group("/dosha")
		{
			doshaGroup.POST("/quiz", handlers.DoshaQuiz(deps.Calculator, deps.Profiles))
			doshaGroup.GET("/questions", handlers.DoshaQuestions(deps.Calculator))
			doshaGroup.POST("/analyze-symptoms", handlers.AnalyzeSymptoms(deps.Symptoms))
		}

		recommendationGroup := v1.Group("/recommendations")
		{
			recommendationGroup.GET("", handlers.Recommendations(deps.Ranker, deps.Weather))
			recommendationGroup.POST("/herbs", handlers.HerbRecommendations(deps.Herbs))
			recommendationGroup.GET("/articles", handlers.ArticleRecommendations(deps.Tracker))
		}

		articleGroup := v1.Group("/articles")
		{
			articleGroup.POST("", handlers.IngestArticle(deps.Ingest))
			articleGroup.GET("", handlers.SearchArticles(deps.Search))
			articleGroup.POST("/:articleId/interactions", handlers.ArticleInteraction(deps.Tracker))
		}

		analyticsGroup := v1.Group("/analytics")
		{
			analyticsGroup.GET("/tools", handlers.ToolAnalytics(deps.Tracker))
			analyticsGroup.GET("/tools/:tool", handlers.ToolAnalyticsByName(deps.Tracker))
			analyticsGroup.GET("/articles", handlers.ArticleAnalytics(deps.Tracker))
			analyticsGroup.GET("/articles/:articleId", handlers.ArticleAnalyticsByID(deps.Tracker))
			analyticsGroup.GET("/engagement", handlers.EngagementAnalytics(deps.Tracker))
			analyticsGroup.GET("/engagement/:userId", handlers.EngagementByUser(deps.Tracker))
		}
	}
}

// registerValidators installs the custom binding rules on gin's shared
// validator. Registration is idempotent, so repeated Setup calls (tests
// build several routers) are safe.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := datatypes.RegisterValidators(v); err != nil {
			slog.Warn("Failed to register binding validators", "error", err)
		}
	}
}
