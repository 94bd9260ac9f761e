// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
)

// defaultEngagementDays is the reporting window when the caller does not
// name one.
const defaultEngagementDays = 7

// ToolAnalyticsData is the payload of the tool usage endpoint.
type ToolAnalyticsData struct {
	Tools map[string]tracker.ToolMetrics `json:"tools"`
	Count int                            `json:"count"`
}

// ArticleAnalyticsData is the payload of the article metrics endpoint.
type ArticleAnalyticsData struct {
	Articles map[string]tracker.ArticleMetrics `json:"articles"`
	Count    int                               `json:"count"`
}

// EngagementData is the payload of the engagement overview endpoint.
type EngagementData struct {
	Users map[string]tracker.UserEngagement `json:"users"`
	Count int                               `json:"count"`
	Days  int                               `json:"days"`
}

// ToolAnalytics returns aggregated usage metrics for every tool.
func ToolAnalytics(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tr == nil {
			analyticsDisabled(c)
			return
		}
		tools := tr.AllToolMetrics()
		c.JSON(http.StatusOK, datatypes.Success(ToolAnalyticsData{
			Tools: tools,
			Count: len(tools),
		}))
	}
}

// ToolAnalyticsByName returns the metrics of one tool.
func ToolAnalyticsByName(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tr == nil {
			analyticsDisabled(c)
			return
		}
		metrics, ok := tr.GetToolMetrics(c.Param("tool"))
		if !ok {
			c.JSON(http.StatusNotFound, datatypes.Failure("no usage recorded for that tool"))
			return
		}
		c.JSON(http.StatusOK, datatypes.Success(metrics))
	}
}

// ArticleAnalytics returns engagement metrics for every tracked article.
func ArticleAnalytics(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tr == nil {
			analyticsDisabled(c)
			return
		}
		articles := tr.AllArticleMetrics()
		c.JSON(http.StatusOK, datatypes.Success(ArticleAnalyticsData{
			Articles: articles,
			Count:    len(articles),
		}))
	}
}

// ArticleAnalyticsByID returns the metrics of one article.
func ArticleAnalyticsByID(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tr == nil {
			analyticsDisabled(c)
			return
		}
		metrics, ok := tr.GetArticleMetrics(c.Param("articleId"))
		if !ok {
			c.JSON(http.StatusNotFound, datatypes.Failure("no interactions recorded for that article"))
			return
		}
		c.JSON(http.StatusOK, datatypes.Success(metrics))
	}
}

// EngagementAnalytics returns per-user engagement over the requested
// window.
func EngagementAnalytics(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q datatypes.EngagementQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid engagement query", err))
			return
		}
		if tr == nil {
			analyticsDisabled(c)
			return
		}
		days := q.Days
		if days <= 0 {
			days = defaultEngagementDays
		}
		users := tr.AllUserEngagement(days)
		c.JSON(http.StatusOK, datatypes.Success(EngagementData{
			Users: users,
			Count: len(users),
			Days:  days,
		}))
	}
}

// EngagementByUser returns one user's engagement over the requested
// window.
func EngagementByUser(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q datatypes.EngagementQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid engagement query", err))
			return
		}
		if tr == nil {
			analyticsDisabled(c)
			return
		}
		days := q.Days
		if days <= 0 {
			days = defaultEngagementDays
		}
		engagement, ok := tr.GetUserEngagement(c.Param("userId"), days)
		if !ok {
			c.JSON(http.StatusNotFound, datatypes.Failure("no engagement recorded for that user"))
			return
		}
		c.JSON(http.StatusOK, datatypes.Success(engagement))
	}
}
