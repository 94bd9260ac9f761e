// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel/codes"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/middleware"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
)

const (
	// chunkSize is the target chunk length in characters; overlap is a
	// tenth of it so retrieval never loses a sentence at a boundary.
	chunkSize    = 1000
	chunkOverlap = chunkSize / 10

	defaultSearchLimit = 10
)

// Ingestor persists prepared document chunks into the knowledge base.
type Ingestor interface {
	AddDocuments(ctx context.Context, docs []retrieval.IngestDocument) (int, error)
}

// ArticleSearchData is the payload of the article search endpoint.
type ArticleSearchData struct {
	Query   string               `json:"query"`
	Results []retrieval.Document `json:"results"`
	Count   int                  `json:"count"`
}

// InteractionData confirms a recorded article interaction.
type InteractionData struct {
	ArticleID string `json:"article_id"`
	Kind      string `json:"kind"`
	Recorded  bool   `json:"recorded"`
}

// IngestArticle chunks an article and writes it to the knowledge base.
//
// # Description
//
// Content is split with a recursive character splitter so chunks break
// on paragraph and sentence boundaries where possible. Each chunk keeps
// the article title as its source label; chunk ids are derived from
// content inside the store, so re-ingesting the same article is an
// update, not a duplicate.
func IngestArticle(store Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "IngestArticle")
		defer span.End()

		var req datatypes.ArticleIngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid article", err))
			return
		}
		if store == nil {
			knowledgeBaseDisabled(c)
			return
		}
		req.EnsureDefaults()

		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		)
		chunks, err := splitter.SplitText(req.Content)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to split the article", "source", req.Title, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.FailureWithDetail("failed to split the article", err))
			return
		}

		docs := make([]retrieval.IngestDocument, 0, len(chunks))
		for _, chunk := range chunks {
			docs = append(docs, retrieval.IngestDocument{
				Content:    chunk,
				Source:     req.Title,
				Category:   req.Category,
				Dosha:      strings.ToLower(req.Dosha),
				SourceURL:  req.SourceURL,
				VersionTag: req.VersionTag,
			})
		}
		count, err := store.AddDocuments(ctx, docs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to store the article", "source", req.Title, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.FailureWithDetail("failed to store the article", err))
			return
		}

		slog.Info("Ingested article", "source", req.Title, "chunks", count)
		c.JSON(http.StatusCreated, datatypes.Success(datatypes.ArticleIngestData{
			Source:          req.Title,
			ChunksProcessed: count,
		}))
	}
}

// SearchArticles runs a similarity search over the knowledge base.
func SearchArticles(store retrieval.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "SearchArticles")
		defer span.End()

		var q datatypes.ArticleSearchQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid search query", err))
			return
		}
		if store == nil {
			knowledgeBaseDisabled(c)
			return
		}

		limit := q.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		docs, err := store.SimilaritySearch(ctx, q.Query, limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Article search failed", "query", q.Query, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.FailureWithDetail("search failed", err))
			return
		}
		if docs == nil {
			docs = []retrieval.Document{}
		}
		c.JSON(http.StatusOK, datatypes.Success(ArticleSearchData{
			Query:   q.Query,
			Results: docs,
			Count:   len(docs),
		}))
	}
}

// ArticleInteraction records a view, like, share or read event against
// the article in the path.
func ArticleInteraction(tr *tracker.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "ArticleInteraction")
		defer span.End()

		var req datatypes.InteractionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.FailureWithDetail("invalid interaction", err))
			return
		}
		if tr == nil {
			analyticsDisabled(c)
			return
		}

		articleID := c.Param("articleId")
		userID := middleware.UserID(c, req.UserID)
		tr.LogArticleInteraction(userID, articleID, req.Kind, req.ReadTimeSeconds, req.Metadata)
		c.JSON(http.StatusOK, datatypes.Success(InteractionData{
			ArticleID: articleID,
			Kind:      req.Kind,
			Recorded:  true,
		}))
	}
}
