// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval provides vector search over the Ayurvedic knowledge base.
//
// # Description
//
// The knowledge base lives in a Weaviate class (HerbDocument) whose vectors
// are computed externally through an llm.Embedder, so the class carries no
// vectorizer of its own. SimilaritySearch embeds the query and runs a
// nearVector search; AddDocuments embeds and batch-imports chunks with
// content-hash IDs so re-ingesting the same text never duplicates it.
//
// When no Weaviate endpoint is configured the factory returns a nil store
// and the service runs in lightweight mode: retrieval-backed features are
// disabled, everything else keeps working.
package retrieval

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Document is one similarity-search hit.
//
// Metadata carries the stored properties plus the Weaviate object id under
// "id"; Score is the search certainty in [0, 1], higher is closer.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// ID returns the stable document id from metadata, or "" when the store
// provided none.
func (d Document) ID() string {
	if d.Metadata == nil {
		return ""
	}
	if id, ok := d.Metadata["id"].(string); ok {
		return id
	}
	return ""
}

// Source returns the stored source label, or "Unknown".
func (d Document) Source() string {
	if d.Metadata != nil {
		if s, ok := d.Metadata["source"].(string); ok && s != "" {
			return s
		}
	}
	return "Unknown"
}

// Store runs similarity searches against the knowledge base.
type Store interface {
	// SimilaritySearch returns up to k documents ordered by decreasing
	// similarity to query.
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}

// Config holds the retrieval settings.
type Config struct {
	// URL is the Weaviate endpoint. Empty enables lightweight mode.
	URL string

	// MaxEmbedLength caps the query length sent to the embedder.
	MaxEmbedLength int
}

// DefaultConfig reads retrieval settings from the environment.
func DefaultConfig() Config {
	return Config{
		URL:            os.Getenv("WEAVIATE_SERVICE_URL"),
		MaxEmbedLength: getEnvInt("RETRIEVAL_MAX_EMBED_LENGTH", 2000),
	}
}

// New builds a WeaviateStore from cfg, or nil when no usable endpoint is
// configured.
//
// # Description
//
// The URL is sanitized (container runtimes sometimes pass quotes through
// literally) and must parse with a scheme and host. Anything else logs the
// reason and returns a nil store, which callers treat as lightweight mode.
func New(cfg Config, embedder Embedder) (*WeaviateStore, error) {
	rawURL := strings.Trim(cfg.URL, "\"' ")
	if rawURL == "" {
		slog.Info("WEAVIATE_SERVICE_URL not set. Running in lightweight mode (chat only).")
		return nil, nil
	}
	if !strings.Contains(rawURL, "http") {
		slog.Warn("WEAVIATE_SERVICE_URL has no scheme. Running in lightweight mode.", "url", rawURL)
		return nil, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
			"url", rawURL, "error", err)
		return nil, nil
	}

	return NewWeaviateStore(parsed.Scheme, parsed.Host, embedder, cfg)
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
