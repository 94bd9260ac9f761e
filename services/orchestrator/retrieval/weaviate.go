// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ayurveda.orchestrator.retrieval")

// ClassName is the Weaviate class holding knowledge-base chunks.
const ClassName = "HerbDocument"

// Embedder computes the query and document vectors. Embeddings must be
// deterministic for a given text so content-hash IDs stay meaningful.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IngestDocument is one chunk to add to the knowledge base.
type IngestDocument struct {
	Content    string
	Source     string
	Category   string
	Dosha      string
	SourceURL  string
	VersionTag string
}

// WeaviateStore implements Store against a Weaviate instance.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying client pools connections.
type WeaviateStore struct {
	client   *weaviate.Client
	embedder Embedder
	cfg      Config
}

var _ Store = (*WeaviateStore)(nil)

// NewWeaviateStore builds a store for the given endpoint.
func NewWeaviateStore(scheme, host string, embedder Embedder, cfg Config) (*WeaviateStore, error) {
	if cfg.MaxEmbedLength < 1 {
		cfg.MaxEmbedLength = 2000
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   host,
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	return &WeaviateStore{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
	}, nil
}

// SimilaritySearch embeds query and returns the k nearest knowledge-base
// chunks, highest certainty first.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - query: The search text; truncated to MaxEmbedLength before embedding.
//   - k: Maximum number of documents to return.
//
// # Outputs
//
//   - []Document: Hits with content, metadata (id, source, category, dosha,
//     source_url, version_tag) and certainty score.
//   - error: Non-nil if embedding or the search fails.
func (s *WeaviateStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "SimilaritySearch")
	defer span.End()

	if k <= 0 {
		return []Document{}, nil
	}

	vector, err := s.embedder.Embed(ctx, truncateForEmbedding(query, s.cfg.MaxEmbedLength))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Certainty is requested instead of distance so scores stay in [0, 1]
	// regardless of the index's distance metric.
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "category"},
		{Name: "dosha"},
		{Name: "source_url"},
		{Name: "version_tag"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		slog.Error("Knowledge base search failed", "error", err)
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := parseGraphQL[herbDocQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	docs := toDocuments(parsed)
	slog.Debug("Knowledge base search finished", "query_len", len(query), "hits", len(docs))
	return docs, nil
}

// AddDocuments embeds and batch-imports chunks into the knowledge base.
//
// # Description
//
// Each chunk's object ID is derived from a SHA-256 of its content, so
// ingesting identical text twice overwrites rather than duplicates. Returns
// the number of chunks the batch reported as created.
func (s *WeaviateStore) AddDocuments(ctx context.Context, docs []IngestDocument) (int, error) {
	ctx, span := tracer.Start(ctx, "AddDocuments")
	defer span.End()

	if len(docs) == 0 {
		return 0, nil
	}

	objects := make([]*models.Object, 0, len(docs))
	for _, doc := range docs {
		vector, err := s.embedder.Embed(ctx, truncateForEmbedding(doc.Content, s.cfg.MaxEmbedLength))
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk from %q: %w", doc.Source, err)
		}

		objects = append(objects, &models.Object{
			Class:  ClassName,
			ID:     strfmt.UUID(deterministicDocID(doc.Content)),
			Vector: vector,
			Properties: map[string]interface{}{
				"content":     doc.Content,
				"source":      doc.Source,
				"category":    doc.Category,
				"dosha":       doc.Dosha,
				"source_url":  doc.SourceURL,
				"version_tag": doc.VersionTag,
				"ingested_at": time.Now().UnixMilli(),
			},
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		slog.Error("Failed to batch import knowledge base chunks", "error", err)
		return 0, fmt.Errorf("failed to save objects to weaviate: %w", err)
	}

	created := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			created++
		} else {
			slog.Warn("Chunk import rejected", "id", item.ID)
		}
	}
	return created, nil
}

// deterministicDocID derives a stable UUID from chunk content.
func deterministicDocID(content string) string {
	hash := sha256.Sum256([]byte(content))
	docUUID, _ := uuid.FromBytes(hash[:16])
	return docUUID.String()
}

// truncateForEmbedding caps text at max bytes.
func truncateForEmbedding(text string, max int) string {
	if len(text) > max {
		return text[:max]
	}
	return text
}

// herbDocQueryResponse mirrors the GraphQL shape of a HerbDocument query.
type herbDocQueryResponse struct {
	Get struct {
		HerbDocument []herbDocResult `json:"HerbDocument"`
	} `json:"Get"`
}

type herbDocResult struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	Category   string `json:"category"`
	Dosha      string `json:"dosha"`
	SourceURL  string `json:"source_url"`
	VersionTag string `json:"version_tag"`
	Additional struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// parseGraphQL converts Weaviate's dynamic response into a typed struct via
// a marshal round trip.
func parseGraphQL[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}

// toDocuments flattens parsed results into Documents.
func toDocuments(resp *herbDocQueryResponse) []Document {
	if resp == nil {
		return []Document{}
	}

	docs := make([]Document, 0, len(resp.Get.HerbDocument))
	for _, hit := range resp.Get.HerbDocument {
		meta := map[string]any{
			"id":          hit.Additional.ID,
			"source":      hit.Source,
			"category":    hit.Category,
			"dosha":       hit.Dosha,
			"source_url":  hit.SourceURL,
			"version_tag": hit.VersionTag,
		}

		var score float64
		if hit.Additional.Certainty != nil {
			score = float64(*hit.Additional.Certainty)
		}

		docs = append(docs, Document{
			Content:  hit.Content,
			Metadata: meta,
			Score:    score,
		})
	}
	return docs
}
