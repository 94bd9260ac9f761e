// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate/entities/models"
)

// HerbDocumentSchema returns the class definition for knowledge-base
// chunks. Vectorizer is "none": vectors come from the external embedder.
func HerbDocumentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       ClassName,
		Description: "A chunk of Ayurvedic reference text with its provenance.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The chunk text.",
				Tokenization: "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "Document or article the chunk came from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "category",
				DataType:        []string{"text"},
				Description:     "Editorial category (herb, remedy, article, ...).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "dosha",
				DataType:        []string{"text"},
				Description:     "Dosha the chunk primarily addresses, if any.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "source_url",
				DataType:     []string{"text"},
				Description:  "Public URL of the source, if any.",
				Tokenization: "field",
			},
			{
				Name:            "version_tag",
				DataType:        []string{"text"},
				Description:     "Ingestion batch tag, distinguishes KB chunks from article imports.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "ingested_at",
				DataType:        []string{"int"},
				Description:     "Ingestion time in Unix milliseconds.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureSchema creates the HerbDocument class when it does not exist yet.
// Existing classes are left untouched.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	class := HerbDocumentSchema()
	slog.Info("Checking schema", "class", class.Class)

	_, err := s.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
	if err == nil {
		slog.Info("Schema already exists", "class", class.Class)
		return nil
	}

	// The getter errors when the class is missing; create it.
	slog.Info("Schema not found, creating it...", "class", class.Class)
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create schema for class %s: %w", class.Class, err)
	}
	slog.Info("Successfully created schema", "class", class.Class)
	return nil
}
