// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
)

func TestAnalyzeTopicsScoresAndPrimary(t *testing.T) {
	docs := []retrieval.Document{
		{Content: "Vata dosha governs movement and the nervous system.", Score: 0.9},
		{Content: "Pitta dosha rules digestion and transformation.", Score: 0.7},
	}

	analysis := analyzeTopics(docs)

	// dosha: "dosha" twice plus "vata" and "pitta" once each.
	// prakriti: only related-term hits at half weight.
	assert.InDelta(t, 1.0, analysis.Topics["dosha"].Score, 1e-9)
	assert.InDelta(t, 0.5, analysis.Topics["prakriti"].Score, 1e-9)
	assert.Equal(t, "dosha", analysis.PrimaryTopic)
	assert.Equal(t, "Balanced according to dosha type", analysis.Recommendations["diet"])
}

func TestAnalyzeTopicsNoMatches(t *testing.T) {
	docs := []retrieval.Document{
		{Content: "The quick brown fox jumps over the lazy dog.", Score: 0.4},
	}

	analysis := analyzeTopics(docs)

	assert.Empty(t, analysis.PrimaryTopic)
	assert.Nil(t, analysis.Recommendations)
	assert.InDelta(t, 0.0, analysis.Topics["dosha"].Score, 1e-9)
	assert.InDelta(t, 0.0, analysis.Topics["prakriti"].Score, 1e-9)
}

func TestAnalyzeTopicsCountsOverlappingKeywordOnce(t *testing.T) {
	// "prakriti" is both a topic name and one of its keywords; it must
	// score a single occurrence once.
	docs := []retrieval.Document{{Content: "prakriti", Score: 0.5}}

	analysis := analyzeTopics(docs)

	assert.Equal(t, "prakriti", analysis.PrimaryTopic)
	assert.InDelta(t, 1.0, analysis.Topics["prakriti"].Score, 1e-9)
	assert.InDelta(t, 0.5, analysis.Topics["dosha"].Score, 1e-9)
	assert.Equal(t, "Pulse and physical examination", analysis.Recommendations["assessment"])
}

func TestAnalyzeTopicsTieKeepsTableOrder(t *testing.T) {
	// One hit each way scores both topics 1.5 raw; the earlier table
	// entry wins the tie.
	docs := []retrieval.Document{{Content: "dosha prakriti", Score: 0.5}}

	analysis := analyzeTopics(docs)

	assert.Equal(t, "dosha", analysis.PrimaryTopic)
}

func TestAnalyzeDocumentsStatistics(t *testing.T) {
	docs := []retrieval.Document{
		{Content: "Triphala supports digestion.", Score: 0.9, Metadata: map[string]any{"source": "herbs.pdf"}},
		{Content: "Ashwagandha calms vata.", Score: 0.7},
		{Content: "Brahmi sharpens the mind.", Score: 0.5},
	}

	analysis := analyzeDocuments(docs)
	require.NotNil(t, analysis)

	assert.InDelta(t, 0.7, analysis.AverageSimilarity, 1e-9)
	assert.InDelta(t, 0.5, analysis.ScoreDistribution.Min, 1e-9)
	assert.InDelta(t, 0.9, analysis.ScoreDistribution.Max, 1e-9)
	assert.InDelta(t, 0.7, analysis.ScoreDistribution.Average, 1e-9)
	assert.Equal(t, 3, analysis.DocumentCount)

	require.NotNil(t, analysis.MostRelevant)
	assert.Equal(t, "Triphala supports digestion.", analysis.MostRelevant.Content)
	assert.InDelta(t, 0.9, analysis.MostRelevant.Score, 1e-9)
	assert.Equal(t, "herbs.pdf", analysis.MostRelevant.Metadata["source"])
}

func TestAnalyzeDocumentsEmpty(t *testing.T) {
	assert.Nil(t, analyzeDocuments(nil))
}
