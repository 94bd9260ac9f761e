// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dosha

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeVataImbalanceWithSecondary(t *testing.T) {
	a := NewSymptomAnalyzer()
	analysis := a.Analyze([]string{"dry skin", "constipation", "anxiety", "heartburn"})

	// Vata 3, Pitta 1: the gap of 2 keeps Pitta as secondary.
	assert.Equal(t, Vata, analysis.PrimaryDosha)
	assert.Equal(t, Pitta, analysis.SecondaryDosha)
	assert.InDelta(t, 0.75, analysis.Confidence, 1e-9)

	// Tips for both reported doshas, primary first.
	require.Len(t, analysis.Recommendations, 10)
	assert.Equal(t, balancingTips[Vata][0], analysis.Recommendations[0])
	assert.Equal(t, balancingTips[Pitta][0], analysis.Recommendations[5])

	require.Contains(t, analysis.Details, string(Vata))
	require.Contains(t, analysis.Details, string(Pitta))
	assert.Equal(t, 3, analysis.Details[string(Vata)].Score)
	assert.InDelta(t, 0.75, analysis.Details[string(Vata)].NormalizedScore, 1e-9)
	assert.Equal(t, []string{"dry skin", "constipation", "anxiety"}, analysis.Details[string(Vata)].MatchedSymptoms)

	assert.Equal(t, []string{"heartburn"}, analysis.MatchedSymptoms[string(Pitta)])
}

func TestAnalyzeSuppressesDistantSecondary(t *testing.T) {
	a := NewSymptomAnalyzer()
	analysis := a.Analyze([]string{
		"dry skin", "dry hair", "constipation", "gas", "insomnia", "heartburn",
	})

	// Vata 5, Pitta 1: a gap above 2 drops the secondary.
	assert.Equal(t, Vata, analysis.PrimaryDosha)
	assert.Equal(t, Dosha(""), analysis.SecondaryDosha)
	assert.Len(t, analysis.Recommendations, 5)
	assert.Len(t, analysis.Details, 1)
}

func TestAnalyzeSuppressesZeroScoreSecondary(t *testing.T) {
	a := NewSymptomAnalyzer()
	analysis := a.Analyze([]string{"acne", "inflammation"})

	assert.Equal(t, Pitta, analysis.PrimaryDosha)
	assert.Equal(t, Dosha(""), analysis.SecondaryDosha)
	assert.InDelta(t, 1.0, analysis.Confidence, 1e-9)
}

func TestAnalyzeNoRecognizedSymptoms(t *testing.T) {
	a := NewSymptomAnalyzer()
	analysis := a.Analyze([]string{"hiccups", ""})

	assert.Equal(t, Dosha(""), analysis.PrimaryDosha)
	assert.InDelta(t, 0.0, analysis.Confidence, 1e-9)
	require.Len(t, analysis.Recommendations, 1)
	assert.Contains(t, analysis.Recommendations[0], "No specific dosha imbalance detected")
	assert.Empty(t, analysis.Details)
	assert.Empty(t, analysis.MatchedSymptoms)
}

func TestAnalyzeMatchesCaseAndWhitespaceInsensitively(t *testing.T) {
	a := NewSymptomAnalyzer()
	analysis := a.Analyze([]string{"Dry Skin", "  ANXIETY  "})

	assert.Equal(t, Vata, analysis.PrimaryDosha)
	assert.Equal(t, 2, analysis.Details[string(Vata)].Score)

	// Matched symptoms keep the caller's original spelling.
	assert.Equal(t, []string{"Dry Skin", "  ANXIETY  "}, analysis.MatchedSymptoms[string(Vata)])
}

func TestAnalyzeTieResolvesInFixedOrder(t *testing.T) {
	a := NewSymptomAnalyzer()
	analysis := a.Analyze([]string{"acne", "dry skin"})

	assert.Equal(t, Vata, analysis.PrimaryDosha)
	assert.Equal(t, Pitta, analysis.SecondaryDosha)
	assert.InDelta(t, 0.5, analysis.Confidence, 1e-9)
}

func TestKnownSymptomsTableSize(t *testing.T) {
	a := NewSymptomAnalyzer()
	assert.Equal(t, 43, a.KnownSymptoms())
}
