// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dosha

import "strings"

// SymptomAnalysis is the outcome of a symptom screening.
type SymptomAnalysis struct {
	PrimaryDosha   Dosha `json:"primary_dosha,omitempty"`
	SecondaryDosha Dosha `json:"secondary_dosha,omitempty"`

	// Confidence is the primary dosha's share of all matched symptoms,
	// in [0, 1].
	Confidence float64 `json:"confidence"`

	Recommendations []string               `json:"recommendations"`
	Details         map[string]DoshaDetail `json:"details"`
	MatchedSymptoms map[string][]string    `json:"matched_symptoms"`
}

// DoshaDetail explains one dosha's contribution to the analysis.
type DoshaDetail struct {
	Description     string   `json:"description"`
	Score           int      `json:"score"`
	NormalizedScore float64  `json:"normalized_score"`
	MatchedSymptoms []string `json:"matched_symptoms"`
}

// SymptomAnalyzer maps reported symptoms onto probable dosha imbalances.
type SymptomAnalyzer struct {
	mapping map[string]Dosha
}

// NewSymptomAnalyzer builds an analyzer with the standard symptom table.
func NewSymptomAnalyzer() *SymptomAnalyzer {
	return &SymptomAnalyzer{mapping: symptomMapping()}
}

// KnownSymptoms returns how many symptoms the analyzer recognizes.
func (a *SymptomAnalyzer) KnownSymptoms() int {
	return len(a.mapping)
}

// Analyze screens the symptoms for dosha imbalances.
//
// # Description
//
// Each recognized symptom (matched case-insensitively against the symptom
// table) adds one point to its dosha. The highest scorer is the primary
// imbalance; the runner-up is reported as secondary only when it scored at
// all and trails the primary by no more than two points. Recommendations
// collect the balancing tips for every reported dosha. With no recognized
// symptoms the analysis carries a no-imbalance note instead.
func (a *SymptomAnalyzer) Analyze(symptoms []string) SymptomAnalysis {
	scores := newScoreSet()
	matched := make(map[Dosha][]string)

	for _, symptom := range symptoms {
		key := strings.ToLower(strings.TrimSpace(symptom))
		dosha, ok := a.mapping[key]
		if !ok {
			continue
		}
		scores[dosha]++
		matched[dosha] = append(matched[dosha], symptom)
	}

	total := scores.total()
	if total == 0 {
		return SymptomAnalysis{
			Recommendations: []string{"No specific dosha imbalance detected based on the provided symptoms."},
			Details:         map[string]DoshaDetail{},
			MatchedSymptoms: map[string][]string{},
		}
	}

	ranked := scores.ranked()
	primary := ranked[0]
	secondary := ranked[1]
	if scores[secondary] == 0 || scores[primary]-scores[secondary] > 2 {
		secondary = ""
	}

	analysis := SymptomAnalysis{
		PrimaryDosha:    primary,
		SecondaryDosha:  secondary,
		Confidence:      float64(scores[primary]) / float64(total),
		Recommendations: append([]string{}, balancingTips[primary]...),
		Details:         make(map[string]DoshaDetail, 2),
		MatchedSymptoms: make(map[string][]string, len(matched)),
	}

	for dosha, list := range matched {
		analysis.MatchedSymptoms[string(dosha)] = list
	}

	analysis.Details[string(primary)] = DoshaDetail{
		Description:     imbalanceDescriptions[primary],
		Score:           scores[primary],
		NormalizedScore: float64(scores[primary]) / float64(total),
		MatchedSymptoms: matched[primary],
	}

	if secondary != "" {
		analysis.Recommendations = append(analysis.Recommendations, balancingTips[secondary]...)
		analysis.Details[string(secondary)] = DoshaDetail{
			Description:     imbalanceDescriptions[secondary],
			Score:           scores[secondary],
			NormalizedScore: float64(scores[secondary]) / float64(total),
			MatchedSymptoms: matched[secondary],
		}
	}

	return analysis
}

// symptomMapping builds the symptom table covering physical and
// mental/emotional presentations.
func symptomMapping() map[string]Dosha {
	return map[string]Dosha{
		"dry skin":            Vata,
		"dry hair":            Vata,
		"constipation":        Vata,
		"gas":                 Vata,
		"bloating":            Vata,
		"joint pain":          Vata,
		"insomnia":            Vata,
		"irregular appetite":  Vata,
		"weight loss":         Vata,
		"cold hands and feet": Vata,
		"fatigue":             Vata,

		"skin rashes":         Pitta,
		"acne":                Pitta,
		"heartburn":           Pitta,
		"acid reflux":         Pitta,
		"excessive body heat": Pitta,
		"inflammation":        Pitta,
		"excessive sweating":  Pitta,
		"loose stools":        Pitta,
		"bad breath":          Pitta,
		"excessive thirst":    Pitta,

		"congestion":       Kapha,
		"mucus":            Kapha,
		"weight gain":      Kapha,
		"water retention":  Kapha,
		"lethargy":         Kapha,
		"slow digestion":   Kapha,
		"allergies":        Kapha,
		"sinus congestion": Kapha,
		"excessive sleep":  Kapha,
		"slow metabolism":  Kapha,

		"anxiety":        Vata,
		"worry":          Vata,
		"fear":           Vata,
		"restlessness":   Vata,
		"irritability":   Pitta,
		"anger":          Pitta,
		"impatience":     Pitta,
		"jealousy":       Pitta,
		"attachment":     Kapha,
		"greed":          Kapha,
		"possessiveness": Kapha,
		"depression":     Kapha,
	}
}

var imbalanceDescriptions = map[Dosha]string{
	Vata: "Vata is associated with movement, communication, and creativity. When imbalanced, " +
		"it can cause anxiety, dry skin, constipation, and joint pain.",
	Pitta: "Pitta governs digestion, metabolism, and transformation. Imbalance can lead to " +
		"inflammation, heartburn, skin rashes, and irritability.",
	Kapha: "Kapha provides structure and lubrication. When out of balance, it can cause " +
		"weight gain, congestion, lethargy, and attachment.",
}

var balancingTips = map[Dosha][]string{
	Vata: {
		"Maintain a regular routine for eating, sleeping, and activities",
		"Stay warm and avoid cold, dry, windy environments",
		"Eat warm, moist, and nourishing foods",
		"Practice gentle, grounding exercises like yoga and walking",
		"Get adequate rest and maintain a consistent sleep schedule",
	},
	Pitta: {
		"Avoid excessive heat and sun exposure",
		"Eat cooling, non-spicy foods",
		"Practice moderation in work and exercise",
		"Engage in calming activities like meditation",
		"Avoid alcohol and processed foods",
	},
	Kapha: {
		"Engage in regular physical activity",
		"Eat light, warm, and spicy foods",
		"Vary your routine and seek new experiences",
		"Avoid heavy, oily, and sweet foods",
		"Stay warm and dry",
	},
}
