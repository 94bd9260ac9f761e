// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dosha

import (
	"fmt"
	"math"
	"time"
)

// Result is the full questionnaire analysis.
type Result struct {
	PrimaryDosha   Dosha `json:"primary_dosha"`
	SecondaryDosha Dosha `json:"secondary_dosha,omitempty"`

	// Scores holds normalized percentages keyed vata, pitta, kapha,
	// rounded to one decimal.
	Scores map[string]float64 `json:"scores"`

	// Confidence is the primary-minus-secondary score gap as a fraction
	// of the total, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Analysis holds an overall narrative plus one entry per question
	// category that received answers.
	Analysis map[string]string `json:"analysis"`

	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}

// Determination is the condensed outcome used by the chat tool.
type Determination struct {
	Dosha      Dosha   `json:"dosha"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// Calculator scores the dosha questionnaire.
type Calculator struct {
	questions []Question
	now       func() time.Time
}

// NewCalculator builds a Calculator with the standard question set.
func NewCalculator() *Calculator {
	return &Calculator{questions: questionSet(), now: time.Now}
}

// Questions returns the questionnaire in presentation order.
func (c *Calculator) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Calculate scores the responses into a full analysis.
//
// # Description
//
// responses maps question ids to chosen option values. Unrecognized
// question ids and option values score nothing. Scores are normalized to
// percentages; the primary dosha is the highest scorer and the secondary
// the runner-up, with ties resolving in Vata, Pitta, Kapha order. When no
// answer scores, the primary dosha is Unknown.
//
// # Inputs
//
//   - responses: map of question id to selected option value.
//
// # Outputs
//
//   - Result: scores, confidence, per-category analysis, recommendations.
func (c *Calculator) Calculate(responses map[string]string) Result {
	scores := newScoreSet()
	categoryScores := map[string]scoreSet{
		CategoryPhysical:  newScoreSet(),
		CategoryMental:    newScoreSet(),
		CategoryEmotional: newScoreSet(),
		CategoryLifestyle: newScoreSet(),
	}

	for _, q := range c.questions {
		answer, ok := responses[q.ID]
		if !ok {
			continue
		}
		w, ok := q.Weights[answer]
		if !ok {
			continue
		}
		scores.add(w)
		categoryScores[q.Category].add(w)
	}

	total := scores.total()
	divisor := total
	if divisor == 0 {
		divisor = 1
	}

	normalized := make(map[string]float64, 3)
	for _, d := range doshaOrder {
		normalized[lowerName(d)] = round1(float64(scores[d]) / float64(divisor) * 100)
	}

	ranked := scores.ranked()
	primary := Unknown
	if scores[ranked[0]] > 0 {
		primary = ranked[0]
	}
	var secondary Dosha
	if scores[ranked[1]] > 0 {
		secondary = ranked[1]
	}

	confidence := float64(scores[ranked[0]]-scores[ranked[1]]) / float64(divisor)

	return Result{
		PrimaryDosha:    primary,
		SecondaryDosha:  secondary,
		Scores:          normalized,
		Confidence:      confidence,
		Analysis:        buildAnalysis(primary, categoryScores),
		Recommendations: buildRecommendations(primary, secondary),
		Timestamp:       c.now().UTC(),
	}
}

// Determine condenses Calculate into the dosha, confidence and overall
// narrative. When no answer scores it carries a retake prompt instead.
func (c *Calculator) Determine(responses map[string]string) Determination {
	result := c.Calculate(responses)
	if result.PrimaryDosha == Unknown {
		return Determination{
			Dosha:      Unknown,
			Confidence: 0,
			Message: "Unable to determine your dosha based on the provided responses. " +
				"Please ensure you answer all questions in the questionnaire.",
		}
	}
	return Determination{
		Dosha:      result.PrimaryDosha,
		Confidence: result.Confidence,
		Message:    result.Analysis["overall"],
	}
}

// buildAnalysis writes the overall narrative plus one entry for every
// category that received answers.
func buildAnalysis(primary Dosha, categoryScores map[string]scoreSet) map[string]string {
	analysis := map[string]string{
		"overall": fmt.Sprintf(
			"Your primary dosha is %s. This means you have a predominance of %s energy in your constitution. %s",
			primary, primary, doshaDescriptions[primary],
		),
	}

	for category, scores := range categoryScores {
		categoryTotal := scores.total()
		if categoryTotal == 0 {
			continue
		}
		dominant := scores.ranked()[0]
		percent := float64(scores[dominant]) / float64(categoryTotal) * 100
		analysis[category] = fmt.Sprintf(
			"In %s aspects, you show strong %s tendencies (%.1f%%). %s",
			category, dominant, percent, categoryAnalysis[categoryDosha{category, dominant}],
		)
	}

	return analysis
}

// buildRecommendations assembles diet and lifestyle guidance for the
// primary dosha, plus a short addendum for a distinct secondary dosha.
func buildRecommendations(primary, secondary Dosha) []string {
	recommendations := []string{}

	diet, ok := dietRecommendations[primary]
	if !ok {
		return recommendations
	}
	lifestyle := lifestyleRecommendations[primary]

	recommendations = append(recommendations, fmt.Sprintf("**Diet for %s balance:**", primary))
	for _, item := range diet {
		recommendations = append(recommendations, "- "+item)
	}
	recommendations = append(recommendations, fmt.Sprintf("\n**Lifestyle for %s balance:**", primary))
	for _, item := range lifestyle {
		recommendations = append(recommendations, "- "+item)
	}

	if secondary != "" && secondary != primary {
		if secondaryDiet, ok := dietRecommendations[secondary]; ok {
			recommendations = append(recommendations,
				fmt.Sprintf("\n**Additional considerations for %s influence:**", secondary))
			for _, item := range secondaryDiet[:2] {
				recommendations = append(recommendations, "- "+item)
			}
			for _, item := range lifestyleRecommendations[secondary][:2] {
				recommendations = append(recommendations, "- "+item)
			}
		}
	}

	return recommendations
}

type categoryDosha struct {
	category string
	dosha    Dosha
}

var doshaDescriptions = map[Dosha]string{
	Vata: "Vata represents the energy of movement and is associated with qualities like dry, light, cold, " +
		"rough, subtle, and mobile. When in balance, Vata promotes creativity and flexibility. When out " +
		"of balance, it can cause fear, anxiety, and physical ailments.",
	Pitta: "Pitta represents the energy of transformation and is associated with qualities like hot, sharp, " +
		"light, liquid, and oily. When in balance, Pitta promotes intelligence and understanding. When out " +
		"of balance, it can cause anger, jealousy, and inflammation.",
	Kapha: "Kapha represents the energy of structure and lubrication and is associated with qualities like " +
		"heavy, slow, cool, oily, and smooth. When in balance, Kapha promotes love, calmness, and forgiveness. " +
		"When out of balance, it can lead to attachment, greed, and resistance to change.",
}

var categoryAnalysis = map[categoryDosha]string{
	{CategoryPhysical, Vata}:   "Your physical constitution shows characteristics like a light frame, dry skin, and variable digestion.",
	{CategoryPhysical, Pitta}:  "Your physical constitution shows characteristics like a medium build, warm skin, and strong digestion.",
	{CategoryPhysical, Kapha}:  "Your physical constitution shows characteristics like a solid build, oily skin, and steady energy.",
	{CategoryMental, Vata}:     "Your mental patterns show creativity, quick thinking, and adaptability.",
	{CategoryMental, Pitta}:    "Your mental patterns show sharpness, focus, and determination.",
	{CategoryMental, Kapha}:    "Your mental patterns show steadiness, patience, and methodical thinking.",
	{CategoryLifestyle, Vata}:  "Your lifestyle tendencies include variable energy levels and enthusiasm for new experiences.",
	{CategoryLifestyle, Pitta}: "Your lifestyle tendencies include goal-oriented behavior and intensity in activities.",
	{CategoryLifestyle, Kapha}: "Your lifestyle tendencies include steady energy and enjoyment of routine.",
	{CategoryEmotional, Vata}:  "Your emotional nature is characterized by quick changes and enthusiasm.",
	{CategoryEmotional, Pitta}: "Your emotional nature is characterized by passion and intensity.",
	{CategoryEmotional, Kapha}: "Your emotional nature is characterized by stability and loyalty.",
}

var dietRecommendations = map[Dosha][]string{
	Vata: {
		"Favor warm, cooked, and slightly oily foods",
		"Include sweet, sour, and salty tastes",
		"Eat in a calm environment and maintain regular meal times",
	},
	Pitta: {
		"Favor cool or warm (but not hot) foods",
		"Include sweet, bitter, and astringent tastes",
		"Avoid excessive spicy, sour, or salty foods",
	},
	Kapha: {
		"Favor light, dry, and warm foods",
		"Include pungent, bitter, and astringent tastes",
		"Avoid heavy, oily, or excessively sweet foods",
	},
}

var lifestyleRecommendations = map[Dosha][]string{
	Vata: {
		"Maintain a regular daily routine",
		"Engage in gentle, grounding exercises like yoga or walking",
		"Ensure adequate rest and relaxation",
	},
	Pitta: {
		"Avoid excessive heat and sun exposure",
		"Engage in moderate exercise and relaxation techniques",
		"Maintain a good work-life balance",
	},
	Kapha: {
		"Engage in regular, vigorous exercise",
		"Seek variety and new experiences",
		"Avoid excessive sleep and daytime napping",
	},
}

func lowerName(d Dosha) string {
	switch d {
	case Vata:
		return "vata"
	case Pitta:
		return "pitta"
	case Kapha:
		return "kapha"
	default:
		return "unknown"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
