// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dosha

// Question categories.
const (
	CategoryPhysical  = "physical"
	CategoryMental    = "mental"
	CategoryEmotional = "emotional"
	CategoryLifestyle = "lifestyle"
)

// Option is one selectable answer.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Question is one questionnaire entry. Options preserve presentation
// order; Weights maps an option value to its score contribution.
type Question struct {
	ID       string             `json:"id"`
	Text     string             `json:"text"`
	Options  []Option           `json:"options"`
	Weights  map[string]Weights `json:"-"`
	Category string             `json:"category"`
}

// questionSet builds the twelve-question assessment.
func questionSet() []Question {
	return []Question{
		{
			ID:   "body_frame",
			Text: "Which best describes your body frame?",
			Options: []Option{
				{Value: "thin", Text: "Thin, light build, difficulty gaining weight"},
				{Value: "medium", Text: "Medium, well-proportioned build"},
				{Value: "large", Text: "Large, solid, heavy build"},
			},
			Weights: map[string]Weights{
				"thin":   {Vata: 3, Pitta: 1, Kapha: 0},
				"medium": {Vata: 0, Pitta: 3, Kapha: 1},
				"large":  {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryPhysical,
		},
		{
			ID:   "skin_type",
			Text: "How would you describe your skin type?",
			Options: []Option{
				{Value: "dry", Text: "Dry, rough, or flaky skin"},
				{Value: "sensitive", Text: "Sensitive, prone to rashes or inflammation"},
				{Value: "oily", Text: "Oily, smooth, or moist skin"},
			},
			Weights: map[string]Weights{
				"dry":       {Vata: 3, Pitta: 0, Kapha: 0},
				"sensitive": {Vata: 1, Pitta: 3, Kapha: 0},
				"oily":      {Vata: 0, Pitta: 1, Kapha: 3},
			},
			Category: CategoryPhysical,
		},
		{
			ID:   "hair_type",
			Text: "What best describes your hair?",
			Options: []Option{
				{Value: "dry", Text: "Dry, frizzy, or brittle"},
				{Value: "fine", Text: "Fine, straight, or thinning"},
				{Value: "thick", Text: "Thick, oily, or wavy"},
			},
			Weights: map[string]Weights{
				"dry":   {Vata: 3, Pitta: 0, Kapha: 0},
				"fine":  {Vata: 2, Pitta: 2, Kapha: 0},
				"thick": {Vata: 0, Pitta: 1, Kapha: 3},
			},
			Category: CategoryPhysical,
		},
		{
			ID:   "appetite",
			Text: "How would you describe your appetite?",
			Options: []Option{
				{Value: "variable", Text: "Variable, sometimes strong, sometimes weak"},
				{Value: "strong", Text: "Strong, can't skip meals"},
				{Value: "steady", Text: "Steady, can easily skip meals"},
			},
			Weights: map[string]Weights{
				"variable": {Vata: 3, Pitta: 0, Kapha: 0},
				"strong":   {Vata: 0, Pitta: 3, Kapha: 0},
				"steady":   {Vata: 0, Pitta: 1, Kapha: 3},
			},
			Category: CategoryPhysical,
		},
		{
			ID:   "digestion",
			Text: "How would you describe your digestion?",
			Options: []Option{
				{Value: "irregular", Text: "Irregular, sometimes constipated"},
				{Value: "quick", Text: "Quick, strong digestion, can eat almost anything"},
				{Value: "slow", Text: "Slow, heavy after meals"},
			},
			Weights: map[string]Weights{
				"irregular": {Vata: 3, Pitta: 0, Kapha: 0},
				"quick":     {Vata: 0, Pitta: 3, Kapha: 0},
				"slow":      {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryPhysical,
		},
		{
			ID:   "weight_tendency",
			Text: "What is your weight tendency?",
			Options: []Option{
				{Value: "difficult_to_gain", Text: "Difficult to gain weight"},
				{Value: "easy_to_maintain", Text: "Easy to maintain weight"},
				{Value: "difficult_to_lose", Text: "Difficult to lose weight"},
			},
			Weights: map[string]Weights{
				"difficult_to_gain": {Vata: 3, Pitta: 1, Kapha: 0},
				"easy_to_maintain":  {Vata: 0, Pitta: 3, Kapha: 0},
				"difficult_to_lose": {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryLifestyle,
		},
		{
			ID:   "temperature_preference",
			Text: "What temperature do you prefer?",
			Options: []Option{
				{Value: "warm", Text: "Warm, dislike cold"},
				{Value: "cool", Text: "Cool, dislike heat"},
				{Value: "adaptable", Text: "Adaptable, but dislike dampness"},
			},
			Weights: map[string]Weights{
				"warm":      {Vata: 3, Pitta: 0, Kapha: 1},
				"cool":      {Vata: 0, Pitta: 3, Kapha: 0},
				"adaptable": {Vata: 1, Pitta: 1, Kapha: 3},
			},
			Category: CategoryPhysical,
		},
		{
			ID:   "sleep_pattern",
			Text: "How would you describe your sleep?",
			Options: []Option{
				{Value: "light", Text: "Light, easily disturbed"},
				{Value: "moderate", Text: "Moderate, wake up easily if needed"},
				{Value: "heavy", Text: "Heavy, difficult to wake up"},
			},
			Weights: map[string]Weights{
				"light":    {Vata: 3, Pitta: 1, Kapha: 0},
				"moderate": {Vata: 0, Pitta: 3, Kapha: 0},
				"heavy":    {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryLifestyle,
		},
		{
			ID:   "energy_level",
			Text: "How would you describe your energy levels?",
			Options: []Option{
				{Value: "variable", Text: "Variable, bursts of energy"},
				{Value: "intense", Text: "Intense, high energy"},
				{Value: "steady", Text: "Steady, even energy"},
			},
			Weights: map[string]Weights{
				"variable": {Vata: 3, Pitta: 0, Kapha: 0},
				"intense":  {Vata: 0, Pitta: 3, Kapha: 0},
				"steady":   {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryMental,
		},
		{
			ID:   "mental_activity",
			Text: "How would you describe your mental activity?",
			Options: []Option{
				{Value: "restless", Text: "Restless, active mind"},
				{Value: "focused", Text: "Focused, sharp"},
				{Value: "calm", Text: "Calm, steady"},
			},
			Weights: map[string]Weights{
				"restless": {Vata: 3, Pitta: 0, Kapha: 0},
				"focused":  {Vata: 0, Pitta: 3, Kapha: 0},
				"calm":     {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryMental,
		},
		{
			ID:   "emotional_tendency",
			Text: "What is your emotional tendency?",
			Options: []Option{
				{Value: "anxious", Text: "Anxious, worrisome"},
				{Value: "irritable", Text: "Easily irritated or angry"},
				{Value: "attached", Text: "Attached, sentimental"},
			},
			Weights: map[string]Weights{
				"anxious":   {Vata: 3, Pitta: 0, Kapha: 0},
				"irritable": {Vata: 0, Pitta: 3, Kapha: 0},
				"attached":  {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryEmotional,
		},
		{
			ID:   "speech_pattern",
			Text: "How would you describe your speech pattern?",
			Options: []Option{
				{Value: "fast", Text: "Fast, talkative"},
				{Value: "sharp", Text: "Sharp, precise"},
				{Value: "slow", Text: "Slow, deliberate"},
			},
			Weights: map[string]Weights{
				"fast":  {Vata: 3, Pitta: 1, Kapha: 0},
				"sharp": {Vata: 0, Pitta: 3, Kapha: 0},
				"slow":  {Vata: 0, Pitta: 0, Kapha: 3},
			},
			Category: CategoryMental,
		},
	}
}
