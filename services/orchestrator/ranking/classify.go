// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ranking

import "strings"

// Recommendation categories.
const (
	CategoryFood      = "food"
	CategoryLifestyle = "lifestyle"
	CategoryGeneral   = "general"
)

// foodKeywords and lifestyleKeywords drive classification by substring
// vote. "oil" is deliberately in both sets; dietary oils and massage oils
// are both common in the corpus.
var foodKeywords = []string{
	"food", "diet", "meal", "eat", "eating", "nutrition", "consume", "dish", "recipe",
	"fruit", "vegetable", "spice", "herb", "grain", "dairy", "ghee", "oil",
	"breakfast", "lunch", "dinner", "snack", "drink", "beverage", "tea",
}

var lifestyleKeywords = []string{
	"exercise", "yoga", "meditation", "sleep", "routine", "habit", "practice",
	"activity", "rest", "massage", "bath", "oil", "abhyanga", "lifestyle",
	"morning", "evening", "ritual", "cleanse", "detox", "breathing", "pranayama",
}

// Classify buckets recommendation text as food, lifestyle or general.
//
// # Description
//
// Counts how many keywords from each set occur as substrings of the
// lowercased content. The higher count wins; a tie, including zero matches
// on both sides, classifies as general. Matching is substring-based, not
// word-based, so the result is deterministic for a fixed content string.
func Classify(content string) string {
	lower := strings.ToLower(content)

	foodCount := 0
	for _, kw := range foodKeywords {
		if strings.Contains(lower, kw) {
			foodCount++
		}
	}

	lifestyleCount := 0
	for _, kw := range lifestyleKeywords {
		if strings.Contains(lower, kw) {
			lifestyleCount++
		}
	}

	switch {
	case foodCount > lifestyleCount:
		return CategoryFood
	case lifestyleCount > foodCount:
		return CategoryLifestyle
	default:
		return CategoryGeneral
	}
}
