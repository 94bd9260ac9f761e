// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ranking

import (
	"fmt"
	"strings"
)

// Weather carries the current conditions used to flavor the search query.
// Nil fields mean the reading is unavailable.
type Weather struct {
	// Temperature in degrees Celsius.
	Temperature *float64

	// Humidity as a percentage.
	Humidity *float64
}

// Query collects the explicit filters a recommendation request can carry.
// Every field is optional; an empty Query builds an empty search text.
type Query struct {
	Text          string
	Dosha         string
	Season        string
	TimeOfDay     string
	HealthConcern string
	Weather       *Weather
}

// BuildQueryText renders the filters into one search sentence.
//
// # Description
//
// Parts are joined with ". " in a fixed order: free text, dosha, health
// concern, season, time of day, then weather. Weather readings are bucketed
// into qualitative terms: temperature above 30°C reads "hot weather", below
// 15°C "cold weather", otherwise "moderate temperature"; humidity above 70%
// reads "high humidity", below 30% "dry conditions", in between nothing.
func BuildQueryText(q Query) string {
	var parts []string

	if q.Text != "" {
		parts = append(parts, q.Text)
	}
	if q.Dosha != "" {
		parts = append(parts, fmt.Sprintf("Recommendations for %s dosha", q.Dosha))
	}
	if q.HealthConcern != "" {
		parts = append(parts, fmt.Sprintf("Addressing %s", q.HealthConcern))
	}
	if q.Season != "" {
		parts = append(parts, fmt.Sprintf("During %s season", q.Season))
	}
	if q.TimeOfDay != "" {
		parts = append(parts, fmt.Sprintf("For %s", q.TimeOfDay))
	}
	if desc := weatherTerms(q.Weather); len(desc) > 0 {
		parts = append(parts, "Suitable for "+strings.Join(desc, ", "))
	}

	return strings.Join(parts, ". ")
}

// weatherTerms buckets raw readings into qualitative search terms.
func weatherTerms(w *Weather) []string {
	if w == nil {
		return nil
	}

	var desc []string
	if w.Temperature != nil {
		switch {
		case *w.Temperature > 30:
			desc = append(desc, "hot weather")
		case *w.Temperature < 15:
			desc = append(desc, "cold weather")
		default:
			desc = append(desc, "moderate temperature")
		}
	}
	if w.Humidity != nil {
		switch {
		case *w.Humidity > 70:
			desc = append(desc, "high humidity")
		case *w.Humidity < 30:
			desc = append(desc, "dry conditions")
		}
	}
	return desc
}
