// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestBuildQueryTextOrdersParts(t *testing.T) {
	q := Query{
		Text:          "Daily wellness tips",
		Dosha:         "vata",
		Season:        "winter",
		TimeOfDay:     "evening",
		HealthConcern: "insomnia",
		Weather:       &Weather{Temperature: fptr(10), Humidity: fptr(80)},
	}

	want := "Daily wellness tips. Recommendations for vata dosha. Addressing insomnia. " +
		"During winter season. For evening. Suitable for cold weather, high humidity"
	assert.Equal(t, want, BuildQueryText(q))
}

func TestBuildQueryTextEmpty(t *testing.T) {
	assert.Equal(t, "", BuildQueryText(Query{}))
}

func TestBuildQueryTextSkipsMissingParts(t *testing.T) {
	q := Query{Dosha: "pitta", Season: "summer"}
	assert.Equal(t, "Recommendations for pitta dosha. During summer season", BuildQueryText(q))
}

func TestWeatherTermsBuckets(t *testing.T) {
	tests := []struct {
		name    string
		weather *Weather
		want    []string
	}{
		{name: "nil weather", weather: nil, want: nil},
		{name: "hot", weather: &Weather{Temperature: fptr(35)}, want: []string{"hot weather"}},
		{name: "cold", weather: &Weather{Temperature: fptr(10)}, want: []string{"cold weather"}},
		{name: "moderate", weather: &Weather{Temperature: fptr(22)}, want: []string{"moderate temperature"}},
		{name: "exactly thirty is moderate", weather: &Weather{Temperature: fptr(30)}, want: []string{"moderate temperature"}},
		{name: "exactly fifteen is moderate", weather: &Weather{Temperature: fptr(15)}, want: []string{"moderate temperature"}},
		{name: "humid", weather: &Weather{Humidity: fptr(80)}, want: []string{"high humidity"}},
		{name: "dry", weather: &Weather{Humidity: fptr(20)}, want: []string{"dry conditions"}},
		{name: "mid humidity says nothing", weather: &Weather{Humidity: fptr(50)}, want: nil},
		{name: "exactly seventy says nothing", weather: &Weather{Humidity: fptr(70)}, want: nil},
		{
			name:    "both readings",
			weather: &Weather{Temperature: fptr(32), Humidity: fptr(25)},
			want:    []string{"hot weather", "dry conditions"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, weatherTerms(tc.weather))
		})
	}
}

func TestBuildQueryTextHumidityOnly(t *testing.T) {
	q := Query{Weather: &Weather{Humidity: fptr(20)}}
	assert.Equal(t, "Suitable for dry conditions", BuildQueryText(q))
}
