// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/pkg/secrets"
)

const sampleBody = `{
	"main": {"temp": 28.4, "feels_like": 30.1, "pressure": 1006, "humidity": 74},
	"weather": [{"description": "light rain"}],
	"wind": {"speed": 3.6},
	"clouds": {"all": 75}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClient(Config{BaseURL: srv.URL}, secrets.FromString("test-key"))
}

func TestCurrentParsesReport(t *testing.T) {
	var gotQuery map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"q":     r.URL.Query().Get("q"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
		}
		w.Write([]byte(sampleBody))
	})

	report, err := c.Current(context.Background(), "Pune", "IN")
	require.NoError(t, err)

	assert.Equal(t, "Pune", report.City)
	assert.InDelta(t, 28.4, report.Temperature, 1e-9)
	require.NotNil(t, report.FeelsLike)
	assert.InDelta(t, 30.1, *report.FeelsLike, 1e-9)
	assert.Equal(t, 74, report.Humidity)
	assert.Equal(t, 1006, report.Pressure)
	assert.Equal(t, "light rain", report.WeatherDescription)
	assert.InDelta(t, 3.6, report.WindSpeed, 1e-9)
	assert.Equal(t, 75, report.Clouds)

	assert.Equal(t, "Pune,IN", gotQuery["q"])
	assert.Equal(t, "test-key", gotQuery["appid"])
	assert.Equal(t, "metric", gotQuery["units"])
}

func TestCurrentOmitsCountryWhenEmpty(t *testing.T) {
	var gotLocation string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotLocation = r.URL.Query().Get("q")
		w.Write([]byte(sampleBody))
	})

	_, err := c.Current(context.Background(), "Pune", "")
	require.NoError(t, err)
	assert.Equal(t, "Pune", gotLocation)
}

func TestCurrentRejectsEmptyCity(t *testing.T) {
	called := false
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Current(context.Background(), "   ", "")
	require.Error(t, err)
	assert.False(t, called)
}

func TestCurrentMapsHTTPStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: "rejected the key"},
		{name: "not found", status: http.StatusNotFound, wantErr: "not found"},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: "rate limit"},
		{name: "server error", status: http.StatusInternalServerError, wantErr: "status"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := c.Current(context.Background(), "Pune", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCurrentRejectsPayloadWithoutConditions(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main": {"temp": 20}, "weather": []}`))
	})

	_, err := c.Current(context.Background(), "Pune", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected weather response format")
}

func TestDetermineSeason(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		description string
		want        string
	}{
		{name: "hot is summer", temperature: 35, want: SeasonSummer},
		{name: "thirty is summer", temperature: 30, want: SeasonSummer},
		{name: "cold is winter", temperature: 10, want: SeasonWinter},
		{name: "fifteen is winter", temperature: 15, want: SeasonWinter},
		{name: "mild with rain is monsoon", temperature: 22, description: "light rain", want: SeasonMonsoon},
		{name: "rain match ignores case", temperature: 22, description: "Heavy RAIN shower", want: SeasonMonsoon},
		{name: "mild and dry is spring", temperature: 22, description: "clear sky", want: SeasonSpring},
		{name: "hot rain is still summer", temperature: 33, description: "rain", want: SeasonSummer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetermineSeason(tc.temperature, tc.description))
		})
	}
}

func TestReportSeason(t *testing.T) {
	r := &Report{Temperature: 22, WeatherDescription: "moderate rain"}
	assert.Equal(t, SeasonMonsoon, r.Season())
}

func TestNewWithoutKeyDisablesClient(t *testing.T) {
	t.Setenv("OPENWEATHERMAP_API_KEY", "")

	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewWithKey(t *testing.T) {
	t.Setenv("OPENWEATHERMAP_API_KEY", "abc123")

	c, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestDefaultConfigEnvOverride(t *testing.T) {
	t.Setenv("OPENWEATHERMAP_URL", "http://localhost:9090/weather")
	t.Setenv("WEATHER_TIMEOUT_SECONDS", "3")

	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:9090/weather", cfg.BaseURL)
	assert.Equal(t, int64(3e9), int64(cfg.Timeout))
}
