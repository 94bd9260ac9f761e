// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package weather fetches current conditions from OpenWeatherMap.
//
// The client is rate limited and context aware. When no API key is
// configured the factory returns a nil client and weather-dependent
// features degrade instead of failing the turn.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Anindya-Paul07/Ayurveda/pkg/secrets"
)

// Seasons derived from current conditions.
const (
	SeasonSummer  = "summer"
	SeasonWinter  = "winter"
	SeasonMonsoon = "monsoon"
	SeasonSpring  = "spring"
)

// Report is the condensed current-conditions snapshot.
type Report struct {
	City               string   `json:"city"`
	Temperature        float64  `json:"temperature"`
	FeelsLike          *float64 `json:"feels_like,omitempty"`
	Humidity           int      `json:"humidity"`
	Pressure           int      `json:"pressure"`
	WeatherDescription string   `json:"weather_description"`
	WindSpeed          float64  `json:"wind_speed"`
	Clouds             int      `json:"clouds"`
}

// Season buckets the report into an Indian-calendar season.
//
// Temperature rules first: 30°C and above is summer, 15°C and below is
// winter. In between, rainy conditions read as monsoon, everything else
// as spring.
func (r *Report) Season() string {
	return DetermineSeason(r.Temperature, r.WeatherDescription)
}

// DetermineSeason applies the season heuristics to raw readings.
func DetermineSeason(temperatureC float64, description string) string {
	switch {
	case temperatureC >= 30:
		return SeasonSummer
	case temperatureC <= 15:
		return SeasonWinter
	case strings.Contains(strings.ToLower(description), "rain"):
		return SeasonMonsoon
	default:
		return SeasonSpring
	}
}

// Config holds the weather client settings.
type Config struct {
	// BaseURL is the current-weather endpoint.
	BaseURL string

	// Timeout bounds one API call.
	Timeout time.Duration

	// RequestsPerMinute caps outbound calls.
	RequestsPerMinute int
}

// DefaultConfig reads weather settings from the environment.
func DefaultConfig() Config {
	return Config{
		BaseURL:           getEnvString("OPENWEATHERMAP_URL", "https://api.openweathermap.org/data/2.5/weather"),
		Timeout:           time.Duration(getEnvInt("WEATHER_TIMEOUT_SECONDS", 10)) * time.Second,
		RequestsPerMinute: getEnvInt("WEATHER_REQUESTS_PER_MINUTE", 60),
	}
}

// Client calls the OpenWeatherMap current-weather API.
type Client struct {
	cfg     Config
	httpc   *http.Client
	limiter *rate.Limiter
	key     *secrets.Secret
}

// New builds a weather client, loading the API key from the
// OPENWEATHERMAP_API_KEY environment variable or the container secret
// mount. Without a key it returns (nil, nil) and logs that weather
// features are disabled.
func New(cfg Config) (*Client, error) {
	key, err := secrets.Load("OPENWEATHERMAP_API_KEY", "/run/secrets/openweathermap_api_key")
	if err != nil {
		slog.Info("Weather lookups disabled, no OpenWeatherMap API key configured")
		return nil, nil
	}
	return newClient(cfg, key), nil
}

func newClient(cfg Config, key *secrets.Secret) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		key:     key,
	}
}

// owmResponse mirrors the fields we read from the API payload.
type owmResponse struct {
	Main struct {
		Temp      float64  `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Pressure  int      `json:"pressure"`
		Humidity  int      `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
}

// Current fetches the current conditions for a city. country is an
// optional ISO code narrowing the lookup.
//
// # Description
//
// The call waits on the client's rate limiter, then queries the API with
// metric units. HTTP 401, 404 and 429 map to specific errors; any other
// non-200 status reports the status line.
func (c *Client) Current(ctx context.Context, city, country string) (*Report, error) {
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("city name must be a non-empty string")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("weather request aborted: %w", err)
	}

	location := city
	if country != "" {
		location = city + "," + country
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", c.key.Reveal())
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the weather API: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("weather API rejected the key")
	case http.StatusNotFound:
		return nil, fmt.Errorf("city %q not found", city)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("weather API rate limit exceeded")
	default:
		return nil, fmt.Errorf("weather API returned status %s", resp.Status)
	}

	var payload owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return nil, fmt.Errorf("unexpected weather response format: no conditions")
	}

	return &Report{
		City:               city,
		Temperature:        payload.Main.Temp,
		FeelsLike:          payload.Main.FeelsLike,
		Humidity:           payload.Main.Humidity,
		Pressure:           payload.Main.Pressure,
		WeatherDescription: payload.Weather[0].Description,
		WindSpeed:          payload.Wind.Speed,
		Clouds:             payload.Clouds.All,
	}, nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
