// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package websearch runs Google searches through SerpApi.
//
// The search feeds the low-confidence fallback path of the chat agent, so
// the client keeps a small result count and a strict rate limit. Without
// an API key the factory returns a nil client and the fallback degrades
// to the model's own answer.
package websearch

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

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Config holds the search client settings.
type Config struct {
	// BaseURL is the SerpApi search endpoint.
	BaseURL string

	// MaxResults caps how many organic results a search returns.
	MaxResults int

	// Timeout bounds one API call.
	Timeout time.Duration

	// RequestsPerMinute caps outbound calls.
	RequestsPerMinute int
}

// DefaultConfig reads search settings from the environment.
func DefaultConfig() Config {
	return Config{
		BaseURL:           getEnvString("SERPAPI_URL", "https://serpapi.com/search"),
		MaxResults:        getEnvInt("WEBSEARCH_MAX_RESULTS", 3),
		Timeout:           time.Duration(getEnvInt("WEBSEARCH_TIMEOUT_SECONDS", 10)) * time.Second,
		RequestsPerMinute: getEnvInt("WEBSEARCH_REQUESTS_PER_MINUTE", 20),
	}
}

// Client runs searches against SerpApi.
type Client struct {
	cfg     Config
	httpc   *http.Client
	limiter *rate.Limiter
	key     *secrets.Secret
}

// New builds a search client, loading the API key from the SERP_API_KEY
// environment variable or the container secret mount. Without a key it
// returns (nil, nil) and logs that web search is disabled.
func New(cfg Config) (*Client, error) {
	key, err := secrets.Load("SERP_API_KEY", "/run/secrets/serp_api_key")
	if err != nil {
		slog.Info("Web search disabled, no SerpApi key configured")
		return nil, nil
	}
	return newClient(cfg, key), nil
}

func newClient(cfg Config, key *secrets.Secret) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 20
	}
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		key:     key,
	}
}

// serpResponse mirrors the organic results of a SerpApi payload.
type serpResponse struct {
	OrganicResults []Result `json:"organic_results"`
}

// Search runs a Google search and returns up to MaxResults organic hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search aborted: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("location", "United States")
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("num", strconv.Itoa(c.cfg.MaxResults))
	params.Set("api_key", c.key.Reveal())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the search API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %s", resp.Status)
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := payload.OrganicResults
	if len(results) > c.cfg.MaxResults {
		results = results[:c.cfg.MaxResults]
	}
	return results, nil
}

// Format renders results as Title/Snippet/Link blocks separated by blank
// lines, filling absent fields with placeholders. An empty result list
// renders as "No results found."
func Format(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "No Title"
		}
		snippet := r.Snippet
		if snippet == "" {
			snippet = "No snippet available."
		}
		link := r.Link
		if link == "" {
			link = "No link available."
		}
		blocks = append(blocks, fmt.Sprintf("Title: %s\nSnippet: %s\nLink: %s", title, snippet, link))
	}
	return strings.Join(blocks, "\n\n")
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
