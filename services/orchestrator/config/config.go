// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config resolves the deployment configuration of the service.
//
// Settings resolve in two layers. Environment variables fill every field
// first, under the same names the individual packages read for their own
// defaults, so a container that sets SESSION_TTL_HOURS behaves the same
// whether or not a file is present. An optional YAML file then overlays
// the fields it names, letting a deployment keep one checked-in file and
// override single values per environment.
//
// A Watcher re-reads the file when it changes on disk and hands the new
// Config to a callback, so the runtime-appliable subset (session TTL,
// ranking fusion knobs) can change without a restart.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration of the orchestrator service.
type Config struct {
	Server   Server   `yaml:"server"`
	Sessions Sessions `yaml:"sessions"`
	Ranking  Ranking  `yaml:"ranking"`
	Tracker  Tracker  `yaml:"tracker"`
}

// Server holds the process-level settings.
type Server struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// OTLPEndpoint is the gRPC address spans are exported to. Empty
	// keeps span export off.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// WeaviateURL is the knowledge-base endpoint. Empty runs the
	// service without article search, ingestion, or retrieval-backed
	// recommendations.
	WeaviateURL string `yaml:"weaviate_url"`

	// LLMBackend selects the language-model client.
	LLMBackend string `yaml:"llm_backend"`
}

// Sessions holds the conversation-session lifetime settings.
type Sessions struct {
	TTLHours               int `yaml:"ttl_hours"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// TTL returns the session time-to-live as a duration.
func (s Sessions) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// CleanupInterval returns the eviction sweep period as a duration.
func (s Sessions) CleanupInterval() time.Duration {
	return time.Duration(s.CleanupIntervalMinutes) * time.Minute
}

// Ranking holds the recommendation fusion knobs.
type Ranking struct {
	TopK                  int     `yaml:"top_k"`
	PersonalizationWeight float64 `yaml:"personalization_weight"`
}

// Tracker holds the usage-analytics settings.
type Tracker struct {
	FlushIntervalSeconds int `yaml:"flush_interval_seconds"`
}

// FlushInterval returns the snapshot flush period as a duration.
func (t Tracker) FlushInterval() time.Duration {
	return time.Duration(t.FlushIntervalSeconds) * time.Second
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() Config {
	return Config{
		Server: Server{
			Port:         getEnvInt("ORCHESTRATOR_PORT", 8080),
			OTLPEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			WeaviateURL:  getEnvString("WEAVIATE_SERVICE_URL", ""),
			LLMBackend:   getEnvString("LLM_BACKEND_TYPE", "openai"),
		},
		Sessions: Sessions{
			TTLHours:               getEnvInt("SESSION_TTL_HOURS", 24),
			CleanupIntervalMinutes: getEnvInt("SESSION_CLEANUP_INTERVAL_MINUTES", 60),
		},
		Ranking: Ranking{
			TopK:                  getEnvInt("RANKING_TOP_K", 5),
			PersonalizationWeight: getEnvFloat("RANKING_PERSONALIZATION_WEIGHT", 0.3),
		},
		Tracker: Tracker{
			FlushIntervalSeconds: getEnvInt("TRACKER_FLUSH_INTERVAL_SECONDS", 300),
		},
	}.withDefaults()
}

// Load resolves the configuration from the environment and, when path is
// non-empty, overlays the YAML file at path. Fields the file does not
// name keep their environment values. A non-empty path that cannot be
// read or parsed is an error; out-of-range values fall back to their
// defaults.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = 8080
	}
	if c.Sessions.TTLHours <= 0 {
		c.Sessions.TTLHours = 24
	}
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		c.Sessions.CleanupIntervalMinutes = 60
	}
	if c.Ranking.TopK <= 0 {
		c.Ranking.TopK = 5
	}
	if c.Ranking.PersonalizationWeight <= 0 || c.Ranking.PersonalizationWeight > 1 {
		c.Ranking.PersonalizationWeight = 0.3
	}
	if c.Tracker.FlushIntervalSeconds <= 0 {
		c.Tracker.FlushIntervalSeconds = 300
	}
	return c
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
