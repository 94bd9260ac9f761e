// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools implements the agent's capability layer: a closed set of
// typed tools, a registry the loop dispatches through, and a runner that
// times, deadline-guards and records every invocation.
//
// # Description
//
// Tools never parse free-form argument strings themselves. The model's
// JSON arguments decode once into Input, and each tool reads only the
// typed fields its Parameters schema documents. Failures come back as
// *ToolError values so the loop can tell timeouts and retryable transport
// problems apart from bad arguments, and every invocation lands in the
// usage tracker regardless of how it went.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool names as exposed to the planner.
const (
	NameVectorStoreSearch  = "vector_store_search"
	NameSymptomAnalyzer    = "symptom_analyzer"
	NameGoogleSearch       = "google_search"
	NameWeather            = "weather"
	NameDosha              = "dosha"
	NameRecommendations    = "recommendations"
	NameArticleRecommender = "article_recommender"
	NameHerbRecommender    = "herb_recommender"
)

// Tool is one capability the agent loop can invoke.
//
// Implementations must be safe for concurrent use and must honor ctx
// cancellation on any network call.
type Tool interface {
	// Name returns the unique tool name.
	Name() string

	// Description tells the planner what the tool does and when to
	// pick it.
	Description() string

	// Parameters returns the JSON-schema object describing the Input
	// fields this tool reads.
	Parameters() map[string]any

	// Invoke runs the tool. The returned string is the observation fed
	// back to the planner.
	Invoke(ctx context.Context, input Input) (string, error)
}

// Input is the closed argument set for tool invocations. Each tool reads
// the fields its Parameters schema names and ignores the rest.
//
// UserID is filled in by the orchestrator from the session, never by the
// planner, so no tool schema advertises it.
type Input struct {
	UserID string `json:"user_id,omitempty"`

	// Query is the free-text argument for search-style tools.
	Query string `json:"query,omitempty"`

	// K caps the result count where a tool supports it.
	K int `json:"k,omitempty"`

	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`

	Symptoms []string `json:"symptoms,omitempty"`

	// Responses maps dosha questionnaire question IDs to answer values.
	Responses map[string]string `json:"responses,omitempty"`

	Dosha         string `json:"dosha,omitempty"`
	Season        string `json:"season,omitempty"`
	TimeOfDay     string `json:"time_of_day,omitempty"`
	HealthConcern string `json:"health_concern,omitempty"`

	CurrentAilments   []string `json:"current_ailments,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`

	Categories []string `json:"categories,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
}

// ParseInput decodes a model-supplied JSON argument string. A blank string
// decodes to the zero Input.
func ParseInput(raw string) (Input, error) {
	var in Input
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return in, nil
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return Input{}, fmt.Errorf("tool arguments: %w", err)
	}
	return in, nil
}

// ToolError describes a failed tool invocation in a form the agent loop
// can act on. Timeout errors are always retryable; validation errors
// never are.
type ToolError struct {
	Tool      string
	Message   string
	Timeout   bool
	Retryable bool
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// JSON-schema builders shared by the Parameters implementations.

func schemaObject(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func schemaString(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func schemaInteger(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func schemaStringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": description,
	}
}

func schemaStringMap(description string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string"},
		"description":          description,
	}
}
