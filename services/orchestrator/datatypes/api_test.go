// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBindingValidator mirrors gin's engine: binding tags, custom
// validators registered.
func newBindingValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, RegisterValidators(v))
	return v
}

func TestDoshaValidator(t *testing.T) {
	v := newBindingValidator(t)

	for _, name := range []string{"vata", "pitta", "kapha", "Vata", "PITTA"} {
		err := v.Struct(RecommendationQuery{Dosha: name})
		assert.NoError(t, err, "dosha %q should validate", name)
	}
	for _, name := range []string{"fire", "vataa", "tridosha"} {
		err := v.Struct(RecommendationQuery{Dosha: name})
		assert.Error(t, err, "dosha %q should be rejected", name)
	}

	// Empty dosha is fine, the filter is optional.
	assert.NoError(t, v.Struct(RecommendationQuery{}))
}

func TestSeasonValidator(t *testing.T) {
	v := newBindingValidator(t)

	for _, name := range []string{"spring", "summer", "monsoon", "winter"} {
		assert.NoError(t, v.Struct(RecommendationQuery{Season: name}), "season %q", name)
	}
	// The weather service never derives autumn, so it is not accepted.
	assert.Error(t, v.Struct(RecommendationQuery{Season: "autumn"}))
}

func TestChatRequestValidation(t *testing.T) {
	v := newBindingValidator(t)

	assert.Error(t, v.Struct(ChatRequest{}), "message is required")
	assert.NoError(t, v.Struct(ChatRequest{Message: "What balances vata?"}))

	oversized := strings.Repeat("a", MaxMessageBytes+1)
	assert.Error(t, v.Struct(ChatRequest{Message: oversized}))
}

func TestInteractionRequestKinds(t *testing.T) {
	v := newBindingValidator(t)

	for _, kind := range []string{"view", "like", "share", "save", "read"} {
		req := InteractionRequest{UserID: "alice", Kind: kind}
		assert.NoError(t, v.Struct(req), "kind %q", kind)
	}
	assert.Error(t, v.Struct(InteractionRequest{UserID: "alice", Kind: "download"}))
	assert.Error(t, v.Struct(InteractionRequest{Kind: "view"}), "user id is required")
}

func TestSymptomRequestRejectsEmptyEntries(t *testing.T) {
	v := newBindingValidator(t)

	assert.Error(t, v.Struct(SymptomRequest{}))
	assert.Error(t, v.Struct(SymptomRequest{Symptoms: []string{"headache", ""}}))
	assert.NoError(t, v.Struct(SymptomRequest{Symptoms: []string{"headache"}}))
}

func TestEnvelopeShapes(t *testing.T) {
	ok, err := json.Marshal(Success(map[string]string{"answer": "hi"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","data":{"answer":"hi"}}`, string(ok))

	fail, err := json.Marshal(Failure("not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"not found"}`, string(fail))

	detail, err := json.Marshal(FailureWithDetail("search failed", assert.AnError))
	require.NoError(t, err)
	assert.Contains(t, string(detail), assert.AnError.Error())
}

func TestArticleIngestDefaults(t *testing.T) {
	req := ArticleIngestRequest{Title: "Herbs for Sleep", Content: "..."}
	req.EnsureDefaults()

	assert.Equal(t, "general", req.Category)
	assert.Equal(t, "latest", req.VersionTag)
}
