// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("LLM_SERVICE_URL_BASE", "http://llamacpp:8080")

	cases := []struct {
		backend string
		want    any
	}{
		{"", &OpenAIClient{}},
		{"openai", &OpenAIClient{}},
		{"ollama", &OllamaClient{}},
		{"local", &LocalLlamaCppClient{}},
		{"anthropic", &AnthropicClient{}},
		{"claude", &AnthropicClient{}},
	}
	for _, tc := range cases {
		client, err := New(tc.backend)
		require.NoError(t, err, "backend %q", tc.backend)
		assert.IsType(t, tc.want, client, "backend %q", tc.backend)
	}
}

func TestNewUnknownBackendFallsBackToOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	client, err := New("frontier-9000")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)
}

func TestNewFromEnvReadsBackendType(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	client, err := NewFromEnv()
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, client)
}
