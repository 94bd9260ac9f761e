// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"log/slog"
	"os"
)

// New builds the client for the named backend.
//
// Supported values: "openai", "ollama", "local" and "anthropic" (alias
// "claude"). An empty name means OpenAI. Unknown values fall back to
// OpenAI with a warning so a typo degrades loudly instead of failing an
// otherwise healthy deployment.
func New(backend string) (Client, error) {
	switch backend {
	case "", "openai":
		return NewOpenAIClient()
	case "ollama":
		return NewOllamaClient()
	case "local":
		return NewLocalLlamaCppClient()
	case "anthropic", "claude":
		return NewAnthropicClient()
	default:
		slog.Warn("LLM backend not recognized, defaulting to openai", "value", backend)
		client, err := NewOpenAIClient()
		if err != nil {
			return nil, fmt.Errorf("unsupported LLM backend %q and openai fallback failed: %w", backend, err)
		}
		return client, nil
	}
}

// NewFromEnv selects a backend from LLM_BACKEND_TYPE.
func NewFromEnv() (Client, error) {
	return New(os.Getenv("LLM_BACKEND_TYPE"))
}
