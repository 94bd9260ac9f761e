// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package secrets holds API credentials in locked memory.
//
// # Description
//
// External providers (LLM, web search, weather) are driven by API keys that
// live for the whole process. Instead of keeping those keys as plain Go
// strings that the GC copies around, the package seals each key into a
// memguard enclave at load time and exposes it only for the moment a client
// constructor needs it.
//
// # Usage
//
//	key, err := secrets.Load("OPENAI_API_KEY", "/run/secrets/openai_api_key")
//	if err != nil { ... }
//	client := openai.NewClient(key.Reveal())
//
// # Limitations
//
//   - Reveal returns an ordinary string; the protection window ends at the
//     call site. This guards the long idle lifetime, not the hand-off.
package secrets

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
)

// initOnce arms memguard's interrupt handler a single time per process so
// locked buffers are wiped on SIGINT/SIGTERM.
var initOnce sync.Once

// Secret is an API credential sealed in locked memory.
type Secret struct {
	enclave *memguard.Enclave
}

// Load reads a credential from the environment variable envKey, falling back
// to the contents of secretFile (a container secret mount) when the variable
// is unset. The value is trimmed and sealed before returning.
//
// Returns an error when neither source yields a non-empty value.
func Load(envKey, secretFile string) (*Secret, error) {
	initOnce.Do(memguard.CatchInterrupt)

	value := strings.TrimSpace(os.Getenv(envKey))
	if value == "" && secretFile != "" {
		if raw, err := os.ReadFile(secretFile); err == nil {
			value = strings.TrimSpace(string(raw))
		}
	}
	if value == "" {
		return nil, fmt.Errorf("secrets: %s not set and no secret file found", envKey)
	}
	return FromString(value), nil
}

// FromString seals an already-obtained credential. The input string itself
// cannot be wiped; callers should not retain it.
func FromString(value string) *Secret {
	initOnce.Do(memguard.CatchInterrupt)
	return &Secret{enclave: memguard.NewEnclave([]byte(value))}
}

// Reveal opens the enclave and returns the credential.
//
// The sealed copy stays protected; the returned string is for immediate use
// in a client constructor. Returns "" if the enclave cannot be opened.
func (s *Secret) Reveal() string {
	if s == nil || s.enclave == nil {
		return ""
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return ""
	}
	defer buf.Destroy()
	return string(buf.Bytes())
}

// IsSet reports whether the secret holds a value.
func (s *Secret) IsSet() bool {
	return s != nil && s.enclave != nil
}
