// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/datatypes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
)

func TestServerBaseURL(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("AYURVEDA_SERVER_URL", "")
		assert.Equal(t, defaultServerURL, serverBaseURL())
	})

	t.Run("env override strips trailing slash", func(t *testing.T) {
		t.Setenv("AYURVEDA_SERVER_URL", "http://advisor:9000/")
		assert.Equal(t, "http://advisor:9000", serverBaseURL())
	})
}

func TestAPIClientChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"success","data":{"response":"Drink warm water.","session_id":"sess_1"}}`)
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	resp, err := client.Chat(context.Background(), datatypes.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Drink warm water.", resp.Response)
	assert.Equal(t, "sess_1", resp.SessionID)
}

func TestAPIClientErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"status":"error","message":"session not found"}`)
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)
	err := client.DeleteSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestAPIClientUnreachableServer(t *testing.T) {
	client := newAPIClient("http://127.0.0.1:1")
	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is the orchestrator running")
}

func TestHumanAge(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"seconds", 30 * time.Second, "just now"},
		{"minutes", 5 * time.Minute, "5m ago"},
		{"hours", 3 * time.Hour, "3h ago"},
		{"days", 49 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, humanAge(tt.d))
		})
	}
}

// scriptedReader feeds predetermined lines to askOption.
type scriptedReader struct {
	lines []string
}

func (r *scriptedReader) ReadLine(prompt string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() error { return nil }

func TestAskOption(t *testing.T) {
	q := dosha.NewCalculator().Questions()[0]

	t.Run("numbered answer", func(t *testing.T) {
		value, err := askOption(&scriptedReader{lines: []string{"2"}}, q)
		require.NoError(t, err)
		assert.Equal(t, q.Options[1].Value, value)
	})

	t.Run("option value answer", func(t *testing.T) {
		value, err := askOption(&scriptedReader{lines: []string{q.Options[0].Value}}, q)
		require.NoError(t, err)
		assert.Equal(t, q.Options[0].Value, value)
	})

	t.Run("blank skips", func(t *testing.T) {
		value, err := askOption(&scriptedReader{lines: []string{""}}, q)
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("invalid then valid", func(t *testing.T) {
		value, err := askOption(&scriptedReader{lines: []string{"99", "nope", "1"}}, q)
		require.NoError(t, err)
		assert.Equal(t, q.Options[0].Value, value)
	})

	t.Run("eof propagates", func(t *testing.T) {
		_, err := askOption(&scriptedReader{}, q)
		assert.ErrorIs(t, err, io.EOF)
	})
}
