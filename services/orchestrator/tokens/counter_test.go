// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicCounter_Count(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char rounds up", "a", 1},
		{"exactly one token", "abcd", 1},
		{"five chars rounds up", "abcde", 2},
		{"eight chars", "abcdefgh", 2},
	}

	counter := HeuristicCounter{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, counter.Count(tt.text))
		})
	}
}

func TestHeuristicCounter_Monotonic(t *testing.T) {
	counter := HeuristicCounter{}
	prev := 0
	for i := 1; i <= 64; i++ {
		got := counter.Count(strings.Repeat("x", i))
		assert.GreaterOrEqual(t, got, prev, "count must never shrink as text grows")
		prev = got
	}
}

func TestTiktokenCounter_Count(t *testing.T) {
	counter, err := NewTiktokenCounter()
	require.NoError(t, err, "cl100k_base encoding should load")

	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("hello world"), 0)

	short := counter.Count("vata imbalance")
	long := counter.Count("vata imbalance with dry skin and poor sleep through winter")
	assert.Greater(t, long, short, "longer text must count more tokens")
}

func TestNewCounter_ReturnsUsableCounter(t *testing.T) {
	counter := NewCounter()
	require.NotNil(t, counter)
	assert.Greater(t, counter.Count("some text"), 0)
}
