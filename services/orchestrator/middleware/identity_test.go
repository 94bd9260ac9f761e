// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runIdentity(t *testing.T, header string, explicit string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var resolved string
	router := gin.New()
	router.Use(Identity())
	router.GET("/whoami", func(c *gin.Context) {
		resolved = UserID(c, explicit)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(UserIDHeader, header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return resolved
}

func TestIdentityDefaultsWithoutHeader(t *testing.T) {
	assert.Equal(t, DefaultUserID, runIdentity(t, "", ""))
}

func TestIdentityReadsHeader(t *testing.T) {
	assert.Equal(t, "alice", runIdentity(t, "alice", ""))
}

func TestExplicitUserIDWins(t *testing.T) {
	assert.Equal(t, "bob", runIdentity(t, "alice", "bob"))
}

func TestBlankHeaderFallsBack(t *testing.T) {
	assert.Equal(t, DefaultUserID, runIdentity(t, "   ", ""))
}

func TestUserIDWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Equal(t, DefaultUserID, UserID(c, ""))
	assert.Equal(t, "carol", UserID(c, "carol"))
}
