// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the orchestrator
// service.
//
// The identity middleware resolves which user a request belongs to.
// There is no authentication here: the advisor personalizes per user
// but trusts its callers, so identity is declarative via the X-User-ID
// header. Handlers prefer an explicit user_id in the request body or
// query and fall back to the header value through UserID.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDHeader is the request header naming the calling user.
const UserIDHeader = "X-User-ID"

// DefaultUserID is assumed when neither the request nor the header
// names a user.
const DefaultUserID = "default_user"

// userIDKey is the gin context key the middleware stores the resolved
// id under.
const userIDKey = "ayurveda_user_id"

// Identity resolves the caller's user id from the X-User-ID header and
// stores it in the request context. Requests without the header run as
// DefaultUserID.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if id == "" {
			id = DefaultUserID
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserID returns the effective user id for a request: the explicit
// value when non-blank, otherwise the id the identity middleware
// resolved, otherwise DefaultUserID.
func UserID(c *gin.Context, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return DefaultUserID
}
