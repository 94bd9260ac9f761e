// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
)

// HealthData is the liveness payload. It is served unwrapped so probes
// can match on the top-level status field.
type HealthData struct {
	Status         string            `json:"status"`
	Service        string            `json:"service"`
	Version        string            `json:"version"`
	UptimeSeconds  float64           `json:"uptime_seconds"`
	ActiveSessions int               `json:"active_sessions"`
	Components     map[string]string `json:"components,omitempty"`
}

// Health reports service liveness plus which optional components are
// wired in this deployment.
func Health(version string, started time.Time, arena *sessions.Arena, components map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := HealthData{
			Status:        "healthy",
			Service:       "ayurveda-orchestrator",
			Version:       version,
			UptimeSeconds: time.Since(started).Seconds(),
			Components:    components,
		}
		if arena != nil {
			data.ActiveSessions = arena.Len()
		}
		c.JSON(http.StatusOK, data)
	}
}
