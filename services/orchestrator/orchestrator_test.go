// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/config"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// isolateEnv pins every setting New reads so host environment cannot
// leak into assembly. The local llama.cpp backend only needs a URL at
// construction time, nothing is dialed.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ORCHESTRATOR_PORT",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"WEAVIATE_SERVICE_URL",
		"SESSION_TTL_HOURS",
		"SESSION_CLEANUP_INTERVAL_MINUTES",
		"RANKING_TOP_K",
		"RANKING_PERSONALIZATION_WEIGHT",
		"TRACKER_FLUSH_INTERVAL_SECONDS",
		"OPENWEATHERMAP_API_KEY",
		"SERP_API_KEY",
		"INFLUXDB_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LLM_BACKEND_TYPE", "local")
	t.Setenv("LLM_SERVICE_URL_BASE", "http://llamacpp:8080")
	t.Setenv("SNAPSHOT_BACKEND", "memory")
}

func healthCheck(t *testing.T, router *gin.Engine) handlers.HealthData {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var data handlers.HealthData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	return data
}

func TestNewAssemblesService(t *testing.T) {
	isolateEnv(t)

	svc, err := New(Config{Version: "test"})
	require.NoError(t, err)
	require.NotNil(t, svc.Router())

	data := healthCheck(t, svc.Router())
	assert.Equal(t, "healthy", data.Status)
	assert.Equal(t, "ayurveda-orchestrator", data.Service)
	assert.Equal(t, "test", data.Version)
	assert.Equal(t, "lightweight", data.Components["knowledge_base"])
	assert.Equal(t, "local", data.Components["llm_backend"])
}

func TestNewTwiceSharesMetrics(t *testing.T) {
	isolateEnv(t)

	_, err := New(Config{})
	require.NoError(t, err)

	// The second construction must reuse the process-wide metrics
	// instead of re-registering on the default registerer.
	_, err = New(Config{})
	require.NoError(t, err)
}

func TestNewRejectsUnreadableConfigFile(t *testing.T) {
	isolateEnv(t)

	_, err := New(Config{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}

func TestNewAppliesConfigFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9321\nranking:\n  top_k: 7\n"), 0o600))

	svc, err := New(Config{ConfigFile: path, Version: "test"})
	require.NoError(t, err)

	data := healthCheck(t, svc.Router())
	assert.Equal(t, path, data.Components["config_file"])
}

func TestNewRejectsUnbuildableBackend(t *testing.T) {
	isolateEnv(t)
	// The local backend constructor fails without a service URL.
	t.Setenv("LLM_SERVICE_URL_BASE", "")

	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM backend")
}

func TestApplyReloadAdjustsRuntimeSettings(t *testing.T) {
	isolateEnv(t)

	svc, err := New(Config{})
	require.NoError(t, err)
	s, ok := svc.(*service)
	require.True(t, ok)

	next := config.Config{}
	next.Sessions.TTLHours = 2
	next.Ranking.TopK = 9
	next.Ranking.PersonalizationWeight = 0.5
	s.applyReload(next)

	assert.Equal(t, 2*time.Hour, s.arena.TTL())
}

func TestComponentReportFlagsOptionalPieces(t *testing.T) {
	cfg := Config{ConfigFile: "/etc/ayurveda.yaml"}
	cfg.Server.LLMBackend = "openai"

	report := componentReport(cfg, nil, nil, nil, nil)
	assert.Equal(t, "openai", report["llm_backend"])
	assert.Equal(t, "lightweight", report["knowledge_base"])
	assert.Equal(t, "/etc/ayurveda.yaml", report["config_file"])
	assert.NotContains(t, report, "weather")
	assert.NotContains(t, report, "web_search")
	assert.NotContains(t, report, "influx_export")
}
