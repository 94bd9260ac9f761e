// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the
// conversational agent. Metrics include:
//   - Turn counters and duration histograms (by status)
//   - Tool invocation counters and latency histograms (by tool)
//   - LLM call counters, latency and token usage (by model)
//   - Fallback counters (web search, static recommendations)
//   - Session and websocket gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "ayurveda"

// Subsystem for orchestrator metrics
const orchestratorSubsystem = "orchestrator"

// Metrics holds all Prometheus metrics for the conversational agent.
//
// # Description
//
// Provides counters, histograms and gauges for monitoring turn processing,
// tool usage and LLM traffic. Initialize once at startup via InitMetrics(),
// or with NewMetrics() against a private registry in tests.
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// TurnsTotal counts processed turns.
	// Labels: status (success, error)
	TurnsTotal *prometheus.CounterVec

	// TurnDurationSeconds measures end-to-end turn latency.
	// Labels: status (success, error)
	TurnDurationSeconds *prometheus.HistogramVec

	// TurnIterations measures how many tool-loop rounds a turn took.
	TurnIterations prometheus.Histogram

	// ToolInvocationsTotal counts tool dispatches.
	// Labels: tool, status (success, error)
	ToolInvocationsTotal *prometheus.CounterVec

	// ToolDurationSeconds measures per-tool latency.
	// Labels: tool
	ToolDurationSeconds *prometheus.HistogramVec

	// LLMCallsTotal counts model calls.
	// Labels: model, status (success, error)
	LLMCallsTotal *prometheus.CounterVec

	// LLMLatencySeconds measures model call latency.
	// Labels: model
	LLMLatencySeconds *prometheus.HistogramVec

	// TokensTotal counts tokens processed by direction and model.
	// Labels: direction (input, output), model
	TokensTotal *prometheus.CounterVec

	// FallbacksTotal counts degraded answers by kind.
	// Labels: kind (web_search, static_recommendations)
	FallbacksTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by pipeline stage and type.
	// Labels: stage, error_code
	ErrorsTotal *prometheus.CounterVec

	// ActiveSessions tracks how many conversation sessions are live.
	ActiveSessions prometheus.Gauge

	// SessionEventsTotal counts session lifecycle events.
	// Labels: event (created, resumed, cleared, evicted)
	SessionEventsTotal *prometheus.CounterVec

	// ActiveWebsockets tracks open websocket chat connections.
	ActiveWebsockets prometheus.Gauge
}

// DefaultMetrics is the singleton instance used by the orchestrator.
// Initialized by InitMetrics(); nil until then, and callers that can run
// before startup must nil-check it.
var DefaultMetrics *Metrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates all metrics against the default Prometheus registry and stores
// the instance in DefaultMetrics. Call once at application startup.
//
// # Outputs
//
//   - *Metrics: the initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics creates and registers all metrics against reg. Tests pass a
// private registry so parallel packages never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "turns_total",
				Help:      "Total processed conversation turns by status",
			},
			[]string{"status"},
		),

		TurnDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "End-to-end turn processing time in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"status"},
		),

		TurnIterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "turn_iterations",
				Help:      "Tool-loop rounds taken per turn",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),

		ToolInvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "tool_invocations_total",
				Help:      "Total tool dispatches by tool and status",
			},
			[]string{"tool", "status"},
		),

		ToolDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "tool_duration_seconds",
				Help:      "Tool invocation time in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"tool"},
		),

		LLMCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "llm_calls_total",
				Help:      "Total model calls by model and status",
			},
			[]string{"model", "status"},
		),

		LLMLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "llm_latency_seconds",
				Help:      "Model call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"model"},
		),

		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "tokens_total",
				Help:      "Total tokens processed by direction and model",
			},
			[]string{"direction", "model"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "fallbacks_total",
				Help:      "Total degraded answers by fallback kind",
			},
			[]string{"kind"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by pipeline stage and type",
			},
			[]string{"stage", "error_code"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "active_sessions",
				Help:      "Number of live conversation sessions",
			},
		),

		SessionEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "session_events_total",
				Help:      "Total session lifecycle events",
			},
			[]string{"event"},
		),

		ActiveWebsockets: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: orchestratorSubsystem,
				Name:      "active_websockets",
				Help:      "Number of open websocket chat connections",
			},
		),
	}
}

// =============================================================================
// Label Types
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates a model call failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeTimeout indicates operation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeRateLimit indicates a provider quota or rate limit hit.
	ErrorCodeRateLimit ErrorCode = "rate_limit"

	// ErrorCodeToolError indicates a tool invocation failure.
	ErrorCodeToolError ErrorCode = "tool_error"

	// ErrorCodeRetrieval indicates a knowledge-base retrieval failure.
	ErrorCodeRetrieval ErrorCode = "retrieval_error"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates the client went away mid-turn.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// Stage represents a turn-pipeline stage for error labeling.
type Stage string

const (
	// StageContext is conversation context assembly.
	StageContext Stage = "context_check"

	// StageToolLoop is the bounded tool-dispatch loop.
	StageToolLoop Stage = "tool_loop"

	// StageResponse is response generation and assembly.
	StageResponse Stage = "response"

	// StagePersist is session and analytics persistence.
	StagePersist Stage = "persist"

	// StageTransport is the HTTP/websocket edge.
	StageTransport Stage = "transport"
)

// FallbackKind labels a degraded-answer path.
type FallbackKind string

const (
	// FallbackWebSearch marks an answer backed by live web search after
	// a low-confidence draft.
	FallbackWebSearch FallbackKind = "web_search"

	// FallbackStaticRecommendations marks recommendations served from
	// the static catalog after a failed personalized search.
	FallbackStaticRecommendations FallbackKind = "static_recommendations"
)

// SessionEvent labels a session lifecycle transition.
type SessionEvent string

const (
	// SessionCreated marks a brand new session.
	SessionCreated SessionEvent = "created"

	// SessionResumed marks a switch back to an existing session.
	SessionResumed SessionEvent = "resumed"

	// SessionCleared marks an explicit history wipe.
	SessionCleared SessionEvent = "cleared"

	// SessionEvicted marks a TTL eviction.
	SessionEvicted SessionEvent = "evicted"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordTurn records one completed turn.
//
// # Inputs
//
//   - success: whether the turn produced a normal response.
//   - seconds: end-to-end processing time.
//   - iterations: tool-loop rounds the turn took.
func (m *Metrics) RecordTurn(success bool, seconds float64, iterations int) {
	status := statusLabel(success)
	m.TurnsTotal.WithLabelValues(status).Inc()
	m.TurnDurationSeconds.WithLabelValues(status).Observe(seconds)
	m.TurnIterations.Observe(float64(iterations))
}

// RecordToolInvocation records one tool dispatch.
//
// # Inputs
//
//   - tool: the dispatched tool name.
//   - success: whether the invocation succeeded.
//   - seconds: invocation time.
func (m *Metrics) RecordToolInvocation(tool string, success bool, seconds float64) {
	m.ToolInvocationsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	m.ToolDurationSeconds.WithLabelValues(tool).Observe(seconds)
}

// RecordLLMCall records one model call.
//
// # Inputs
//
//   - model: the model identifier.
//   - success: whether the call succeeded.
//   - seconds: call latency.
func (m *Metrics) RecordLLMCall(model string, success bool, seconds float64) {
	m.LLMCallsTotal.WithLabelValues(model, statusLabel(success)).Inc()
	m.LLMLatencySeconds.WithLabelValues(model).Observe(seconds)
}

// RecordTokens records token usage for one model call.
//
// # Inputs
//
//   - inputTokens: number of prompt tokens.
//   - outputTokens: number of completion tokens.
//   - model: the model used.
func (m *Metrics) RecordTokens(inputTokens, outputTokens int, model string) {
	m.TokensTotal.WithLabelValues("input", model).Add(float64(inputTokens))
	m.TokensTotal.WithLabelValues("output", model).Add(float64(outputTokens))
}

// RecordFallback records one degraded answer.
func (m *Metrics) RecordFallback(kind FallbackKind) {
	m.FallbacksTotal.WithLabelValues(string(kind)).Inc()
}

// RecordError records one pipeline error.
//
// # Inputs
//
//   - stage: the pipeline stage where the error occurred.
//   - code: the error type code.
func (m *Metrics) RecordError(stage Stage, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(stage), string(code)).Inc()
}

// RecordSessionEvent records one session lifecycle transition.
func (m *Metrics) RecordSessionEvent(event SessionEvent) {
	m.SessionEventsTotal.WithLabelValues(string(event)).Inc()
}

// SetActiveSessions reports the current live session count.
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// WebsocketOpened increments the open-connection gauge.
func (m *Metrics) WebsocketOpened() {
	m.ActiveWebsockets.Inc()
}

// WebsocketClosed decrements the open-connection gauge.
func (m *Metrics) WebsocketClosed() {
	m.ActiveWebsockets.Dec()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
