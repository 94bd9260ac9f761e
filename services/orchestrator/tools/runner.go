// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
)

var tracer = otel.Tracer("ayurveda.orchestrator.tools")

// ErrNotFound reports a dispatch against an unregistered tool name.
var ErrNotFound = errors.New("tool not found")

// DefaultTimeout bounds one tool invocation when the runner is built
// without an explicit timeout.
const DefaultTimeout = 15 * time.Second

// Outcome records one dispatched invocation for the turn trace. Output is
// the observation fed back to the planner; on failure Error carries the
// message the tracker stored.
type Outcome struct {
	Tool       string  `json:"tool"`
	Output     string  `json:"output,omitempty"`
	Error      string  `json:"error,omitempty"`
	Success    bool    `json:"success"`
	TimedOut   bool    `json:"timed_out,omitempty"`
	Retryable  bool    `json:"retryable,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Runner dispatches tool invocations with a per-call deadline and logs
// each one to the usage tracker. It is safe for concurrent use.
type Runner struct {
	registry *Registry
	tracker  *tracker.Tracker
	timeout  time.Duration
}

// NewRunner builds a runner over registry. trk may be nil, which disables
// usage logging; timeout <= 0 selects DefaultTimeout.
func NewRunner(registry *Registry, trk *tracker.Tracker, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{registry: registry, tracker: trk, timeout: timeout}
}

// Run invokes the named tool with input.
//
// # Description
//
// The call runs under a deadline of the runner's timeout (or sooner when
// ctx expires first). Whatever happens, the invocation is timed, logged
// to the tracker and returned as an Outcome: a deadline hit becomes
// success=false with error "timeout", an unregistered name becomes
// success=false with error "tool not found", and tool failures carry the
// tool's own message. Run never panics the turn and never returns an
// error; the Outcome is the whole story.
func (r *Runner) Run(ctx context.Context, name string, input Input) Outcome {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	start := time.Now()

	tool, ok := r.registry.Get(name)
	if !ok {
		outcome := Outcome{Tool: name, Error: ErrNotFound.Error()}
		outcome.DurationMS = durationMS(time.Since(start))
		slog.Warn("Unknown tool requested", "tool", name)
		r.record(input.UserID, outcome, time.Since(start))
		return outcome
	}

	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	output, err := tool.Invoke(tctx, input)
	elapsed := time.Since(start)

	outcome := Outcome{Tool: name, DurationMS: durationMS(elapsed)}
	if err != nil {
		terr := asToolError(name, err, tctx)
		outcome.Error = terr.Message
		outcome.TimedOut = terr.Timeout
		outcome.Retryable = terr.Retryable
		span.RecordError(terr)
		slog.Warn("Tool invocation failed",
			"tool", name,
			"error", terr.Message,
			"timed_out", terr.Timeout,
			"duration_ms", outcome.DurationMS)
	} else {
		outcome.Success = true
		outcome.Output = output
	}

	r.record(input.UserID, outcome, elapsed)
	return outcome
}

// record funnels the outcome into the tracker and metrics.
func (r *Runner) record(userID string, outcome Outcome, elapsed time.Duration) {
	if r.tracker != nil {
		meta := map[string]any{}
		if outcome.TimedOut {
			meta["timed_out"] = true
		}
		r.tracker.LogToolUse(tracker.Invocation{
			Tool:         outcome.Tool,
			UserID:       userID,
			Success:      outcome.Success,
			Error:        outcome.Error,
			ResponseTime: tracker.Float64(elapsed.Seconds()),
			Metadata:     meta,
		})
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordToolInvocation(outcome.Tool, outcome.Success, elapsed.Seconds())
	}
}

// asToolError normalizes any invocation failure into a *ToolError. A
// deadline hit, wrapped or not, always reads as the retryable "timeout".
func asToolError(tool string, err error, ctx context.Context) *ToolError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ToolError{Tool: tool, Message: "timeout", Timeout: true, Retryable: true}
	}
	var terr *ToolError
	if errors.As(err, &terr) {
		return terr
	}
	return &ToolError{Tool: tool, Message: err.Error()}
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
