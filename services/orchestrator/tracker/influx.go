// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxConfig holds the connection settings for the analytics export.
// Export is disabled when URL is empty.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// ExportInterval is the period of the background export loop.
	ExportInterval time.Duration
}

// DefaultInfluxConfig reads InfluxDB settings from the environment.
func DefaultInfluxConfig() InfluxConfig {
	return InfluxConfig{
		URL:            os.Getenv("INFLUXDB_URL"),
		Token:          os.Getenv("INFLUXDB_TOKEN"),
		Org:            getEnvString("INFLUXDB_ORG", "ayurveda"),
		Bucket:         getEnvString("INFLUXDB_BUCKET", "tool-usage"),
		ExportInterval: time.Duration(getEnvInt("INFLUXDB_EXPORT_INTERVAL_SECONDS", 300)) * time.Second,
	}
}

// Enabled reports whether an InfluxDB endpoint is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// InfluxExporter ships derived tool and article metrics to InfluxDB so
// usage dashboards do not have to poll the analytics API.
type InfluxExporter struct {
	cfg     InfluxConfig
	client  influxdb2.Client
	write   api.WriteAPIBlocking
	tracker *Tracker
}

// NewInfluxExporter connects an exporter to tr. Returns an error when the
// config has no URL.
func NewInfluxExporter(cfg InfluxConfig, tr *Tracker) (*InfluxExporter, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("influx export requires INFLUXDB_URL")
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = 5 * time.Minute
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxExporter{
		cfg:     cfg,
		client:  client,
		write:   client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		tracker: tr,
	}, nil
}

// ExportOnce writes one point per tool and per article at the current
// instant.
func (e *InfluxExporter) ExportOnce(ctx context.Context) error {
	now := time.Now()
	var points []*write.Point

	for tool, m := range e.tracker.AllToolMetrics() {
		points = append(points, influxdb2.NewPoint(
			"tool_usage",
			map[string]string{"tool": tool},
			map[string]interface{}{
				"invocations":       m.Invocations,
				"errors":            m.Errors,
				"error_rate":        m.ErrorRate,
				"avg_response_time": m.AvgResponseTime,
				"p95_response_time": m.P95ResponseTime,
				"unique_users":      m.UniqueUsers,
			},
			now,
		))
	}

	for articleID, m := range e.tracker.AllArticleMetrics() {
		points = append(points, influxdb2.NewPoint(
			"article_engagement",
			map[string]string{"article_id": articleID},
			map[string]interface{}{
				"views":         m.Views,
				"likes":         m.Likes,
				"shares":        m.Shares,
				"saves":         m.Saves,
				"avg_read_time": m.AvgReadTime,
			},
			now,
		))
	}

	if len(points) == 0 {
		return nil
	}
	if err := e.write.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write usage points: %w", err)
	}
	return nil
}

// Run exports on the configured interval until ctx is cancelled. Export
// failures are logged; the loop keeps going.
func (e *InfluxExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ExportInterval)
	defer ticker.Stop()

	slog.Info("Influx usage export started",
		"url", e.cfg.URL,
		"bucket", e.cfg.Bucket,
		"interval", e.cfg.ExportInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.ExportOnce(ctx); err != nil {
				slog.Warn("Influx usage export failed", "error", err)
			}
		}
	}
}

// Close releases the underlying InfluxDB client.
func (e *InfluxExporter) Close() {
	e.client.Close()
}
