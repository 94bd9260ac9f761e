// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator assembles the Ayurveda advisor backend.
//
// # Description
//
// New wires every component of the service from one Config: the LLM
// backend, the Weaviate knowledge base, the session arena, the usage
// tracker, the recommendation ranker and the HTTP route table. Optional
// components degrade instead of failing: without a Weaviate endpoint
// the service runs in lightweight mode (chat only), without API keys
// the weather and web-search tools stay unregistered, and the affected
// endpoints answer 503. Only the pieces a conversation cannot exist
// without, the LLM client and the tracer, abort startup.
//
// Run starts the background loops (session eviction, usage snapshot
// flush, optional InfluxDB export, optional config watch) and then
// blocks serving HTTP until the process ends.
//
// # Usage
//
//	svc, err := orchestrator.New(orchestrator.Config{Version: "1.4.0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/agent"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/config"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/dosha"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/handlers"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/herbs"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/observability"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/ranking"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/routes"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/sessions"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/storage/snapshot"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tokens"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tools"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tracker"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/weather"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/websearch"
)

// tracingServiceName labels spans and the otelgin middleware.
const tracingServiceName = "ayurveda-orchestrator"

// Service is the assembled advisor backend.
//
// # Thread Safety
//
// Implementations are safe for concurrent use after construction. Run
// blocks and is called at most once per instance.
type Service interface {
	// Run starts the background loops and serves HTTP until the
	// process ends. It always returns a non-nil error.
	Run() error

	// Router exposes the gin engine for in-process testing.
	Router() *gin.Engine
}

// Config controls service assembly.
//
// The embedded config.Config carries the runtime settings. Leaving it
// zero makes New load it from the environment, overlaid with
// ConfigFile when one is set.
type Config struct {
	config.Config

	// ConfigFile is an optional YAML settings file. When set it is
	// overlaid over the environment at startup and watched for changes
	// while the service runs.
	ConfigFile string

	// GinMode switches gin's mode ("release", "debug", "test").
	// Empty keeps gin's default.
	GinMode string

	// TraceStdout prints spans to stdout instead of exporting them.
	TraceStdout bool

	// Version is reported by the health endpoint.
	Version string
}

type service struct {
	cfg     Config
	router  *gin.Engine
	started time.Time

	arena   *sessions.Arena
	cleaner *sessions.Cleaner
	tracker *tracker.Tracker
	influx  *tracker.InfluxExporter
	ranker  *ranking.Ranker
	watcher *config.Watcher

	tracerStop func(context.Context)
}

var _ Service = (*service)(nil)

// New assembles the service from cfg.
//
// # Description
//
// Initialization order matters: tracing and metrics come up first so
// every later component can emit, then the LLM client (fatal when the
// configured backend cannot be built), then the optional stores and
// clients, then the agent and session arena, and the route table last.
//
// # Errors
//
//   - configuration load failures when the embedded settings are zero
//     and ConfigFile cannot be read or parsed
//   - tracer initialization failures
//   - snapshot backend misconfiguration
//   - LLM backend construction failures
func New(cfg Config) (Service, error) {
	if cfg.Config == (config.Config{}) {
		loaded, err := config.Load(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg.Config = loaded
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	s := &service{cfg: cfg, started: time.Now().UTC()}

	tracerStop, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceName:  tracingServiceName,
		OTLPEndpoint: cfg.Server.OTLPEndpoint,
		Stdout:       cfg.TraceStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}
	s.tracerStop = tracerStop

	// InitMetrics registers on the default Prometheus registerer and
	// must run at most once per process.
	if observability.DefaultMetrics == nil {
		observability.InitMetrics()
	}
	metrics := observability.DefaultMetrics

	client, err := llm.New(cfg.Server.LLMBackend)
	if err != nil {
		s.shutdown()
		return nil, fmt.Errorf("initialize LLM backend %q: %w", cfg.Server.LLMBackend, err)
	}

	store, ingest := initRetrieval(cfg.Server.WeaviateURL, client)

	snaps, err := snapshot.New(snapshot.DefaultConfig())
	if err != nil {
		s.shutdown()
		return nil, fmt.Errorf("initialize snapshot store: %w", err)
	}

	trackerCfg := tracker.DefaultConfig()
	if interval := cfg.Tracker.FlushInterval(); interval > 0 {
		trackerCfg.FlushInterval = interval
	}
	s.tracker = tracker.New(trackerCfg, snaps)

	if influxCfg := tracker.DefaultInfluxConfig(); influxCfg.Enabled() {
		exporter, err := tracker.NewInfluxExporter(influxCfg, s.tracker)
		if err != nil {
			slog.Warn("InfluxDB export disabled", "error", err)
		} else {
			s.influx = exporter
		}
	}

	profiles := ranking.NewProfileStore(snaps)
	s.ranker = ranking.NewRanker(ranking.Config{
		TopK:                  cfg.Ranking.TopK,
		PersonalizationWeight: cfg.Ranking.PersonalizationWeight,
	}, store, profiles)

	herbRecommender := herbs.NewRecommender(s.ranker)
	calculator := dosha.NewCalculator()
	symptoms := dosha.NewSymptomAnalyzer()

	weatherClient, err := weather.New(weather.DefaultConfig())
	if err != nil {
		slog.Warn("Weather client unavailable", "error", err)
	}
	searchClient, err := websearch.New(websearch.DefaultConfig())
	if err != nil {
		slog.Warn("Web search client unavailable", "error", err)
	}

	registry := tools.NewRegistry()
	if store != nil {
		registry.Register(tools.NewSearchTool(store))
	}
	registry.Register(tools.NewSymptomTool(symptoms, searchClient))
	registry.Register(tools.NewDoshaTool(calculator))
	registry.Register(tools.NewRecommendationTool(s.ranker))
	registry.Register(tools.NewArticleTool(s.tracker))
	registry.Register(tools.NewHerbTool(herbRecommender))
	if searchClient != nil {
		registry.Register(tools.NewGoogleSearchTool(searchClient))
	}
	if weatherClient != nil {
		registry.Register(tools.NewWeatherTool(weatherClient))
	}

	summarizer := conversation.NewSummarizer(conversation.DefaultSummarizerConfig(), client, tokens.NewCounter())
	advisor := agent.New(agent.DefaultConfig(), agent.Deps{
		Client:     client,
		Registry:   registry,
		Tracker:    s.tracker,
		Summarizer: summarizer,
		Metrics:    metrics,
	})

	s.arena = sessions.NewArena(sessions.Config{
		TTL:             cfg.Sessions.TTL(),
		CleanupInterval: cfg.Sessions.CleanupInterval(),
	}, nil, metrics)
	s.cleaner = sessions.NewCleaner(s.arena, cfg.Sessions.CleanupInterval())

	if cfg.ConfigFile != "" {
		watcher, err := config.NewWatcher(cfg.ConfigFile, s.applyReload, config.DefaultWatcherOptions())
		if err != nil {
			slog.Warn("Config watch disabled", "error", err)
		} else {
			s.watcher = watcher
		}
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(tracingServiceName))
	routes.Setup(router, routes.Deps{
		Arena:      s.arena,
		Advisor:    advisor,
		Tracker:    s.tracker,
		Ranker:     s.ranker,
		Herbs:      herbRecommender,
		Profiles:   profiles,
		Search:     store,
		Ingest:     ingest,
		Calculator: calculator,
		Symptoms:   symptoms,
		Weather:    weatherClient,
		Version:    cfg.Version,
		Started:    s.started,
		Components: componentReport(cfg, store, weatherClient, searchClient, s.influx),
	})
	s.router = router

	return s, nil
}

// initRetrieval builds the knowledge-base store, or nil for lightweight
// mode. The concrete store serves both route interfaces; when it is
// missing both returns must be untyped nils so the handlers' guards
// fire.
func initRetrieval(weaviateURL string, client llm.Client) (retrieval.Store, handlers.Ingestor) {
	embedder, _ := client.(retrieval.Embedder)

	retrievalCfg := retrieval.DefaultConfig()
	retrievalCfg.URL = weaviateURL
	weaviateStore, err := retrieval.New(retrievalCfg, embedder)
	if err != nil {
		slog.Warn("Knowledge base unavailable, running in lightweight mode", "error", err)
		return nil, nil
	}
	if weaviateStore == nil {
		return nil, nil
	}
	return weaviateStore, weaviateStore
}

// componentReport summarizes the optional components for the health
// payload.
func componentReport(cfg Config, store retrieval.Store, weatherClient *weather.Client, searchClient *websearch.Client, influx *tracker.InfluxExporter) map[string]string {
	report := map[string]string{
		"llm_backend": cfg.Server.LLMBackend,
	}
	if store != nil {
		report["knowledge_base"] = "weaviate"
	} else {
		report["knowledge_base"] = "lightweight"
	}
	if weatherClient != nil {
		report["weather"] = "enabled"
	}
	if searchClient != nil {
		report["web_search"] = "enabled"
	}
	if influx != nil {
		report["influx_export"] = "enabled"
	}
	if cfg.ConfigFile != "" {
		report["config_file"] = cfg.ConfigFile
	}
	return report
}

// Run starts the background loops and serves HTTP on the configured
// port. It blocks until the HTTP server stops and always returns a
// non-nil error.
func (s *service) Run() error {
	defer s.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.cleaner.Start(ctx); err != nil {
		slog.Warn("Session cleaner failed to start", "error", err)
	}
	go s.tracker.RunPeriodicFlush(ctx)
	if s.influx != nil {
		go s.influx.Run(ctx)
	}
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			slog.Warn("Config watch failed to start", "error", err)
		} else {
			slog.Info("Watching configuration file", "path", s.cfg.ConfigFile)
		}
	}

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	slog.Info("Starting Ayurveda orchestrator",
		"addr", addr,
		"version", s.cfg.Version,
		"llm_backend", s.cfg.Server.LLMBackend,
	)
	return s.router.Run(addr)
}

// Router exposes the gin engine for in-process testing. The route
// table is fixed after construction.
func (s *service) Router() *gin.Engine {
	return s.router
}

// applyReload pushes reloaded settings into the components that accept
// them at runtime. Settings that only take effect at startup are
// reported so an operator knows a restart is still needed.
func (s *service) applyReload(next config.Config) {
	s.arena.SetTTL(next.Sessions.TTL())
	s.ranker.SetConfig(ranking.Config{
		TopK:                  next.Ranking.TopK,
		PersonalizationWeight: next.Ranking.PersonalizationWeight,
	})
	slog.Info("Applied configuration reload",
		"session_ttl", next.Sessions.TTL().String(),
		"ranking_top_k", next.Ranking.TopK,
		"personalization_weight", next.Ranking.PersonalizationWeight,
	)

	if next.Server != s.cfg.Server {
		slog.Warn("Server settings changed on disk, restart to apply",
			"port", next.Server.Port,
			"llm_backend", next.Server.LLMBackend,
		)
	}
	if next.Tracker != s.cfg.Tracker {
		slog.Warn("Tracker flush interval changed on disk, restart to apply",
			"flush_interval", next.Tracker.FlushInterval().String(),
		)
	}
}

// shutdown stops the background loops and flushes what they hold. The
// final tracker flush bounds snapshot staleness to zero at exit.
func (s *service) shutdown() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.cleaner != nil {
		if err := s.cleaner.Stop(); err != nil {
			slog.Debug("Session cleaner already stopped", "error", err)
		}
	}
	if s.tracker != nil {
		s.tracker.Flush()
	}
	if s.influx != nil {
		s.influx.Close()
	}
	if s.tracerStop != nil {
		s.tracerStop(context.Background())
	}
}
