package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/fetch"
	"github.com/jonathan/resume-analyzer/internal/ingestion"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
)

// services are the long-lived components shared by the commands.
type services struct {
	analyzer *pipeline.Analyzer
	database *db.DB
	closers  []func()
}

// Close releases the model client and database pool.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices wires the model client, optional database and job ingester into an Analyzer.
func buildServices(ctx context.Context, cfg *config.Config, log *zap.Logger, useDatabase bool) (*services, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	llmConfig := cfg.LLMClientConfig()
	client, err := llm.NewClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	svc := &services{closers: []func(){func() { _ = client.Close() }}}

	if useDatabase && cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		svc.closers = append(svc.closers, database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to prepare database schema: %w", err)
		}
		svc.database = database
	}

	delegateLog := logger.WithFields(log, logger.CommonFields(string(llmConfig.Provider), "")...)
	delegate := pipeline.NewLLMDelegate(client, cfg.RetryConfig(), attemptTimeout(cfg), delegateLog)
	orchestrator := pipeline.New(delegate, pipeline.Options{
		Fallbacks:    cfg.Fallbacks(),
		StageTimeout: cfg.Stage.Timeout,
		Logger:       log.With(zap.String("provider", string(llmConfig.Provider))),
	})

	svc.analyzer = newAnalyzer(orchestrator, cfg, svc.database, log)
	return svc, nil
}

// attemptTimeout divides the stage timeout evenly across its attempts.
func attemptTimeout(cfg *config.Config) time.Duration {
	return cfg.Stage.Timeout / time.Duration(cfg.Stage.MaxRetries+1)
}

func newAnalyzer(o *pipeline.Orchestrator, cfg *config.Config, database *db.DB, log *zap.Logger) *pipeline.Analyzer {
	fetcherConfig := fetch.DefaultCachedFetcherConfig()
	fetcherConfig.Logger = log

	var renderer fetch.Renderer
	if cfg.UseBrowser {
		renderer = fetch.NewBrowserRenderer(fetch.DefaultBrowserTimeout, log)
	}

	// a nil *db.DB must not become a non-nil interface
	if database == nil {
		fetcher := fetch.NewCachedFetcher(nil, fetcherConfig)
		return pipeline.NewAnalyzer(o, ingestion.NewIngester(fetcher, renderer, log), nil, log)
	}
	fetcher := fetch.NewCachedFetcher(database, fetcherConfig)
	return pipeline.NewAnalyzer(o, ingestion.NewIngester(fetcher, renderer, log), database, log)
}
