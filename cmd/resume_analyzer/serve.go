package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/server"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/tracker"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for analyzing resumes, with SSE progress streaming.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	srvConfig, err := serverConfig(cfg, log)
	if err != nil {
		return err
	}

	runs := tracker.New(tracker.Config{Logger: log})
	runs.StartJanitor(time.Minute)
	defer runs.Close()

	deps := server.Deps{Analyzer: svc.analyzer, Tracker: runs}
	if svc.database != nil {
		deps.Store = svc.database
	} else {
		log.Warn("DATABASE_URL not set; analyses are not persisted and job pages are not cached")
	}

	srv, err := server.New(srvConfig, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

// serverConfig maps application settings onto the HTTP server.
func serverConfig(cfg *config.Config, log *zap.Logger) (server.Config, error) {
	jwtConfig, err := cfg.JWTConfig()
	if err != nil {
		return server.Config{}, fmt.Errorf("failed to create JWT config: %w", err)
	}
	if jwtConfig == nil {
		log.Info("JWT_SECRET not set; API authentication disabled")
	}

	return server.Config{
		Port:           cfg.Port,
		FrontendURL:    cfg.FrontendURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		JWT:            jwtConfig,
		RateLimit: ratelimit.NewConfig(ratelimit.Settings{
			Enabled:          cfg.RateLimit.Enabled,
			AnalyzePerHour:   cfg.RateLimit.AnalyzePerHour,
			AnalyzeBurst:     cfg.RateLimit.AnalyzeBurst,
			DefaultPerMinute: cfg.RateLimit.DefaultPerMinute,
			Whitelist:        cfg.RateLimit.Whitelist,
			Blacklist:        cfg.RateLimit.Blacklist,
		}),
		Logger: log,
	}, nil
}

