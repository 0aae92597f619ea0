// Command api is the Pitchboard API server.
//
// Usage:
//
//	pitchboard-api
//	PITCHBOARD_HTTP_PORT=8080 pitchboard-api

// @title Pitchboard API
// @version 1.0.0
// @description TrackMan baseball data explorer. Fetches play and ball feeds, flattens the nested JSON into tables, joins them on the play key, and serves filterable, exportable query results plus an embedded dashboard.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Pitchboard
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/pitchboard/pitchboard/internal/api"
	"github.com/pitchboard/pitchboard/internal/cache"
	"github.com/pitchboard/pitchboard/internal/config"
	"github.com/pitchboard/pitchboard/internal/metrics"
	"github.com/pitchboard/pitchboard/internal/pipeline"
	"github.com/pitchboard/pitchboard/internal/trackman"

	_ "github.com/pitchboard/pitchboard/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// TrackMan client with OAuth token source and rate limiting
	tokens := trackman.NewTokenSource(cfg.TrackmanTokenURL, cfg.TrackmanClientID, cfg.TrackmanClientSecret, logger)
	client := trackman.NewClient(cfg.TrackmanBaseURL, tokens, cfg.TrackmanRPS, cfg.TrackmanTimeout(), logger)
	logger.Info("TrackMan client initialized",
		"base_url", cfg.TrackmanBaseURL,
		"rps", cfg.TrackmanRPS)

	// Metrics, response cache, and the pipeline service
	m := metrics.New()
	appCache := cache.New(cfg.ResponseCacheEnabled)
	logger.Info("Response cache initialized", "enabled", cfg.ResponseCacheEnabled)

	svc := pipeline.New(cfg, client, m, logger)
	logger.Info("Pipeline service initialized",
		"memo_capacity", cfg.MemoCapacity,
		"memo_ttl", cfg.MemoTTL().String())

	// Create router
	router := api.NewRouter(svc, appCache, m, cfg)

	// Create HTTP server
	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Pitchboard API",
			"addr", addr,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.HTTPPort),
			"dashboard", fmt.Sprintf("http://localhost:%d/dashboard", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
