package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/recipescrape/api"
	"github.com/use-agent/recipescrape/api/handler"
	"github.com/use-agent/recipescrape/auth"
	"github.com/use-agent/recipescrape/cache"
	"github.com/use-agent/recipescrape/config"
	"github.com/use-agent/recipescrape/engine"
	"github.com/use-agent/recipescrape/metrics"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/recipe"
	"github.com/use-agent/recipescrape/scraper"
	"github.com/use-agent/recipescrape/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("recipescrape starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"auth", cfg.Auth.Enabled,
	)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err,
			"hint", "set RECIPESCRAPE_API_KEYS or RECIPESCRAPE_TOKEN_SECRET, or RECIPESCRAPE_AUTH_ENABLED=false")
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── 3. Metrics ──────────────────────────────────────────────────
	collector := metrics.NewCollector(handler.Version)

	// ── 4. Fetch engines + extractor ────────────────────────────────
	dispatcher, stopEngines, err := engine.NewFromConfig(cfg.Fetch, engine.WithObserver(collector))
	if err != nil {
		slog.Error("failed to initialise engines", "error", err)
		os.Exit(1)
	}
	defer stopEngines()
	slog.Info("engines ready",
		"engines", dispatcher.Names(),
		"delays", cfg.Fetch.EscalationDelays,
		"per_host_rps", cfg.Fetch.PerHostRPS,
	)

	extractor := recipe.NewExtractor(recipe.WithObserver(collector))
	sc := scraper.New(dispatcher, extractor, cfg.Fetch)

	// ── 5. Tokens, batch store ──────────────────────────────────────
	var issuer api.Issuer
	if cfg.Auth.TokenSecret != "" {
		issuer = auth.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	}
	jobs := cache.New[models.BatchStatusResponse](cfg.Batch.MaxJobs, cfg.Batch.JobTTL)
	defer jobs.Close()

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, cfg, api.Deps{
		Scraper:  sc,
		Issuer:   issuer,
		Metrics:  collector,
		Jobs:     jobs,
		Notifier: webhook.NewNotifier(),
		Engines:  dispatcher.Names(),
	}, time.Now())

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Abort batch jobs still running.
	stop()
	slog.Info("recipescrape stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
