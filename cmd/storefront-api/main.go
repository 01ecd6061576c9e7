package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/samisuko/storefront/internal/api"
	"github.com/samisuko/storefront/internal/config"
	"github.com/samisuko/storefront/internal/fetcher"
	"github.com/samisuko/storefront/internal/logger"
	"github.com/samisuko/storefront/internal/metrics"
	"github.com/samisuko/storefront/internal/scraper"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	log, err := logger.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// One fetcher is shared by both endpoints.
	f := fetcher.New(fetcher.Options{
		UserAgent: cfg.Scraper.UserAgent,
		Accept:    cfg.Scraper.Accept,
		Timeout:   cfg.Scraper.FetchTimeout,
	}, log)
	svc := scraper.NewService(f, cfg.Scraper.ListingURL, m, log)

	handlers := api.NewHandlers(svc, log)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        m,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting",
		"addr", server.Addr,
		"listing_url", svc.ListingURL(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
