package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/samisuko/storefront/internal/metrics"
)

type RouterOptions struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// NewRouter wires the storefront endpoints. The scrape routes carry no
// request timeout; a slow upstream holds the request until the transport
// gives up.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(RecoverJSON(opts.Logger, ListingErrorBody)).Get("/scrape", h.ScrapeListing)
		r.With(RecoverJSON(opts.Logger, DetailErrorBody)).Post("/scrape-detail", h.ScrapeDetail)
	})

	return r
}
