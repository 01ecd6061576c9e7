package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samisuko/storefront/internal/fetcher"
	"github.com/samisuko/storefront/internal/scraper"
)

const (
	msgScrapeFailed = "Failed to scrape data"
	msgNoURL        = "No URL provided"
)

type Handlers struct {
	scraper scraper.Scraper
	logger  *slog.Logger
}

func NewHandlers(s scraper.Scraper, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper: s,
		logger:  logger.With("component", "api"),
	}
}

// ListingErrorResponse is the error body of the listing endpoint.
type ListingErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// DetailRequest is the body of the detail endpoint.
type DetailRequest struct {
	URL string `json:"url"`
}

// ScrapeListing handles GET /api/scrape.
func (h *Handlers) ScrapeListing(w http.ResponseWriter, r *http.Request) {
	items, err := h.scraper.ScrapeListing(r.Context())
	if err != nil {
		h.logger.Error("failed to scrape listing", "error", err)
		h.respondJSON(w, http.StatusInternalServerError, ListingErrorBody(err.Error()))
		return
	}

	h.respondJSON(w, http.StatusOK, items)
}

// ScrapeDetail handles POST /api/scrape-detail.
func (h *Handlers) ScrapeDetail(w http.ResponseWriter, r *http.Request) {
	var req DetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		h.respondError(w, http.StatusBadRequest, msgNoURL)
		return
	}

	detail, err := h.scraper.ScrapeDetail(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("failed to scrape detail", "error", err, "url", req.URL)
		status := http.StatusInternalServerError
		if errors.Is(err, scraper.ErrNoURL) {
			status = http.StatusBadRequest
		}
		h.respondError(w, status, detailErrorMessage(err))
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func detailErrorMessage(err error) string {
	var fetchErr *fetcher.FetchError
	switch {
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Failed to fetch: %d", fetchErr.StatusCode)
	case errors.Is(err, scraper.ErrNoURL):
		return msgNoURL
	default:
		return err.Error()
	}
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, DetailErrorBody(message))
}
