package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/samisuko/storefront/internal/models"
)

var (
	ErrNoURL      = errors.New("no url provided")
	ErrInvalidURL = errors.New("invalid product URL")
	ErrNoSlug     = errors.New("product has no slug")
)

// Scraper is the pipeline surface the HTTP handlers and the sync job use.
type Scraper interface {
	ScrapeListing(ctx context.Context) ([]models.ListingItem, error)
	ScrapeDetail(ctx context.Context, url string) (*models.ProductDetail, error)
}

// Recorder receives pipeline outcomes. *metrics.Metrics implements it.
type Recorder interface {
	ObserveScrape(kind, outcome string, d time.Duration)
	ObserveItems(kind string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveScrape(string, string, time.Duration) {}
func (nopRecorder) ObserveItems(string, int)                    {}

const (
	KindListing = "listing"
	KindDetail  = "detail"

	OutcomeSuccess      = "success"
	OutcomeFetchError   = "fetch_error"
	OutcomeNetworkError = "network_error"
	OutcomeParseError   = "parse_error"
	OutcomeError        = "error"
)
