package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/samisuko/storefront/internal/fetcher"
	"github.com/samisuko/storefront/internal/models"
	"github.com/samisuko/storefront/internal/parser"
)

// Service runs fetch, parse and extract for one page per call. It holds no
// per-request state, so concurrent calls for the same URL each do their own
// fetch.
type Service struct {
	fetcher    fetcher.Fetcher
	listingURL string
	recorder   Recorder
	logger     *slog.Logger
}

func NewService(f fetcher.Fetcher, listingURL string, recorder Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		fetcher:    f,
		listingURL: listingURL,
		recorder:   recorder,
		logger:     logger.With("component", "scraper"),
	}
}

// ListingURL returns the fixed upstream shop page.
func (s *Service) ListingURL() string {
	return s.listingURL
}

// ScrapeListing scrapes the shop page and returns its named product cards.
func (s *Service) ScrapeListing(ctx context.Context) ([]models.ListingItem, error) {
	start := time.Now()

	doc, err := s.load(ctx, s.listingURL)
	if err != nil {
		s.recorder.ObserveScrape(KindListing, outcomeOf(err), time.Since(start))
		s.logger.Error("listing scrape failed", "url", s.listingURL, "error", err)
		return nil, err
	}

	items := parser.ExtractListing(doc)

	s.recorder.ObserveScrape(KindListing, OutcomeSuccess, time.Since(start))
	s.recorder.ObserveItems(KindListing, len(items))
	s.logger.Info("scraped listing",
		"url", s.listingURL,
		"items", len(items),
		"duration", time.Since(start),
	)

	return items, nil
}

// ScrapeDetail scrapes one product page. The returned record echoes rawURL
// verbatim as its source URL.
func (s *Service) ScrapeDetail(ctx context.Context, rawURL string) (*models.ProductDetail, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrNoURL
	}

	start := time.Now()

	doc, err := s.load(ctx, rawURL)
	if err != nil {
		s.recorder.ObserveScrape(KindDetail, outcomeOf(err), time.Since(start))
		s.logger.Error("detail scrape failed", "url", rawURL, "error", err)
		return nil, err
	}

	detail := parser.ExtractDetail(doc, rawURL)

	s.recorder.ObserveScrape(KindDetail, OutcomeSuccess, time.Since(start))
	s.recorder.ObserveItems("related", len(detail.RelatedProducts))
	s.logger.Info("scraped detail",
		"url", rawURL,
		"title", detail.Title,
		"images", len(detail.Images),
		"specs", len(detail.Specs),
		"related", len(detail.RelatedProducts),
		"duration", time.Since(start),
	)

	return detail, nil
}

func (s *Service) load(ctx context.Context, pageURL string) (*parser.Document, error) {
	html, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := parser.Parse(html)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DetailURL builds the product page URL for slug on the listing URL's host.
func DetailURL(listingURL, slug string) (string, error) {
	if slug == "" {
		return "", ErrNoSlug
	}

	base, err := url.Parse(listingURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, listingURL)
	}

	return (&url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/produk/" + slug + "/",
	}).String(), nil
}

func outcomeOf(err error) string {
	var fetchErr *fetcher.FetchError
	var netErr *fetcher.NetworkError
	var parseErr *parser.ParseError

	switch {
	case errors.As(err, &fetchErr):
		return OutcomeFetchError
	case errors.As(err, &netErr):
		return OutcomeNetworkError
	case errors.As(err, &parseErr):
		return OutcomeParseError
	default:
		return OutcomeError
	}
}
