package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samisuko/storefront/internal/database"
	"github.com/samisuko/storefront/internal/events"
	"github.com/samisuko/storefront/internal/models"
	"github.com/samisuko/storefront/internal/ratelimit"
	"github.com/samisuko/storefront/internal/scraper"
)

// Source is the scrape pipeline the job reads from.
type Source interface {
	scraper.Scraper
	ListingURL() string
}

// Store persists a snapshot. *database.DB implements it.
type Store interface {
	UpsertCatalogProducts(ctx context.Context, products []*models.CatalogProduct) (int, error)
	InsertSyncRun(ctx context.Context, run *database.SyncRun) error
}

// Publisher announces a stored snapshot. *events.Publisher implements it.
type Publisher interface {
	PublishCatalogSynced(ctx context.Context, payload *events.CatalogSyncedPayload) (string, error)
}

type Options struct {
	// Concurrency bounds in-flight detail scrapes. Values below 1 mean 1.
	Concurrency  int
	FetchDetails bool
}

type Result struct {
	RunID          uuid.UUID
	Status         database.SyncStatus
	ListingURL     string
	Products       []*models.CatalogProduct
	ItemsFound     int
	ItemsStored    int
	ItemsSkipped   int
	DetailsFetched int
	DetailErrors   int
	StreamID       string
	StartedAt      time.Time
	FinishedAt     time.Time
}

type Syncer struct {
	source    Source
	store     Store
	publisher Publisher
	limiter   ratelimit.RateLimiter
	opts      Options
	logger    *slog.Logger
}

// New builds a sync job. A nil store makes Run a dry run that scrapes but
// neither persists nor publishes. A nil publisher skips the event. A nil
// limiter does not throttle detail scrapes.
func New(source Source, store Store, publisher Publisher, limiter ratelimit.RateLimiter, opts Options, logger *slog.Logger) *Syncer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Syncer{
		source:    source,
		store:     store,
		publisher: publisher,
		limiter:   limiter,
		opts:      opts,
		logger:    logger.With("component", "catalog_sync"),
	}
}

// Run scrapes the listing, optionally enriches each product with its detail
// page, stores the snapshot and publishes a CATALOG_SYNCED event. Detail
// failures are counted and leave the run partial; listing, storage and
// publish failures fail the run.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:      uuid.New(),
		ListingURL: s.source.ListingURL(),
		StartedAt:  time.Now(),
	}

	log := s.logger.With("sync_run_id", res.RunID.String())
	log.Info("starting catalog sync", "listing_url", res.ListingURL, "fetch_details", s.opts.FetchDetails)

	items, err := s.source.ScrapeListing(ctx)
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("failed to scrape listing: %w", err))
	}

	res.ItemsFound = len(items)
	res.Products, res.ItemsSkipped = s.buildProducts(items, res.RunID.String())
	if res.ItemsSkipped > 0 {
		log.Warn("skipped listing items", "count", res.ItemsSkipped)
	}

	if s.opts.FetchDetails {
		if err := s.fetchDetails(ctx, res); err != nil {
			return s.fail(ctx, res, err)
		}
	}

	res.Status = database.SyncCompleted
	if res.DetailErrors > 0 {
		res.Status = database.SyncPartial
	}

	if s.store == nil {
		res.FinishedAt = time.Now()
		log.Info("dry run finished", "products", len(res.Products))
		return res, nil
	}

	res.ItemsStored, err = s.store.UpsertCatalogProducts(ctx, res.Products)
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("failed to store catalog: %w", err))
	}

	res.FinishedAt = time.Now()
	if err := s.store.InsertSyncRun(ctx, s.syncRun(res, "")); err != nil {
		return res, fmt.Errorf("failed to record sync run: %w", err)
	}

	if s.publisher != nil {
		res.StreamID, err = s.publisher.PublishCatalogSynced(ctx, s.payload(res))
		if err != nil {
			return res, fmt.Errorf("failed to publish catalog event: %w", err)
		}
	}

	log.Info("catalog sync finished",
		"status", res.Status,
		"found", res.ItemsFound,
		"stored", res.ItemsStored,
		"skipped", res.ItemsSkipped,
		"details", res.DetailsFetched,
		"detail_errors", res.DetailErrors,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)

	return res, nil
}

// buildProducts keys items by slug. Items without a slug and repeated slugs
// are skipped; the first card for a slug wins.
func (s *Syncer) buildProducts(items []models.ListingItem, runID string) ([]*models.CatalogProduct, int) {
	products := make([]*models.CatalogProduct, 0, len(items))
	seen := make(map[string]bool, len(items))
	skipped := 0

	for _, item := range items {
		if item.Slug == "" || seen[item.Slug] {
			skipped++
			continue
		}
		seen[item.Slug] = true

		p := models.NewCatalogProduct(item, runID)
		if u, err := scraper.DetailURL(s.source.ListingURL(), item.Slug); err == nil {
			p.DetailURL = u
		}
		products = append(products, p)
	}

	return products, skipped
}

func (s *Syncer) fetchDetails(ctx context.Context, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	var mu sync.Mutex
	feedback, _ := s.limiter.(ratelimit.Feedback)

	for _, p := range res.Products {
		if p.DetailURL == "" {
			continue
		}

		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			detail, err := s.source.ScrapeDetail(gctx, p.DetailURL)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.DetailErrors++
				if feedback != nil {
					feedback.RecordError()
				}
				s.logger.Warn("detail scrape failed", "slug", p.Slug, "url", p.DetailURL, "error", err)
				return nil
			}

			p.Detail = detail
			p.LastUpdated = time.Now()
			res.DetailsFetched++
			if feedback != nil {
				feedback.RecordSuccess()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("detail scrape interrupted: %w", err)
	}
	return nil
}

// fail records a failed run when a store is configured and returns err.
func (s *Syncer) fail(ctx context.Context, res *Result, err error) (*Result, error) {
	res.Status = database.SyncFailed
	res.FinishedAt = time.Now()

	s.logger.Error("catalog sync failed", "sync_run_id", res.RunID.String(), "error", err)

	if s.store == nil || errors.Is(err, context.Canceled) {
		return res, err
	}

	if recErr := s.store.InsertSyncRun(context.WithoutCancel(ctx), s.syncRun(res, err.Error())); recErr != nil {
		s.logger.Error("failed to record failed sync run", "error", recErr)
	}
	return res, err
}

func (s *Syncer) syncRun(res *Result, errMsg string) *database.SyncRun {
	return &database.SyncRun{
		ID:             res.RunID,
		ListingURL:     res.ListingURL,
		Status:         res.Status,
		ItemsFound:     res.ItemsFound,
		ItemsStored:    res.ItemsStored,
		ItemsSkipped:   res.ItemsSkipped,
		DetailsFetched: res.DetailsFetched,
		DetailErrors:   res.DetailErrors,
		ErrorMessage:   errMsg,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
	}
}

func (s *Syncer) payload(res *Result) *events.CatalogSyncedPayload {
	seen := make(map[string]bool)
	var categories []string
	for _, p := range res.Products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}

	return &events.CatalogSyncedPayload{
		SyncRunID:      res.RunID.String(),
		ListingURL:     res.ListingURL,
		Status:         string(res.Status),
		ItemsFound:     res.ItemsFound,
		ItemsStored:    res.ItemsStored,
		ItemsSkipped:   res.ItemsSkipped,
		DetailsFetched: res.DetailsFetched,
		DetailErrors:   res.DetailErrors,
		Categories:     categories,
		Timestamp:      res.FinishedAt.UTC(),
	}
}
