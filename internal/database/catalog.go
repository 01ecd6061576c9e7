package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samisuko/storefront/internal/models"
)

type SyncStatus string

const (
	SyncCompleted SyncStatus = "completed"
	SyncPartial   SyncStatus = "partial"
	SyncFailed    SyncStatus = "failed"
)

// SyncRun is one execution of the catalog sync job.
type SyncRun struct {
	ID             uuid.UUID  `db:"id"`
	ListingURL     string     `db:"listing_url"`
	Status         SyncStatus `db:"status"`
	ItemsFound     int        `db:"items_found"`
	ItemsStored    int        `db:"items_stored"`
	ItemsSkipped   int        `db:"items_skipped"`
	DetailsFetched int        `db:"details_fetched"`
	DetailErrors   int        `db:"detail_errors"`
	ErrorMessage   string     `db:"error_message"`
	StartedAt      time.Time  `db:"started_at"`
	FinishedAt     time.Time  `db:"finished_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id              UUID PRIMARY KEY,
	listing_url     TEXT NOT NULL,
	status          TEXT NOT NULL,
	items_found     INTEGER NOT NULL DEFAULT 0,
	items_stored    INTEGER NOT NULL DEFAULT 0,
	items_skipped   INTEGER NOT NULL DEFAULT 0,
	details_fetched INTEGER NOT NULL DEFAULT 0,
	detail_errors   INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_products (
	slug         TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	price        BIGINT NOT NULL DEFAULT 0,
	category     TEXT NOT NULL,
	image        TEXT NOT NULL DEFAULT '',
	detail_url   TEXT NOT NULL DEFAULT '',
	detail       JSONB,
	sync_run_id  TEXT NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_catalog_products_category ON catalog_products (category);
`

// EnsureSchema creates the catalog tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const upsertCatalogProduct = `
	INSERT INTO catalog_products (slug, name, price, category, image, detail_url, detail, sync_run_id, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (slug) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		category = EXCLUDED.category,
		image = EXCLUDED.image,
		detail_url = EXCLUDED.detail_url,
		detail = COALESCE(EXCLUDED.detail, catalog_products.detail),
		sync_run_id = EXCLUDED.sync_run_id,
		scraped_at = EXCLUDED.scraped_at,
		last_updated = CURRENT_TIMESTAMP`

// UpsertCatalogProducts stores products keyed by slug in one transaction.
// A product without detail keeps the detail stored by an earlier run.
func (db *DB) UpsertCatalogProducts(ctx context.Context, products []*models.CatalogProduct) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		if problems := p.Validate(); len(problems) > 0 {
			return 0, fmt.Errorf("invalid catalog product %q: %v", p.Slug, problems)
		}

		detail, err := encodeDetail(p.Detail)
		if err != nil {
			return 0, fmt.Errorf("failed to encode detail for %q: %w", p.Slug, err)
		}

		batch.Queue(upsertCatalogProduct,
			p.Slug, p.Name, p.Price, p.Category, p.Image, p.DetailURL, detail, p.SyncRunID, p.ScrapedAt,
		)
	}

	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to upsert catalog product %q: %w", products[i].Slug, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, err
	}

	return len(products), nil
}

// ListCatalogProducts returns the stored catalog ordered by category then name.
func (db *DB) ListCatalogProducts(ctx context.Context) ([]*models.CatalogProduct, error) {
	query := `
		SELECT slug, name, price, category, image, detail_url, detail, sync_run_id, scraped_at, last_updated
		FROM catalog_products
		ORDER BY category, name`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog products: %w", err)
	}
	defer rows.Close()

	var products []*models.CatalogProduct
	for rows.Next() {
		var p models.CatalogProduct
		var detail []byte

		if err := rows.Scan(
			&p.Slug, &p.Name, &p.Price, &p.Category, &p.Image, &p.DetailURL,
			&detail, &p.SyncRunID, &p.ScrapedAt, &p.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan catalog product: %w", err)
		}

		p.Detail, err = decodeDetail(detail)
		if err != nil {
			return nil, fmt.Errorf("failed to decode detail for %q: %w", p.Slug, err)
		}

		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog products: %w", err)
	}

	return products, nil
}

// InsertSyncRun records a finished sync run, assigning an ID if it has none.
func (db *DB) InsertSyncRun(ctx context.Context, run *SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	query := `
		INSERT INTO sync_runs (
			id, listing_url, status, items_found, items_stored, items_skipped,
			details_fetched, detail_errors, error_message, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := db.pool.Exec(ctx, query,
		run.ID, run.ListingURL, string(run.Status), run.ItemsFound, run.ItemsStored, run.ItemsSkipped,
		run.DetailsFetched, run.DetailErrors, run.ErrorMessage, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// encodeDetail returns nil for a missing detail so the column stays NULL.
func encodeDetail(d *models.ProductDetail) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func decodeDetail(raw []byte) (*models.ProductDetail, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d models.ProductDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
