package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/samisuko/storefront/internal/database"
	"github.com/samisuko/storefront/internal/events"
	"github.com/samisuko/storefront/internal/fetcher"
	"github.com/samisuko/storefront/internal/models"
	"github.com/samisuko/storefront/internal/ratelimit"
)

const listingURL = "https://shop.example.com/shop/"

// MockSource is a mock for Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListingURL() string {
	return listingURL
}

func (m *MockSource) ScrapeListing(ctx context.Context) ([]models.ListingItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListingItem), args.Error(1)
}

func (m *MockSource) ScrapeDetail(ctx context.Context, url string) (*models.ProductDetail, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductDetail), args.Error(1)
}

// MockStore is a mock for Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertCatalogProducts(ctx context.Context, products []*models.CatalogProduct) (int, error) {
	args := m.Called(ctx, products)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) InsertSyncRun(ctx context.Context, run *database.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// MockPublisher is a mock for Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCatalogSynced(ctx context.Context, payload *events.CatalogSyncedPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listing() []models.ListingItem {
	return []models.ListingItem{
		{Name: "Oslo Sofa", Price: 12500000, Category: "Sofa", Image: "/oslo.jpg", Slug: "oslo-sofa"},
		{Name: "Meja Makan Jati", Category: models.UncategorizedCategory, Slug: "meja-makan-jati"},
		{Name: "No Link", Price: 1000, Category: "Sofa"},
		{Name: "Oslo Sofa (duplicate card)", Category: "Sofa", Slug: "oslo-sofa"},
	}
}

func detailFor(title string) *models.ProductDetail {
	d := models.NewProductDetail("")
	d.Title = title
	return d
}

func TestSyncer_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("full run with a failing detail page", func(t *testing.T) {
		source := new(MockSource)
		store := new(MockStore)
		publisher := new(MockPublisher)

		source.On("ScrapeListing", mock.Anything).Return(listing(), nil)
		source.On("ScrapeDetail", mock.Anything, "https://shop.example.com/produk/oslo-sofa/").
			Return(detailFor("Oslo Sofa"), nil)
		source.On("ScrapeDetail", mock.Anything, "https://shop.example.com/produk/meja-makan-jati/").
			Return(nil, &fetcher.FetchError{URL: "https://shop.example.com/produk/meja-makan-jati/", StatusCode: 404})

		store.On("UpsertCatalogProducts", mock.Anything, mock.AnythingOfType("[]*models.CatalogProduct")).Return(2, nil)
		store.On("InsertSyncRun", mock.Anything, mock.MatchedBy(func(run *database.SyncRun) bool {
			return run.Status == database.SyncPartial && run.ItemsFound == 4 && run.ItemsStored == 2 &&
				run.ItemsSkipped == 2 && run.DetailsFetched == 1 && run.DetailErrors == 1
		})).Return(nil)
		publisher.On("PublishCatalogSynced", mock.Anything, mock.MatchedBy(func(p *events.CatalogSyncedPayload) bool {
			return p.Status == "partial" && p.ItemsStored == 2 && p.ListingURL == listingURL &&
				assert.ObjectsAreEqual([]string{"Sofa", models.UncategorizedCategory}, p.Categories)
		})).Return("1718000000000-0", nil)

		syncer := New(source, store, publisher, nil, Options{Concurrency: 2, FetchDetails: true}, testLogger())
		res, err := syncer.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, database.SyncPartial, res.Status)
		assert.Equal(t, "1718000000000-0", res.StreamID)
		require.Len(t, res.Products, 2)

		sofa := res.Products[0]
		assert.Equal(t, "oslo-sofa", sofa.Slug)
		assert.Equal(t, "Oslo Sofa", sofa.Name)
		assert.Equal(t, "https://shop.example.com/produk/oslo-sofa/", sofa.DetailURL)
		require.NotNil(t, sofa.Detail)
		assert.Equal(t, "Oslo Sofa", sofa.Detail.Title)
		assert.Equal(t, res.RunID.String(), sofa.SyncRunID)

		assert.Nil(t, res.Products[1].Detail)

		source.AssertExpectations(t)
		store.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("listing only", func(t *testing.T) {
		source := new(MockSource)
		store := new(MockStore)
		publisher := new(MockPublisher)

		source.On("ScrapeListing", mock.Anything).Return(listing(), nil)
		store.On("UpsertCatalogProducts", mock.Anything, mock.Anything).Return(2, nil)
		store.On("InsertSyncRun", mock.Anything, mock.Anything).Return(nil)
		publisher.On("PublishCatalogSynced", mock.Anything, mock.Anything).Return("1-0", nil)

		res, err := New(source, store, publisher, nil, Options{}, testLogger()).Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, database.SyncCompleted, res.Status)
		assert.Zero(t, res.DetailsFetched)
		source.AssertNotCalled(t, "ScrapeDetail", mock.Anything, mock.Anything)
	})

	t.Run("listing failure records a failed run", func(t *testing.T) {
		source := new(MockSource)
		store := new(MockStore)
		publisher := new(MockPublisher)

		source.On("ScrapeListing", mock.Anything).Return(nil, &fetcher.NetworkError{URL: listingURL, Err: errors.New("connection refused")})
		store.On("InsertSyncRun", mock.Anything, mock.MatchedBy(func(run *database.SyncRun) bool {
			return run.Status == database.SyncFailed && run.ErrorMessage != ""
		})).Return(nil)

		res, err := New(source, store, publisher, nil, Options{FetchDetails: true}, testLogger()).Run(ctx)

		require.Error(t, err)
		var netErr *fetcher.NetworkError
		assert.True(t, errors.As(err, &netErr))
		assert.Equal(t, database.SyncFailed, res.Status)
		store.AssertNotCalled(t, "UpsertCatalogProducts", mock.Anything, mock.Anything)
		publisher.AssertNotCalled(t, "PublishCatalogSynced", mock.Anything, mock.Anything)
	})

	t.Run("dry run without a store", func(t *testing.T) {
		source := new(MockSource)
		source.On("ScrapeListing", mock.Anything).Return(listing(), nil)

		res, err := New(source, nil, nil, nil, Options{}, testLogger()).Run(ctx)

		require.NoError(t, err)
		assert.Len(t, res.Products, 2)
		assert.Zero(t, res.ItemsStored)
		assert.Empty(t, res.StreamID)
	})

	t.Run("storage failure", func(t *testing.T) {
		source := new(MockSource)
		store := new(MockStore)
		publisher := new(MockPublisher)

		source.On("ScrapeListing", mock.Anything).Return(listing(), nil)
		store.On("UpsertCatalogProducts", mock.Anything, mock.Anything).Return(0, errors.New("deadlock detected"))
		store.On("InsertSyncRun", mock.Anything, mock.MatchedBy(func(run *database.SyncRun) bool {
			return run.Status == database.SyncFailed
		})).Return(nil)

		_, err := New(source, store, publisher, nil, Options{}, testLogger()).Run(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "deadlock detected")
		publisher.AssertNotCalled(t, "PublishCatalogSynced", mock.Anything, mock.Anything)
	})

	t.Run("publish failure", func(t *testing.T) {
		source := new(MockSource)
		store := new(MockStore)
		publisher := new(MockPublisher)

		source.On("ScrapeListing", mock.Anything).Return(listing(), nil)
		store.On("UpsertCatalogProducts", mock.Anything, mock.Anything).Return(2, nil)
		store.On("InsertSyncRun", mock.Anything, mock.Anything).Return(nil)
		publisher.On("PublishCatalogSynced", mock.Anything, mock.Anything).Return("", errors.New("NOAUTH"))

		res, err := New(source, store, publisher, nil, Options{}, testLogger()).Run(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "NOAUTH")
		assert.Equal(t, 2, res.ItemsStored)
	})
}

// countingSource tracks how many detail scrapes run at once.
type countingSource struct {
	items    []models.ListingItem
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	calls    []string
}

func (c *countingSource) ListingURL() string { return listingURL }

func (c *countingSource) ScrapeListing(context.Context) ([]models.ListingItem, error) {
	return c.items, nil
}

func (c *countingSource) ScrapeDetail(ctx context.Context, url string) (*models.ProductDetail, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, url)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return detailFor(url), nil
}

func TestSyncer_BoundedConcurrency(t *testing.T) {
	source := &countingSource{}
	for i := 0; i < 8; i++ {
		source.items = append(source.items, models.ListingItem{
			Name: fmt.Sprintf("Kursi %d", i), Category: "Kursi", Slug: fmt.Sprintf("kursi-%d", i),
		})
	}

	res, err := New(source, nil, nil, nil, Options{Concurrency: 3, FetchDetails: true}, testLogger()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 8, res.DetailsFetched)
	assert.Len(t, source.calls, 8)
	assert.LessOrEqual(t, source.peak.Load(), int32(3))
	for _, p := range res.Products {
		assert.NotNil(t, p.Detail, p.Slug)
	}
}

func TestSyncer_RateLimitedAndCancelled(t *testing.T) {
	source := &countingSource{}
	for i := 0; i < 5; i++ {
		source.items = append(source.items, models.ListingItem{
			Name: fmt.Sprintf("Bufet %d", i), Category: "Bufet", Slug: fmt.Sprintf("bufet-%d", i),
		})
	}

	store := new(MockStore)
	store.On("InsertSyncRun", mock.Anything, mock.MatchedBy(func(run *database.SyncRun) bool {
		return run.Status == database.SyncFailed
	})).Return(nil)

	// One request per second: the first detail goes out at once, the rest
	// wait past the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	limiter := ratelimit.New(1)
	_, err := New(source, store, nil, limiter, Options{Concurrency: 5, FetchDetails: true}, testLogger()).Run(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "detail scrape interrupted")
	assert.LessOrEqual(t, len(source.calls), 1)
	store.AssertNotCalled(t, "UpsertCatalogProducts", mock.Anything, mock.Anything)
}
