package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeCatalogSynced is published after a sync run has been stored.
	EventTypeCatalogSynced EventType = "CATALOG_SYNCED"
)

// RedisClient is the subset of *redis.Client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// CatalogSyncedPayload summarises one sync run.
type CatalogSyncedPayload struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
	SyncRunID      string    `json:"sync_run_id"`
	ListingURL     string    `json:"listing_url"`
	Status         string    `json:"status"`
	ItemsFound     int       `json:"items_found"`
	ItemsStored    int       `json:"items_stored"`
	ItemsSkipped   int       `json:"items_skipped"`
	DetailsFetched int       `json:"details_fetched"`
	DetailErrors   int       `json:"detail_errors"`
	Categories     []string  `json:"categories,omitempty"`
	Source         string    `json:"source"`
}

type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishCatalogSynced appends a CATALOG_SYNCED entry to the stream and
// returns the entry ID redis assigned.
func (p *Publisher) PublishCatalogSynced(ctx context.Context, payload *CatalogSyncedPayload) (string, error) {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeCatalogSynced)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}
	if payload.Source == "" {
		payload.Source = "storefront-sync"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":         string(data),
			"type":         payload.EventType,
			"event_id":     payload.EventID,
			"aggregate_id": payload.SyncRunID,
			"timestamp":    fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"sync_run_id", payload.SyncRunID,
		"stream", p.stream,
		"stream_id", id,
	)

	return id, nil
}
