package main

import (
	"fmt"

	"github.com/samisuko/storefront/internal/catalogsync"
	"github.com/samisuko/storefront/internal/ratelimit"
)

// Run executes the sync command.
func (c *SyncCmd) Run(deps *Dependencies) error {
	cfg := deps.Config.Sync

	concurrency := cfg.Concurrency
	if c.Concurrency > 0 {
		concurrency = c.Concurrency
	}
	rps := cfg.RequestsPerSecond
	if c.RPS > 0 {
		rps = c.RPS
	}

	opts := catalogsync.Options{
		Concurrency:  concurrency,
		FetchDetails: cfg.FetchDetails && !c.NoDetails,
	}

	syncer := catalogsync.New(
		deps.Scraper,
		deps.Store,
		deps.Publisher,
		ratelimit.NewAdaptive(rps, rps/4),
		opts,
		deps.Logger,
	)

	res, err := syncer.Run(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: sync run failed: %v\n", err)
		return err
	}

	mode := "stored"
	if c.DryRun {
		mode = "dry run"
	}

	fmt.Fprintf(deps.Stdout, "sync %s (%s): %s\n", res.RunID, mode, res.Status)
	fmt.Fprintf(deps.Stdout, "  found %d, stored %d, skipped %d\n", res.ItemsFound, res.ItemsStored, res.ItemsSkipped)
	if opts.FetchDetails {
		fmt.Fprintf(deps.Stdout, "  details %d, detail errors %d\n", res.DetailsFetched, res.DetailErrors)
	}
	if res.StreamID != "" {
		fmt.Fprintf(deps.Stdout, "  event %s\n", res.StreamID)
	}

	return nil
}
