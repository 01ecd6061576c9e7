package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/samisuko/storefront/internal/catalogsync"
	"github.com/samisuko/storefront/internal/config"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Config    *config.Config
	Logger    *slog.Logger
	Scraper   catalogsync.Source
	Store     catalogsync.Store
	Publisher catalogsync.Publisher
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Listing ListingCmd `cmd:"" help:"Scrape the shop listing and print it as JSON"`
	Detail  DetailCmd  `cmd:"" help:"Scrape one product page and print it as JSON"`
	Sync    SyncCmd    `cmd:"" help:"Snapshot the catalog into postgres and announce it on redis"`
}

// ListingCmd is the "listing" subcommand.
type ListingCmd struct {
	Pretty bool `help:"Indent the JSON output"`
}

// DetailCmd is the "detail" subcommand.
type DetailCmd struct {
	URL    string `required:"" help:"Product page URL"`
	Pretty bool   `help:"Indent the JSON output"`
}

// SyncCmd is the "sync" subcommand.
type SyncCmd struct {
	DryRun      bool    `name:"dry-run" help:"Scrape and report without storing or publishing"`
	NoDetails   bool    `name:"no-details" help:"Store listing data only"`
	Concurrency int     `short:"c" help:"Concurrent detail scrapes (default from config)"`
	RPS         float64 `name:"rps" help:"Detail requests per second (default from config)"`
}
