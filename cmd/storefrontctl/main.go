package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"

	"github.com/samisuko/storefront/internal/catalogsync"
	"github.com/samisuko/storefront/internal/config"
	"github.com/samisuko/storefront/internal/database"
	"github.com/samisuko/storefront/internal/events"
	"github.com/samisuko/storefront/internal/fetcher"
	"github.com/samisuko/storefront/internal/logger"
	"github.com/samisuko/storefront/internal/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is loaded with config.Load when nil.
	Config *config.Config

	// Store and Publisher replace the postgres and redis backends of the
	// sync command when set.
	Store     catalogsync.Store
	Publisher catalogsync.Publisher

	closers []func()
}

func NewMain() *Main {
	return &Main{}
}

// Close releases the backends opened by Run.
func (m *Main) Close() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
	m.closers = nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("storefrontctl"),
		kong.Description("Scrape the storefront catalog from the command line."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'storefrontctl --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := m.Config
	if cfg == nil {
		if cfg, err = config.Load(); err != nil {
			return err
		}
	}

	log, err := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	f := fetcher.New(fetcher.Options{
		UserAgent: cfg.Scraper.UserAgent,
		Accept:    cfg.Scraper.Accept,
		Timeout:   cfg.Scraper.FetchTimeout,
	}, log)

	deps.Config = cfg
	deps.Logger = log
	deps.Scraper = scraper.NewService(f, cfg.Scraper.ListingURL, nil, log)

	if cmd == "sync" && !cli.Sync.DryRun {
		defer m.Close()
		if err := m.openBackends(ctx, cfg, log); err != nil {
			return err
		}
		deps.Store = m.Store
		deps.Publisher = m.Publisher
	}

	return kongCtx.Run(deps)
}

// openBackends connects to postgres and redis unless the caller injected
// replacements.
func (m *Main) openBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if m.Store == nil || m.Publisher == nil {
		if err := cfg.ValidatePersistence(); err != nil {
			return err
		}
	}

	if m.Store == nil {
		db, err := database.New(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			Database:    cfg.Database.Name,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    cfg.Database.MaxConns,
			MaxConnIdle: 5 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		m.closers = append(m.closers, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		m.Store = db
	}

	if m.Publisher == nil {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		m.closers = append(m.closers, func() { _ = client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		m.Publisher = events.NewPublisher(client, cfg.Redis.Stream, log)
	}

	return nil
}
