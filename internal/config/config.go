package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "STOREFRONT"

// DefaultListingURL is the upstream WooCommerce shop page.
const DefaultListingURL = "https://samisukofurnicraftjepara.com/shop/"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ScraperConfig struct {
	ListingURL string `mapstructure:"listing_url"`
	UserAgent  string `mapstructure:"user_agent"`
	Accept     string `mapstructure:"accept"`
	// Zero keeps the HTTP client without its own deadline.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

type SyncConfig struct {
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	FetchDetails      bool    `mapstructure:"fetch_details"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env (if present), config.yaml (if present), STOREFRONT_*
// environment variables and defaults, in increasing order of precedence
// for the last three.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storefront/")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("scraper.listing_url", DefaultListingURL)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; scraping-bot/1.0)")
	v.SetDefault("scraper.accept", "text/html,application/xhtml+xml")
	v.SetDefault("scraper.fetch_timeout", "0s")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "storefront:catalog")

	v.SetDefault("sync.concurrency", 2)
	v.SetDefault("sync.requests_per_second", 1.0)
	v.SetDefault("sync.fetch_details", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %q", c.Server.Port)
	}

	if strings.TrimSpace(c.Scraper.ListingURL) == "" {
		return fmt.Errorf("scraper listing_url is required (set %s_SCRAPER_LISTING_URL)", envPrefix)
	}
	u, err := url.Parse(c.Scraper.ListingURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scraper listing_url must be an absolute URL, got %q", c.Scraper.ListingURL)
	}

	if strings.TrimSpace(c.Scraper.UserAgent) == "" {
		return fmt.Errorf("scraper user_agent must not be empty")
	}

	if c.Scraper.FetchTimeout < 0 {
		return fmt.Errorf("scraper fetch_timeout must not be negative")
	}

	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync concurrency must be at least 1")
	}

	if c.Sync.RequestsPerSecond <= 0 {
		return fmt.Errorf("sync requests_per_second must be positive")
	}

	return nil
}

// ValidatePersistence checks the settings the sync command needs to store
// and announce a snapshot.
func (c *Config) ValidatePersistence() error {
	if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
		return fmt.Errorf("database host, name and user are required for sync")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.Redis.Addr == "" || c.Redis.Stream == "" {
		return fmt.Errorf("redis addr and stream are required for sync")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
