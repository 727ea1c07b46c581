package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/civicdesk/internal/client/issues"
	"github.com/dmitrijs2005/civicdesk/internal/client/photos"
	"github.com/dmitrijs2005/civicdesk/internal/flagx"
)

// Config holds the client's runtime settings.
type Config struct {
	APIBaseURL string
	// AssetBaseURL resolves relative image paths; empty means the origin
	// of APIBaseURL.
	AssetBaseURL      string
	RequestTimeout    time.Duration
	PageSize          int
	DatabaseDSN       string
	GeocoderURL       string
	MetricsAddr       string
	LogLevel          string
	RequestsPerSecond float64
	S3                photos.S3Config
}

// LoadDefaults populates c with defaults matching a local backend.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8081/api"
	c.AssetBaseURL = ""
	c.RequestTimeout = 30 * time.Second
	c.PageSize = issues.DefaultPageSize
	c.DatabaseDSN = "civicdesk.db"
	c.GeocoderURL = "https://nominatim.openstreetmap.org/reverse"
	c.MetricsAddr = ""
	c.LogLevel = "info"
	c.RequestsPerSecond = 0
	c.S3 = photos.S3Config{}
}

// LoadConfig builds a Config from defaults, the JSON file and flags found
// in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, flagx.ConfigFile(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("config: api base url is required")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("config: page size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config: request timeout must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("config: requests per second must not be negative")
	}
	return nil
}
