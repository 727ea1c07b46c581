package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/civicdesk/internal/flagx"
)

var flagNames = []string{"a", "t", "p", "d", "g", "m", "l", "r"}

// parseFlags overlays cfg with the flags it owns in args; others, such
// as -c, are left for their own loaders.
func parseFlags(cfg *Config, args []string) error {
	fs := flagx.NewFlagSet("civicdesk")

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "backend API base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.PageSize, "p", cfg.PageSize, "issues per page")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "SQLite DSN for local credentials")
	fs.StringVar(&cfg.GeocoderURL, "g", cfg.GeocoderURL, "reverse geocoder endpoint")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.Float64Var(&cfg.RequestsPerSecond, "r", cfg.RequestsPerSecond, "outbound requests per second")

	if err := fs.Parse(flagx.FilterArgs(args, flagNames...)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	// -t has whole-second granularity; only apply it when given so a
	// sub-second JSON timeout survives.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
