package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/civicdesk/internal/timex"
)

type jsonS3 struct {
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// jsonConfig mirrors Config for unmarshalling. Pointers tell a missing
// key apart from a zero value.
type jsonConfig struct {
	APIBaseURL        *string         `json:"api_base_url"`
	AssetBaseURL      *string         `json:"asset_base_url"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	PageSize          *int            `json:"page_size"`
	DatabaseDSN       *string         `json:"database_dsn"`
	GeocoderURL       *string         `json:"geocoder_url"`
	MetricsAddr       *string         `json:"metrics_addr"`
	LogLevel          *string         `json:"log_level"`
	RequestsPerSecond *float64        `json:"requests_per_second"`
	S3                *jsonS3         `json:"s3"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJSON overlays cfg with the file at path. An empty path is a no-op.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf(&cfg.APIBaseURL, jc.APIBaseURL)
	setIf(&cfg.AssetBaseURL, jc.AssetBaseURL)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	setIf(&cfg.PageSize, jc.PageSize)
	setIf(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setIf(&cfg.GeocoderURL, jc.GeocoderURL)
	setIf(&cfg.MetricsAddr, jc.MetricsAddr)
	setIf(&cfg.LogLevel, jc.LogLevel)
	setIf(&cfg.RequestsPerSecond, jc.RequestsPerSecond)
	if jc.S3 != nil {
		cfg.S3.Region = jc.S3.Region
		cfg.S3.Endpoint = jc.S3.Endpoint
		cfg.S3.AccessKey = jc.S3.AccessKey
		cfg.S3.SecretKey = jc.S3.SecretKey
	}
	return nil
}
