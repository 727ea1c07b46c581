// Package config loads runtime settings for the civicdesk client.
//
// Sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional JSON file named by -c or -config.
//  3. Command-line flags.
//
// Flags
//
//	-a string   backend API base URL
//	-t int      request timeout (seconds)
//	-p int      issues per page
//	-d string   SQLite DSN for local credential storage
//	-g string   reverse geocoder endpoint
//	-m string   listen address for /metrics (empty disables)
//	-l string   log level: debug, info, warn, error
//	-r float    outbound requests per second (0 disables pacing)
//
// # JSON schema
//
// Durations use timex.Duration, so "30s" and integer nanoseconds both work.
// Missing keys keep the value from the defaults:
//
//	{
//	  "api_base_url": "http://localhost:8081/api",
//	  "request_timeout": "30s",
//	  "page_size": 4,
//	  "database_dsn": "civicdesk.db",
//	  "geocoder_url": "https://nominatim.openstreetmap.org/reverse",
//	  "metrics_addr": ":9102",
//	  "log_level": "info",
//	  "requests_per_second": 5,
//	  "s3": {"region": "us-east-1", "endpoint": "http://localhost:9000"}
//	}
//
// S3 credentials are only read from the JSON file, never from flags.
package config
