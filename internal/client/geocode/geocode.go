// Package geocode turns map coordinates into a readable address.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

// DefaultEndpoint is the public Nominatim reverse endpoint.
const DefaultEndpoint = "https://nominatim.openstreetmap.org/reverse"

const userAgent = "civicdesk/1.0"

// FormatCoordinates renders a coordinate pair the way a location is shown
// when no address is known.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

// Client queries a Nominatim-compatible reverse geocoder.
type Client struct {
	endpoint string
	http     *http.Client
	logger   logging.Logger
	limiter  *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLogger sets the logger for failed lookups.
func WithLogger(l logging.Logger) Option { return func(c *Client) { c.logger = l } }

// WithRateLimit caps lookups per second. The public Nominatim service
// allows one.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient returns a client for endpoint, or DefaultEndpoint when empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// Reverse returns the display name for lat/lng. It never fails: any
// problem yields FormatCoordinates(lat, lng).
func (c *Client) Reverse(ctx context.Context, lat, lng float64) string {
	name, err := c.lookup(ctx, lat, lng)
	if err != nil {
		c.logger.Warn(ctx, "reverse geocoding failed", "lat", lat, "lng", lng, "error", err)
		return FormatCoordinates(lat, lng)
	}
	if name == "" {
		return FormatCoordinates(lat, lng)
	}
	return name
}

func (c *Client) lookup(ctx context.Context, lat, lng float64) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("addressdetails", "1")

	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+sep+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode geocoder response: %w", err)
	}
	return strings.TrimSpace(out.DisplayName), nil
}
