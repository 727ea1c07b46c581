package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/civicdesk/internal/client/metrics"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// HTTPClient implements Client over the backend's REST API.
type HTTPClient struct {
	baseURL   *url.URL
	assetBase string
	http      *http.Client
	tokens    TokenSource
	logger    logging.Logger
	metrics   metrics.Recorder
	limiter   *rate.Limiter
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *HTTPClient) { c.metrics = r }
}

// WithRateLimit paces outbound requests to rps per second with a burst of
// one. rps <= 0 disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithAssetBaseURL sets the origin used to resolve relative image paths.
func WithAssetBaseURL(base string) Option {
	return func(c *HTTPClient) { c.assetBase = strings.TrimRight(base, "/") }
}

// NewHTTPClient builds a client for the API rooted at baseURL
// (e.g. http://localhost:8081/api). Authenticated calls read their token
// from tokens at call time.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse api url: %q is not absolute", baseURL)
	}

	c := &HTTPClient{
		baseURL:   u,
		assetBase: u.Scheme + "://" + u.Host,
		http:      http.DefaultClient,
		tokens:    tokens,
		logger:    logging.Nop(),
		metrics:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
	// resource names the looked-up entity for 404 messages.
	resource string
}

// token fetches the bearer token or fails with ErrAuthRequired.
func (c *HTTPClient) token(op string) (string, error) {
	if c.tokens == nil {
		return "", fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}
	t := c.tokens.Token()
	if t == "" {
		return "", fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}
	return t, nil
}

// do runs one request and decodes a success body into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, r request, out any) error {
	var token string
	if r.auth {
		t, err := c.token(r.op)
		if err != nil {
			return err
		}
		token = t
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", r.op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL.String()+r.path, r.body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", r.op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With("op", r.op, "request_id", requestID)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRequest(r.op, 0, time.Since(start))
		log.Error(ctx, "backend call failed", "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", r.op, ctxErr)
		}
		return fmt.Errorf("%s: %w: %w", r.op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordRequest(r.op, resp.StatusCode, time.Since(start))
	if err != nil {
		log.Error(ctx, "reading response body failed", "http_status", resp.StatusCode, "error", err)
		return fmt.Errorf("%s: read body: %w", r.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := newStatusError(r.op, resp.StatusCode, body, r.resource)
		log.Warn(ctx, "backend returned error status", "http_status", resp.StatusCode, "message", se.Message)
		return se
	}
	log.Debug(ctx, "backend call ok", "http_status", resp.StatusCode, "duration", time.Since(start))

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// Register creates an account on the backend. No bearer token is sent.
func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) error {
	body, err := jsonBody(req)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		op: "register", method: http.MethodPost, path: "/auth/register",
		body: body, contentType: "application/json",
	}, nil)
}

// Login exchanges credentials for a token.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (models.AuthResult, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return models.AuthResult{}, err
	}
	var res models.AuthResult
	if err := c.do(ctx, request{
		op: "login", method: http.MethodPost, path: "/auth/login",
		body: body, contentType: "application/json",
	}, &res); err != nil {
		return models.AuthResult{}, err
	}
	if res.Username == "" {
		res.Username = username
	}
	return res, nil
}

type idRef struct {
	ID string `json:"id"`
}

type createIssueBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ReportedBy  idRef    `json:"reportedBy"`
	Category    idRef    `json:"category"`
	Status      string   `json:"status"`
}

// CreateIssue submits a report without a photo.
func (c *HTTPClient) CreateIssue(ctx context.Context, issue models.NewIssue) (models.Issue, error) {
	const op = "create_issue"
	if _, err := c.token(op); err != nil {
		return models.Issue{}, err
	}
	if err := ValidateNewIssue(issue, false); err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w", op, err)
	}

	body, err := jsonBody(createIssueBody{
		Title:       issue.Title,
		Description: issue.Description,
		Location:    issue.Location,
		Latitude:    issue.Latitude,
		Longitude:   issue.Longitude,
		ReportedBy:  idRef{ID: issue.ReporterID},
		Category:    idRef{ID: issue.CategoryID},
		Status:      string(models.StatusPending),
	})
	if err != nil {
		return models.Issue{}, err
	}

	var p issuePayload
	if err := c.do(ctx, request{
		op: op, method: http.MethodPost, path: "/issues",
		body: body, contentType: "application/json", auth: true,
	}, &p); err != nil {
		return models.Issue{}, err
	}
	return p.toIssue(c.assetBase), nil
}

// CreateIssueWithImage submits a report as multipart form data. The photo
// is mandatory.
func (c *HTTPClient) CreateIssueWithImage(ctx context.Context, issue models.NewIssue) (models.Issue, error) {
	const op = "create_issue_with_image"
	if _, err := c.token(op); err != nil {
		return models.Issue{}, err
	}
	if err := ValidateNewIssue(issue, true); err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w", op, err)
	}

	body, contentType, err := multipartIssue(issue)
	if err != nil {
		return models.Issue{}, fmt.Errorf("%s: encode form: %w", op, err)
	}

	var p issuePayload
	if err := c.do(ctx, request{
		op: op, method: http.MethodPost, path: "/issues/with-image",
		body: body, contentType: contentType, auth: true,
	}, &p); err != nil {
		return models.Issue{}, err
	}
	return p.toIssue(c.assetBase), nil
}

// ListAllIssues returns every issue, in backend order.
func (c *HTTPClient) ListAllIssues(ctx context.Context) ([]models.Issue, error) {
	return c.list(ctx, request{op: "list_issues", method: http.MethodGet, path: "/issues", auth: true})
}

// ListIssuesByStatus returns issues with the given status. status is
// validated case-insensitively before any transport.
func (c *HTTPClient) ListIssuesByStatus(ctx context.Context, status string) ([]models.Issue, error) {
	const op = "list_issues_by_status"
	if _, err := c.token(op); err != nil {
		return nil, err
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}
	return c.list(ctx, request{op: op, method: http.MethodGet, path: "/issues/status/" + string(st), auth: true})
}

// ListIssuesByUser returns the issues reported by a user id or username.
func (c *HTTPClient) ListIssuesByUser(ctx context.Context, user string) ([]models.Issue, error) {
	const op = "list_issues_by_user"
	if strings.TrimSpace(user) == "" {
		if _, err := c.token(op); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w: user is required", op, ErrValidation)
	}
	return c.list(ctx, request{
		op: op, method: http.MethodGet, path: "/issues/user/" + url.PathEscape(user), auth: true,
		resource: "issues for user " + user,
	})
}

func (c *HTTPClient) list(ctx context.Context, r request) ([]models.Issue, error) {
	var payloads []issuePayload
	if err := c.do(ctx, r, &payloads); err != nil {
		return nil, err
	}
	out := make([]models.Issue, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.toIssue(c.assetBase))
	}
	return out, nil
}

// GetIssue fetches one issue.
func (c *HTTPClient) GetIssue(ctx context.Context, id string) (models.Issue, error) {
	var p issuePayload
	if err := c.do(ctx, request{
		op: "get_issue", method: http.MethodGet, path: "/issues/" + url.PathEscape(id), auth: true,
		resource: "issue with ID " + id,
	}, &p); err != nil {
		return models.Issue{}, err
	}
	return p.toIssue(c.assetBase), nil
}

// UpdateIssueStatus sets the status of issue id. The status is validated
// and sent upper-cased. When the backend answers without a body the
// returned issue carries only the id and the new status.
func (c *HTTPClient) UpdateIssueStatus(ctx context.Context, id string, status string) (models.Issue, error) {
	const op = "update_issue_status"
	if _, err := c.token(op); err != nil {
		return models.Issue{}, err
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}

	body, err := jsonBody(map[string]string{"status": string(st)})
	if err != nil {
		return models.Issue{}, err
	}

	var p issuePayload
	if err := c.do(ctx, request{
		op: op, method: http.MethodPut, path: "/issues/" + url.PathEscape(id) + "/status",
		body: body, contentType: "application/json", auth: true,
		resource: "issue with ID " + id,
	}, &p); err != nil {
		return models.Issue{}, err
	}

	issue := p.toIssue(c.assetBase)
	if issue.ID == "" {
		issue.ID = id
	}
	if _, ok := models.LookupStatus(p.Status); !ok {
		issue.Status = st
	}
	return issue, nil
}

// IsAuthFailure reports whether err means the session must log in again.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrUnauthorized)
}
