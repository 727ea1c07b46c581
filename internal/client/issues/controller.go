// Package issues owns the dashboard-visible issue set: fetch, sort, filter,
// paginate, and local status patches.
package issues

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/civicdesk/internal/client/metrics"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

// DefaultPageSize is the number of issues revealed per page.
const DefaultPageSize = 4

// ErrStaleResponse is returned to a fetch whose result was superseded by
// a newer fetch. The view is left untouched.
var ErrStaleResponse = errors.New("stale response discarded")

// Filter selects which issues a fetch asks for.
type Filter string

// FilterAll fetches every issue regardless of status.
const FilterAll Filter = "ALL"

// ParseFilter accepts "ALL" (or empty) and the three statuses,
// case-insensitively.
func ParseFilter(s string) (Filter, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.EqualFold(trimmed, string(FilterAll)) {
		return FilterAll, nil
	}
	st, err := models.ParseStatus(trimmed)
	if err != nil {
		return "", err
	}
	return Filter(st), nil
}

// Lister is the part of the gateway the controller fetches through.
type Lister interface {
	ListAllIssues(ctx context.Context) ([]models.Issue, error)
	ListIssuesByStatus(ctx context.Context, status string) ([]models.Issue, error)
}

// ListController holds one view's issue collection. It is safe for
// concurrent use; fetches do not hold the lock while in flight.
type ListController struct {
	lister   Lister
	pageSize int
	owned    func([]models.Issue) []models.Issue
	logger   logging.Logger
	metrics  metrics.Recorder

	mu     sync.Mutex
	filter Filter
	all    []models.Issue
	cursor int
	err    error

	// gen is bumped by every fetch; only the latest may publish.
	gen uint64
	// overlay collects patches made while the latest fetch is in flight.
	// nil when no fetch is outstanding.
	overlay map[string]models.Status
}

// Option customizes a ListController.
type Option func(*ListController)

// WithPageSize sets the page size. Values below 1 keep the default.
func WithPageSize(n int) Option {
	return func(c *ListController) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger for fetch results and failures.
func WithLogger(l logging.Logger) Option { return func(c *ListController) { c.logger = l } }

// WithMetrics sets the recorder that counts discarded stale responses.
func WithMetrics(r metrics.Recorder) Option { return func(c *ListController) { c.metrics = r } }

// WithOwnership restricts every fetched set through keep before sorting.
func WithOwnership(keep func([]models.Issue) []models.Issue) Option {
	return func(c *ListController) { c.owned = keep }
}

// NewListController returns an empty controller showing FilterAll.
func NewListController(lister Lister, opts ...Option) *ListController {
	c := &ListController{
		lister:   lister,
		pageSize: DefaultPageSize,
		logger:   logging.Nop(),
		metrics:  metrics.Nop{},
		filter:   FilterAll,
		cursor:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the set for the active filter.
func (c *ListController) Load(ctx context.Context) error {
	c.mu.Lock()
	f := c.filter
	c.mu.Unlock()
	return c.fetch(ctx, f)
}

// Refresh is the retry affordance after a failed load; it refetches the
// active filter.
func (c *ListController) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// SetFilter validates raw, makes it the active filter and refetches.
func (c *ListController) SetFilter(ctx context.Context, raw string) error {
	f, err := ParseFilter(raw)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	return c.fetch(ctx, f)
}

func (c *ListController) fetch(ctx context.Context, f Filter) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.overlay = map[string]models.Status{}
	c.mu.Unlock()

	var (
		fetched []models.Issue
		err     error
	)
	if f == FilterAll {
		fetched, err = c.lister.ListAllIssues(ctx)
	} else {
		fetched, err = c.lister.ListIssuesByStatus(ctx, string(f))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.metrics.RecordStaleResponse()
		c.logger.Debug(ctx, "discarding stale issue list", "generation", gen, "latest", c.gen)
		return ErrStaleResponse
	}
	overlay := c.overlay
	c.overlay = nil

	if err != nil {
		c.err = fmt.Errorf("load issues: %w", err)
		c.logger.Warn(ctx, "loading issues failed", "filter", f, "error", err)
		return c.err
	}

	if c.owned != nil {
		fetched = c.owned(fetched)
	}
	sortNewestFirst(fetched)
	for i := range fetched {
		if st, ok := overlay[fetched[i].ID]; ok {
			fetched[i].Status = st
		}
	}

	c.all = fetched
	c.cursor = 1
	c.err = nil
	c.logger.Debug(ctx, "issues loaded", "filter", f, "count", len(fetched))
	return nil
}

// sortNewestFirst orders by CreatedAt descending. Equal timestamps keep
// their fetch order; zero timestamps go last.
func sortNewestFirst(issues []models.Issue) {
	slices.SortStableFunc(issues, func(a, b models.Issue) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// Visible returns the revealed prefix of the sorted set.
func (c *ListController) Visible() []models.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.all[:c.visibleLen()])
}

func (c *ListController) visibleLen() int {
	return min(c.cursor*c.pageSize, len(c.all))
}

// LoadMore reveals one more page, if any remain, and returns the new
// visible slice.
func (c *ListController) LoadMore() []models.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor*c.pageSize < len(c.all) {
		c.cursor++
	}
	return slices.Clone(c.all[:c.visibleLen()])
}

// HasMore reports whether LoadMore would reveal anything.
func (c *ListController) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor*c.pageSize < len(c.all)
}

// All returns the full sorted set.
func (c *ListController) All() []models.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.all)
}

// Get looks an issue up by id in the current set.
func (c *ListController) Get(id string) (models.Issue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, is := range c.all {
		if is.ID == id {
			return is, true
		}
	}
	return models.Issue{}, false
}

func (c *ListController) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Err returns the error of the last completed load, nil after a success.
func (c *ListController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ApplyStatus patches the status of issue id in place. Order is kept, as
// it depends on CreatedAt only. It reports whether a record matched.
// A patch made while a fetch is in flight is replayed onto that fetch's
// result.
func (c *ListController) ApplyStatus(id string, status models.Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay != nil {
		c.overlay[id] = status
	}
	matched := false
	for i := range c.all {
		if c.all[i].ID == id {
			c.all[i].Status = status
			matched = true
		}
	}
	return matched
}

// Stats counts the current set per status.
type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Resolved   int
}

// Stats summarizes the full set. It only reads local state.
func (c *ListController) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Total: len(c.all)}
	for _, is := range c.all {
		switch is.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusResolved:
			s.Resolved++
		}
	}
	return s
}
