// Package status drives administrator status changes on single issues:
// the busy flag, the per-issue inline error and the follow-up on the
// issue list.
package status

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/civicdesk/internal/client/client"
	"github.com/dmitrijs2005/civicdesk/internal/client/metrics"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

// ErrUpdateInProgress rejects a change on an issue that is already updating.
var ErrUpdateInProgress = errors.New("status update already in progress")

// Updater sends a status change to the backend.
type Updater interface {
	UpdateIssueStatus(ctx context.Context, id string, status string) (models.Issue, error)
}

// List is the issue collection the controller keeps in sync.
type List interface {
	Get(id string) (models.Issue, bool)
	ApplyStatus(id string, status models.Status) bool
	Refresh(ctx context.Context) error
}

// Controller is safe for concurrent use. Changes on different issues run
// independently.
type Controller struct {
	updater Updater
	list    List
	logger  logging.Logger
	metrics metrics.Recorder
	onAuth  func(ctx context.Context) error

	mu       sync.Mutex
	updating map[string]bool
	errs     map[string]string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger for status changes.
func WithLogger(l logging.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithMetrics sets the recorder that counts status changes by outcome.
func WithMetrics(r metrics.Recorder) Option { return func(c *Controller) { c.metrics = r } }

// OnAuthFailure registers the hook run when the backend rejects the
// session, typically the session store's Logout.
func OnAuthFailure(fn func(ctx context.Context) error) Option {
	return func(c *Controller) { c.onAuth = fn }
}

// NewController returns a controller with no change in flight.
func NewController(updater Updater, list List, opts ...Option) *Controller {
	c := &Controller{
		updater:  updater,
		list:     list,
		logger:   logging.Nop(),
		metrics:  metrics.Nop{},
		updating: map[string]bool{},
		errs:     map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Change sets issue id to raw. Any status may follow any other; only the
// value is validated. Nothing is shown optimistically: on success the
// list is patched in place, on failure the inline error is set and the
// list is refetched.
//
// Selecting the status the issue already holds does nothing.
func (c *Controller) Change(ctx context.Context, id, raw string) error {
	st, err := models.ParseStatus(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.updating[id] {
		c.mu.Unlock()
		return fmt.Errorf("issue %s: %w", id, ErrUpdateInProgress)
	}
	if cur, ok := c.list.Get(id); ok && cur.Status == st {
		c.mu.Unlock()
		return nil
	}
	c.updating[id] = true
	delete(c.errs, id)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.updating, id)
		c.mu.Unlock()
	}()

	log := c.logger.With("issue_id", id, "status", st)

	_, err = c.updater.UpdateIssueStatus(ctx, id, string(st))
	if err == nil {
		c.list.ApplyStatus(id, st)
		c.metrics.RecordStatusChange(string(st), true)
		log.Info(ctx, "issue status updated")
		return nil
	}

	c.metrics.RecordStatusChange(string(st), false)
	log.Warn(ctx, "issue status update failed", "error", err)

	c.mu.Lock()
	c.errs[id] = "Failed to update status: " + err.Error()
	c.mu.Unlock()

	if client.IsAuthFailure(err) && c.onAuth != nil {
		if authErr := c.onAuth(ctx); authErr != nil {
			log.Error(ctx, "auth failure hook failed", "error", authErr)
		}
		return err
	}

	if rerr := c.list.Refresh(ctx); rerr != nil {
		log.Warn(ctx, "refetch after failed update failed", "error", rerr)
	}
	return err
}

// Updating reports whether a change on id is in flight.
func (c *Controller) Updating(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updating[id]
}

// Error returns the inline error for id, "" when there is none.
func (c *Controller) Error(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[id]
}

// DismissError clears the inline error for id.
func (c *Controller) DismissError(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errs, id)
}
