package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/civicdesk/internal/client/client"
	"github.com/dmitrijs2005/civicdesk/internal/client/config"
	"github.com/dmitrijs2005/civicdesk/internal/client/geocode"
	"github.com/dmitrijs2005/civicdesk/internal/client/issues"
	"github.com/dmitrijs2005/civicdesk/internal/client/metrics"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/client/photos"
	"github.com/dmitrijs2005/civicdesk/internal/client/session"
	"github.com/dmitrijs2005/civicdesk/internal/client/status"
	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

// Geocoder resolves coordinates typed into the report form.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) string
}

// PhotoLoader reads the photo attached to a report.
type PhotoLoader interface {
	Load(ctx context.Context, ref string) (*models.Photo, error)
}

type App struct {
	config   *config.Config
	api      client.Client
	session  *session.Store
	geocoder Geocoder
	photos   PhotoLoader
	metrics  metrics.Recorder
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	db       *sql.DB

	mu     sync.Mutex
	view   session.View
	list   *issues.ListController
	status *status.Controller
}

// NewApp opens local storage and builds the gateway, the session store
// and the helpers the commands need. reg receives the gateway metrics;
// pass nil to disable them.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, reg prometheus.Registerer) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "error initializing database", "dsn", c.DatabaseDSN, "error", err)
		return nil, err
	}

	var rec metrics.Recorder = metrics.Nop{}
	if reg != nil {
		rec = metrics.NewCollector(reg)
	}

	app := &App{
		config:  c,
		metrics: rec,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		db:      repos.DB,
		view:    session.ViewLogin,
	}

	// The gateway reads the token through the store, which is built
	// right after it.
	var store *session.Store
	api, err := client.NewHTTPClient(c.APIBaseURL,
		client.TokenFunc(func() string { return store.Token() }),
		client.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}),
		client.WithLogger(logger.With("component", "gateway")),
		client.WithMetrics(rec),
		client.WithRateLimit(c.RequestsPerSecond),
		client.WithAssetBaseURL(c.AssetBaseURL),
	)
	if err != nil {
		_ = repos.DB.Close()
		return nil, err
	}
	store = session.NewStore(repos.Credentials, api,
		session.WithNavigator(app),
		session.WithLogger(logger.With("component", "session")),
	)

	photoOpts := []photos.Option{photos.WithLogger(logger)}
	if c.S3.Region != "" || c.S3.Endpoint != "" {
		s3c, err := photos.NewS3Client(ctx, c.S3)
		if err != nil {
			_ = repos.DB.Close()
			return nil, err
		}
		photoOpts = append(photoOpts, photos.WithS3(s3c))
	}

	app.api = api
	app.session = store
	app.geocoder = geocode.NewClient(c.GeocoderURL,
		geocode.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}),
		geocode.WithLogger(logger),
		geocode.WithRateLimit(1),
	)
	app.photos = photos.NewLoader(photoOpts...)
	return app, nil
}

// Navigate switches the active view. Each dashboard gets its own list
// and status controllers; the login view has none.
func (a *App) Navigate(v session.View) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.view = v
	listOpts := []issues.Option{
		issues.WithPageSize(a.config.PageSize),
		issues.WithLogger(a.logger.With("component", "issues", "view", string(v))),
		issues.WithMetrics(a.metrics),
	}
	switch v {
	case session.ViewAdmin:
		a.list = issues.NewListController(a.api, listOpts...)
	case session.ViewUser:
		a.list = issues.NewUserDashboard(a.api, a.session, listOpts...)
	default:
		a.list, a.status = nil, nil
		return
	}
	a.status = status.NewController(a.api, a.list,
		status.WithLogger(a.logger.With("component", "status")),
		status.WithMetrics(a.metrics),
		status.OnAuthFailure(a.dropSession),
	)
}

func (a *App) controllers() (session.View, *issues.ListController, *status.Controller) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view, a.list, a.status
}

func (a *App) isLoggedIn() bool {
	return a.session.Current() != nil
}

// Run restores a persisted session, opens its dashboard and runs the
// REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.session.Initialize(ctx)
	if cur := a.session.Current(); cur != nil {
		a.Navigate(landing(cur))
		fmt.Fprintf(a.out, "Welcome back, %s\n", cur.Username)
		_ = a.List(ctx, nil)
	}

	fmt.Fprintln(a.out, "civicdesk (type 'help' for commands)")
	runREPL(ctx, a, a.prompt, a.reader)
}

// Close releases local storage.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func landing(s *models.Session) session.View {
	if s.IsAdmin() {
		return session.ViewAdmin
	}
	return session.ViewUser
}

func (a *App) prompt() string {
	cur := a.session.Current()
	if cur == nil {
		return ""
	}
	view, _, _ := a.controllers()
	return fmt.Sprintf("(%s %s)", cur.Username, view)
}
