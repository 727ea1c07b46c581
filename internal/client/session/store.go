// Package session holds the client's notion of who is acting. It bridges
// the backend token scheme and the older locally stored user records, and
// is the only writer of the persisted credential slots.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/civicdesk/internal/client/client"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/civicdesk/internal/logging"
)

var (
	// ErrNoToken rejects a login result that carries no token.
	ErrNoToken = errors.New("login response carries no token")
	// ErrUserExists rejects a local registration for a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUser rejects a local registration without username or password.
	ErrInvalidUser = errors.New("username and password are required")
)

// View is a navigation target.
type View string

const (
	ViewLogin View = "login"
	ViewUser  View = "user"
	ViewAdmin View = "admin"
)

// Navigator receives the view to show after a session change.
type Navigator interface {
	Navigate(v View)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(View)

func (f NavigatorFunc) Navigate(v View) { f(v) }

type nopNavigator struct{}

func (nopNavigator) Navigate(View) {}

// Store is the session store.
type Store struct {
	mu      sync.RWMutex
	current *models.Session

	creds      credentials.Repository
	auth       client.Authenticator
	nav        Navigator
	logger     logging.Logger
	now        func() time.Time
	bcryptCost int
}

// Option customizes a Store.
type Option func(*Store)

// WithNavigator receives the view to open after login and logout.
func WithNavigator(n Navigator) Option { return func(s *Store) { s.nav = n } }

// WithLogger sets the logger for session events.
func WithLogger(l logging.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithBcryptCost sets the cost of hashes written by RegisterLocal.
func WithBcryptCost(cost int) Option { return func(s *Store) { s.bcryptCost = cost } }

// NewStore returns an anonymous store. Call Initialize to restore a
// persisted session.
func NewStore(creds credentials.Repository, auth client.Authenticator, opts ...Option) *Store {
	s := &Store{
		creds:      creds,
		auth:       auth,
		nav:        nopNavigator{},
		logger:     logging.Nop(),
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the active session, or nil when anonymous.
func (s *Store) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Token returns the bearer token of a token-scheme session, else "".
// Store satisfies client.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Scheme != models.SchemeToken {
		return ""
	}
	return s.current.Token
}

func (s *Store) set(sess *models.Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

// Initialize restores the persisted session. A live token wins over a
// legacy record. It never fails: unreadable state leaves the store
// anonymous and is only logged.
func (s *Store) Initialize(ctx context.Context) {
	if sess := s.restoreToken(ctx); sess != nil {
		s.set(sess)
		s.logger.Info(ctx, "session restored", "scheme", sess.Scheme, "username", sess.Username)
		return
	}
	if sess := s.restoreLegacy(ctx); sess != nil {
		s.set(sess)
		s.logger.Info(ctx, "session restored", "scheme", sess.Scheme, "username", sess.Username)
		return
	}
	s.set(nil)
}

func (s *Store) restoreToken(ctx context.Context) *models.Session {
	tc, ok, err := s.creds.LoadToken(ctx)
	if err != nil {
		s.logger.Warn(ctx, "reading token credentials failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	exp, err := tokenExpiry(tc.Token)
	if err != nil {
		s.logger.Warn(ctx, "stored token ignored", "error", err)
		return nil
	}
	if !exp.After(s.now()) {
		s.logger.Debug(ctx, "stored token expired", "exp", exp)
		return nil
	}
	return &models.Session{
		Scheme:      models.SchemeToken,
		Username:    tc.Username,
		Token:       tc.Token,
		Authorities: tc.Authorities,
	}
}

func (s *Store) restoreLegacy(ctx context.Context) *models.Session {
	u, ok, err := s.creds.LoadLoggedInUser(ctx)
	if err != nil {
		s.logger.Warn(ctx, "reading legacy user failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return legacySession(u)
}

func legacySession(u models.LegacyUser) *models.Session {
	return &models.Session{
		Scheme:   models.SchemeLegacy,
		Username: u.Username,
		UserID:   string(u.ID),
		Role:     u.Role,
	}
}

func landing(sess *models.Session) View {
	if sess.IsAdmin() {
		return ViewAdmin
	}
	return ViewUser
}

// Login authenticates against the backend and accepts the result.
func (s *Store) Login(ctx context.Context, username, password string) error {
	res, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return s.Accept(ctx, res)
}

// Accept makes res the active token-scheme session and persists it.
func (s *Store) Accept(ctx context.Context, res models.AuthResult) error {
	if res.Token == "" {
		return ErrNoToken
	}
	tc := credentials.TokenCredentials{
		Token:       res.Token,
		Username:    res.Username,
		Authorities: []string(res.Authorities),
	}
	if err := s.creds.SaveToken(ctx, tc); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	sess := &models.Session{
		Scheme:      models.SchemeToken,
		Username:    tc.Username,
		Token:       tc.Token,
		Authorities: tc.Authorities,
	}
	s.set(sess)
	s.logger.Info(ctx, "logged in", "scheme", sess.Scheme, "username", sess.Username)
	s.nav.Navigate(landing(sess))
	return nil
}

// LoginLegacy checks username and password against the locally stored
// user records. A mismatch is reported as false with a nil error and
// leaves the session untouched; only storage failures are errors.
func (s *Store) LoginLegacy(ctx context.Context, username, password string) (bool, error) {
	users, err := s.creds.LoadUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("legacy login: %w", err)
	}

	for _, u := range users {
		if u.Username != username || !passwordMatches(u, password) {
			continue
		}
		if err := s.creds.SaveLoggedInUser(ctx, u); err != nil {
			return false, fmt.Errorf("legacy login: %w", err)
		}
		sess := legacySession(u)
		s.set(sess)
		s.logger.Info(ctx, "logged in", "scheme", sess.Scheme, "username", sess.Username)
		s.nav.Navigate(landing(sess))
		return true, nil
	}

	s.logger.Info(ctx, "legacy login rejected", "username", username)
	return false, nil
}

func passwordMatches(u models.LegacyUser, password string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
	}
	if u.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// RegisterLocal appends a legacy user record with a bcrypt hash of
// password. Role defaults to "user" and ID to a fresh UUID.
func (s *Store) RegisterLocal(ctx context.Context, u models.LegacyUser, password string) (models.LegacyUser, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" || password == "" {
		return models.LegacyUser{}, ErrInvalidUser
	}

	users, err := s.creds.LoadUsers(ctx)
	if err != nil {
		return models.LegacyUser{}, fmt.Errorf("register local user: %w", err)
	}
	for _, existing := range users {
		if existing.Username == u.Username {
			return models.LegacyUser{}, fmt.Errorf("register local user %q: %w", u.Username, ErrUserExists)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.LegacyUser{}, fmt.Errorf("register local user: %w", err)
	}
	u.Password = ""
	u.PasswordHash = string(hash)
	if u.Role == "" {
		u.Role = "user"
	}
	if u.ID == "" {
		u.ID = models.FlexID(uuid.NewString())
	}

	if err := s.creds.SaveUsers(ctx, append(users, u)); err != nil {
		return models.LegacyUser{}, fmt.Errorf("register local user: %w", err)
	}
	s.logger.Info(ctx, "local user registered", "username", u.Username, "role", u.Role)
	return u, nil
}

// Register creates an account on the backend. It does not log in.
func (s *Store) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.auth.Register(ctx, req); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Logout clears the session and both persisted slots, then navigates to
// the login view. Calling it while anonymous only clears storage again.
// The in-memory session is cleared even when storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.set(nil)
	err := s.creds.ClearSession(ctx)
	if err != nil {
		s.logger.Error(ctx, "clearing stored credentials failed", "error", err)
		err = fmt.Errorf("logout: %w", err)
	}
	s.nav.Navigate(ViewLogin)
	return err
}
