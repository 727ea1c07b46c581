package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/civicdesk/internal/client/client"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

var errCancelled = errors.New("cancelled")

type credentialsInput struct {
	username string
	password string
}

func (a *App) askCredentials() (credentialsInput, error) {
	username, err := GetRequiredText(a.reader, "Username", a.out)
	if err != nil {
		return credentialsInput{}, err
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return credentialsInput{}, err
	}
	return credentialsInput{username: username, password: password}, nil
}

// Login signs in against the backend and opens the matching dashboard.
func (a *App) Login(ctx context.Context) error {
	in, err := a.askCredentials()
	if err != nil {
		return err
	}
	if err := a.session.Login(ctx, in.username, in.password); err != nil {
		var se *client.StatusError
		if errors.As(err, &se) && se.Message != "" {
			return fmt.Errorf("login failed: %s", se.Message)
		}
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", in.username)
	return a.List(ctx, nil)
}

// LoginLocal signs in against the locally stored user records.
func (a *App) LoginLocal(ctx context.Context) error {
	in, err := a.askCredentials()
	if err != nil {
		return err
	}
	ok, err := a.session.LoginLegacy(ctx, in.username, in.password)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Invalid username or password")
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", in.username)
	if err := a.List(ctx, nil); err != nil && !errors.Is(err, client.ErrAuthRequired) {
		return err
	}
	return nil
}

func (a *App) askProfile() (models.RegisterRequest, error) {
	var req models.RegisterRequest
	var err error
	if req.Username, err = GetRequiredText(a.reader, "Username", a.out); err != nil {
		return req, err
	}
	if req.Name, err = GetSimpleText(a.reader, "Full name", a.out); err != nil {
		return req, err
	}
	if req.Email, err = GetSimpleText(a.reader, "Email", a.out); err != nil {
		return req, err
	}
	role, err := GetSimpleText(a.reader, "Role (USER or ADMIN, default USER)", a.out)
	if err != nil {
		return req, err
	}
	req.Role = strings.ToUpper(role)
	if req.Role == "" {
		req.Role = "USER"
	}
	if req.Role != "USER" && req.Role != "ADMIN" {
		return req, fmt.Errorf("unknown role %q", role)
	}
	if req.Password, err = GetPassword(a.reader, a.out); err != nil {
		return req, err
	}
	if req.Password == "" {
		return req, errCancelled
	}
	return req, nil
}

// Register creates a backend account. The user logs in afterwards.
func (a *App) Register(ctx context.Context) error {
	req, err := a.askProfile()
	if err != nil {
		return err
	}
	if err := a.session.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registration successful, please login")
	return nil
}

// RegisterLocal stores a user record for local login.
func (a *App) RegisterLocal(ctx context.Context) error {
	req, err := a.askProfile()
	if err != nil {
		return err
	}
	u, err := a.session.RegisterLocal(ctx, models.LegacyUser{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Role:     strings.ToLower(req.Role),
	}, req.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Local user %s created, use login-local to sign in\n", u.Username)
	return nil
}

// Logout ends the session in every scheme.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// checkAuth turns a rejected session into a logout so the next prompt is
// the login view. Other errors pass through untouched.
func (a *App) checkAuth(ctx context.Context, err error) error {
	if err == nil || !client.IsAuthFailure(err) {
		return err
	}
	if a.localOnly() {
		fmt.Fprintln(a.out, "Issues need a backend session, use 'login' to load them")
		return err
	}
	fmt.Fprintln(a.out, "Your session is no longer valid, please login again")
	if lerr := a.session.Logout(ctx); lerr != nil {
		a.logger.Error(ctx, "logout after auth failure failed", "error", lerr)
	}
	return err
}

// localOnly reports whether the current session is a local one. Such a
// session carries no token, so gateway calls fail before transport and
// must not end it.
func (a *App) localOnly() bool {
	cur := a.session.Current()
	return cur != nil && cur.Scheme == models.SchemeLegacy
}

func (a *App) dropSession(ctx context.Context) error {
	if a.localOnly() {
		return nil
	}
	return a.session.Logout(ctx)
}
