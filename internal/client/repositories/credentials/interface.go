// Package credentials persists the client's credential state: the token
// scheme slot (token, username, authorities), the legacy scheme slot (the
// logged-in user record) and the list of locally registered legacy users.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

// Storage keys. They match the names the browser client used so exported
// data can be imported unchanged.
const (
	KeyToken        = "jwtToken"
	KeyUsername     = "username"
	KeyAuthorities  = "authorities"
	KeyLoggedInUser = "loggedInUser"
	KeyUsers        = "users"
)

// TokenCredentials is the token scheme slot.
type TokenCredentials struct {
	Token       string
	Username    string
	Authorities []string
}

// Repository is the credential storage used by the session store.
//
// Load methods return ok=false (and no error) when the slot is empty.
type Repository interface {
	LoadToken(ctx context.Context) (TokenCredentials, bool, error)
	SaveToken(ctx context.Context, c TokenCredentials) error

	LoadLoggedInUser(ctx context.Context) (models.LegacyUser, bool, error)
	SaveLoggedInUser(ctx context.Context, u models.LegacyUser) error

	LoadUsers(ctx context.Context) ([]models.LegacyUser, error)
	SaveUsers(ctx context.Context, users []models.LegacyUser) error

	// ClearSession empties both the token and the legacy slot. The local
	// user list is kept.
	ClearSession(ctx context.Context) error
}
