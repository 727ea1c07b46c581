package client

import (
	"context"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means no token-scheme credential is active.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Authenticator is the auth half of the backend API.
type Authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) error
	Login(ctx context.Context, username, password string) (models.AuthResult, error)
}

// Issues is the issue half of the backend API.
type Issues interface {
	CreateIssue(ctx context.Context, issue models.NewIssue) (models.Issue, error)
	CreateIssueWithImage(ctx context.Context, issue models.NewIssue) (models.Issue, error)
	ListAllIssues(ctx context.Context) ([]models.Issue, error)
	ListIssuesByStatus(ctx context.Context, status string) ([]models.Issue, error)
	ListIssuesByUser(ctx context.Context, user string) ([]models.Issue, error)
	GetIssue(ctx context.Context, id string) (models.Issue, error)
	UpdateIssueStatus(ctx context.Context, id string, status string) (models.Issue, error)
}

// Client is the full backend API contract.
type Client interface {
	Authenticator
	Issues
}
