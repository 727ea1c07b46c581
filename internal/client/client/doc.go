// Package client is the boundary between the civic issue client and its
// REST backend.
//
// # Overview
//
// The package provides:
//  1. The API contract (Client = Authenticator + Issues) used by the session
//     store and the controllers.
//  2. HTTPClient, the net/http implementation. It attaches the bearer token
//     from an injected TokenSource, validates request shapes before any
//     transport, normalizes every non-success response into a *StatusError
//     and adapts the backend's alternate field spellings into one
//     models.Issue shape.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring the
//     SQLite credential storage and its embedded goose migrations.
//
// # Error Handling
//
// Failures before transport wrap ErrAuthRequired or ErrValidation. Backend
// responses surface as *StatusError, which matches ErrNotFound (404) and
// ErrUnauthorized (401/403) through errors.Is and always carries
// "status: <code>" in its text. Transport failures wrap ErrUnavailable.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All calls honor ctx cancellation;
// no per-call deadline is added beyond the http.Client timeout.
package client
