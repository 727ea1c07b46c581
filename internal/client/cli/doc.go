// Package cli provides the interactive civicdesk terminal client.
//
// It wires configuration, local credential storage, the backend gateway,
// the session store and the dashboard controllers behind a small REPL.
// The views of the browser client map onto commands:
//
//   - login / login-local / register / register-local / logout
//   - list, more, filter, refresh, stats (user and admin dashboards)
//   - report (new issue, optional photo and coordinates)
//   - status (administrators only), show, mine
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
