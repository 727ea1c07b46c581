package credentials

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE credentials (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	require.NoError(t, err)
	return db
}

func countKeys(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&n))
	return n
}

func TestLoadToken_EmptySlot(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	c, ok, err := r.LoadToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.Token)
}

func TestSaveToken_RoundTripAndDropsLegacyRecord(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.SaveLoggedInUser(ctx, models.LegacyUser{Username: "old"}))
	require.NoError(t, r.SaveToken(ctx, TokenCredentials{
		Token:       "a.b.c",
		Username:    "ann",
		Authorities: []string{"ROLE_USER", "ROLE_ADMIN"},
	}))

	c, ok, err := r.LoadToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.b.c", c.Token)
	assert.Equal(t, "ann", c.Username)
	assert.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, c.Authorities)

	_, ok, err = r.LoadLoggedInUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoggedInUser_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	want := models.LegacyUser{ID: "5", Username: "bob", Role: "admin"}
	require.NoError(t, r.SaveLoggedInUser(ctx, want))

	got, ok, err := r.LoadLoggedInUser(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSaveLoggedInUser_DropsTokenSlot(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.SaveToken(ctx, TokenCredentials{Token: "t", Username: "alice", Authorities: []string{"ROLE_USER"}}))
	require.NoError(t, r.SaveLoggedInUser(ctx, models.LegacyUser{Username: "bob"}))

	_, ok, err := r.LoadToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, countKeys(t, db))
}

func TestLoadLoggedInUser_CorruptRecord(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := db.Exec(`INSERT INTO credentials(key, value) VALUES (?, ?)`, KeyLoggedInUser, []byte("{nope"))
	require.NoError(t, err)

	_, ok, err := r.LoadLoggedInUser(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to decode credentials[loggedInUser]")
}

func TestUsers_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	users, err := r.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	want := []models.LegacyUser{
		{Username: "a", Password: "pw", Role: "user"},
		{Username: "b", PasswordHash: "$2a$hash", Role: "admin"},
	}
	require.NoError(t, r.SaveUsers(ctx, want))

	users, err = r.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, users)
}

func TestClearSession_ClearsBothSlotsKeepsUsers(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.SaveToken(ctx, TokenCredentials{Token: "t", Username: "ann"}))
	require.NoError(t, r.SaveLoggedInUser(ctx, models.LegacyUser{Username: "bob"}))
	require.NoError(t, r.SaveUsers(ctx, []models.LegacyUser{{Username: "bob"}}))

	require.NoError(t, r.ClearSession(ctx))
	require.NoError(t, r.ClearSession(ctx), "clearing twice is fine")

	_, ok, err := r.LoadToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = r.LoadLoggedInUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, countKeys(t, db), "only the user list remains")
}

func TestRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, _, err := r.LoadToken(ctx)
	require.ErrorContains(t, err, "failed to get credentials[jwtToken]")

	err = r.SaveLoggedInUser(ctx, models.LegacyUser{Username: "x"})
	require.ErrorContains(t, err, "failed to set credentials[loggedInUser]")

	_, err = r.LoadUsers(ctx)
	require.ErrorContains(t, err, "failed to get credentials[users]")
}
