package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/dbx"
)

// SQLiteRepository implements Repository on the credentials key/value table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository bound to db. The credentials
// table must exist (see client.InitDatabase).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials[%s]: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set credentials[%s]: %w", key, err)
	}
	return nil
}

func del(ctx context.Context, q dbx.DBTX, keys ...string) error {
	for _, key := range keys {
		if _, err := q.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete credentials[%s]: %w", key, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) LoadToken(ctx context.Context) (TokenCredentials, bool, error) {
	token, err := get(ctx, r.db, KeyToken)
	if err != nil || len(token) == 0 {
		return TokenCredentials{}, false, err
	}
	username, err := get(ctx, r.db, KeyUsername)
	if err != nil {
		return TokenCredentials{}, false, err
	}

	c := TokenCredentials{Token: string(token), Username: string(username)}

	rawAuth, err := get(ctx, r.db, KeyAuthorities)
	if err != nil {
		return TokenCredentials{}, false, err
	}
	if len(rawAuth) > 0 {
		if err := json.Unmarshal(rawAuth, &c.Authorities); err != nil {
			return TokenCredentials{}, false, fmt.Errorf("failed to decode credentials[%s]: %w", KeyAuthorities, err)
		}
	}
	return c, true, nil
}

// SaveToken writes the whole token slot in one transaction and drops any
// legacy record so a single scheme is persisted at a time.
func (r *SQLiteRepository) SaveToken(ctx context.Context, c TokenCredentials) error {
	authorities, err := json.Marshal(c.Authorities)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := set(ctx, tx, KeyToken, []byte(c.Token)); err != nil {
			return err
		}
		if err := set(ctx, tx, KeyUsername, []byte(c.Username)); err != nil {
			return err
		}
		if err := set(ctx, tx, KeyAuthorities, authorities); err != nil {
			return err
		}
		return del(ctx, tx, KeyLoggedInUser)
	})
}

func (r *SQLiteRepository) LoadLoggedInUser(ctx context.Context) (models.LegacyUser, bool, error) {
	raw, err := get(ctx, r.db, KeyLoggedInUser)
	if err != nil || len(raw) == 0 {
		return models.LegacyUser{}, false, err
	}
	var u models.LegacyUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return models.LegacyUser{}, false, fmt.Errorf("failed to decode credentials[%s]: %w", KeyLoggedInUser, err)
	}
	return u, true, nil
}

// SaveLoggedInUser stores the legacy slot and drops the token slot.
func (r *SQLiteRepository) SaveLoggedInUser(ctx context.Context, u models.LegacyUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := set(ctx, tx, KeyLoggedInUser, raw); err != nil {
			return err
		}
		return del(ctx, tx, KeyToken, KeyUsername, KeyAuthorities)
	})
}

func (r *SQLiteRepository) LoadUsers(ctx context.Context) ([]models.LegacyUser, error) {
	raw, err := get(ctx, r.db, KeyUsers)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var users []models.LegacyUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to decode credentials[%s]: %w", KeyUsers, err)
	}
	return users, nil
}

func (r *SQLiteRepository) SaveUsers(ctx context.Context, users []models.LegacyUser) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return set(ctx, r.db, KeyUsers, raw)
}

func (r *SQLiteRepository) ClearSession(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		return del(ctx, tx, KeyToken, KeyUsername, KeyAuthorities, KeyLoggedInUser)
	})
}
