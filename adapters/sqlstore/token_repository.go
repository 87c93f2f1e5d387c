// Package sqlstore persists session credentials and question votes in a SQL
// database through sqlx.
// Both the sqlite3 and postgres drivers are supported; queries are written with
// '?' placeholders and rebound for the connected driver.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/internal/migration"
	"duvidapp/models"
	"duvidapp/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type tokenRow struct {
	SessionKey string         `db:"session_key"`
	Token      string         `db:"token"`
	ExpiresAt  time.Time      `db:"expires_at"`
	UserJSON   sql.NullString `db:"user_json"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// TokenRepository implements ports.TokenStore and ports.VoteStore on a sqlx
// database
type TokenRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ ports.ClientStore = (*TokenRepository)(nil)

// NewTokenRepository wraps an open database. The schema must already exist.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db, now: time.Now}
}

// Open connects to the database, runs the token store migrations and returns
// the repository
func Open(ctx context.Context, driver, dsn string) (*TokenRepository, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to connect to "+driver)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewTokenRepository(db), nil
}

// DB exposes the underlying connection
func (r *TokenRepository) DB() *sqlx.DB {
	return r.db
}

// Close releases the database connection
func (r *TokenRepository) Close() error {
	return r.db.Close()
}

// Load returns the credentials stored under key, or nil when there are none
func (r *TokenRepository) Load(ctx context.Context, key string) (*ports.Credentials, error) {
	var row tokenRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT session_key, token, expires_at, user_json, updated_at
		FROM session_tokens
		WHERE session_key = ?
	`), key)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to load session token")
	}

	creds := &ports.Credentials{
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt.UTC(),
	}
	if row.UserJSON.Valid && row.UserJSON.String != "" {
		var user models.User
		if err := json.Unmarshal([]byte(row.UserJSON.String), &user); err != nil {
			return nil, errors.Wrap(err, "failed to decode stored user")
		}
		creds.User = &user
	}
	return creds, nil
}

// Save upserts the credentials stored under key
func (r *TokenRepository) Save(ctx context.Context, key string, creds ports.Credentials) error {
	var userJSON sql.NullString
	if creds.User != nil {
		raw, err := json.Marshal(creds.User)
		if err != nil {
			return errors.Wrap(err, "failed to encode user")
		}
		userJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO session_tokens (session_key, token, expires_at, user_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at,
			user_json = excluded.user_json,
			updated_at = excluded.updated_at
	`), key, creds.Token, creds.ExpiresAt.UTC(), userJSON, r.now().UTC())
	if err != nil {
		return errors.DatabaseError(err, "failed to save session token")
	}
	return nil
}

// Delete removes the credentials stored under key
func (r *TokenRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM session_tokens WHERE session_key = ?`), key)
	if err != nil {
		return errors.DatabaseError(err, "failed to delete session token")
	}
	return nil
}

// PurgeExpired deletes every stored token that expired before now and reports
// how many rows were removed
func (r *TokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM session_tokens WHERE expires_at < ?`), r.now().UTC())
	if err != nil {
		return 0, errors.DatabaseError(err, "failed to purge expired tokens")
	}
	return res.RowsAffected()
}
