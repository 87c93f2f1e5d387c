package migration

import (
	"context"

	"duvidapp/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles the token and vote store schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. The statements
// are written in the subset of SQL that sqlite and postgres share.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSessionTokensTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create session_tokens table")
	}

	if err := r.createQuestionVotesTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create question_votes table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create indexes")
	}

	if err := r.createSchemaVersionTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to record schema version")
	}

	return nil
}

func (r *MigrationRunner) createSessionTokensTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_tokens (
			session_key VARCHAR(255) PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			user_json TEXT,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createQuestionVotesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS question_votes (
			user_id VARCHAR(255) NOT NULL,
			question_id VARCHAR(255) NOT NULL,
			vote_id VARCHAR(64) NOT NULL,
			vote_type VARCHAR(8) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, question_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_session_tokens_expires_at ON session_tokens(expires_at)
	`)
	return err
}

func (r *MigrationRunner) createSchemaVersionTable(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version VARCHAR(32) PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM schema_version WHERE version = ?`), r.version); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), r.version)
	return err
}
