package ports

import (
	"context"
	"time"

	"duvidapp/models"
)

// Credentials is what a client persists between runs: the bearer token and an
// optional snapshot of the user profile used to prime the session.
type Credentials struct {
	Token     string       `json:"token" db:"token"`
	ExpiresAt time.Time    `json:"expires_at" db:"expires_at"`
	User      *models.User `json:"user,omitempty"`
}

// TokenStore persists credentials per workspace key
type TokenStore interface {
	// Load returns the stored credentials, or nil when none are stored
	Load(ctx context.Context, key string) (*Credentials, error)

	// Save replaces the credentials stored under key
	Save(ctx context.Context, key string, creds Credentials) error

	// Delete removes the credentials stored under key
	Delete(ctx context.Context, key string) error
}
