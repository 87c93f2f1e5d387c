package ports

import (
	"context"

	"duvidapp/models"
)

// VoteStore persists each user's question votes so a new workspace for the
// same user still knows what the user already voted
type VoteStore interface {
	// LoadVotes returns the question votes of userID, empty when none are stored
	LoadVotes(ctx context.Context, userID string) ([]models.Vote, error)

	// SaveVotes replaces every question vote stored for userID
	SaveVotes(ctx context.Context, userID string, votes []models.Vote) error
}

// ClientStore is the persistence a client keeps between runs
type ClientStore interface {
	TokenStore
	VoteStore
}
