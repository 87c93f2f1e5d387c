package sqlstore

import (
	"context"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/models"
)

type voteRow struct {
	UserID     string    `db:"user_id"`
	QuestionID string    `db:"question_id"`
	VoteID     string    `db:"vote_id"`
	VoteType   string    `db:"vote_type"`
	CreatedAt  time.Time `db:"created_at"`
}

// LoadVotes returns the question votes stored for userID
func (r *TokenRepository) LoadVotes(ctx context.Context, userID string) ([]models.Vote, error) {
	var rows []voteRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT user_id, question_id, vote_id, vote_type, created_at
		FROM question_votes
		WHERE user_id = ?
		ORDER BY question_id
	`), userID)
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to load question votes")
	}

	votes := make([]models.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, models.Vote{
			ID:         row.VoteID,
			UserID:     row.UserID,
			QuestionID: row.QuestionID,
			Type:       models.VoteType(row.VoteType),
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return votes, nil
}

// SaveVotes replaces the question votes of userID in one transaction
func (r *TokenRepository) SaveVotes(ctx context.Context, userID string, votes []models.Vote) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError(err, "failed to begin vote transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM question_votes WHERE user_id = ?`), userID); err != nil {
		return errors.DatabaseError(err, "failed to clear question votes")
	}

	insert := tx.Rebind(`
		INSERT INTO question_votes (user_id, question_id, vote_id, vote_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, v := range votes {
		if _, err := tx.ExecContext(ctx, insert, userID, v.QuestionID, v.ID, string(v.Type), v.CreatedAt.UTC()); err != nil {
			return errors.DatabaseError(err, "failed to save question vote")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError(err, "failed to commit question votes")
	}
	return nil
}
