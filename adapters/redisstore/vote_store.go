package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"duvidapp/internal/errors"
	"duvidapp/models"

	"github.com/redis/go-redis/v9"
)

const votesPrefix = "duvidapp:votes:"

func votesKey(userID string) string {
	return fmt.Sprintf("%s%s", votesPrefix, userID)
}

// LoadVotes reads the user's vote hash, one field per question
func (s *TokenStore) LoadVotes(ctx context.Context, userID string) ([]models.Vote, error) {
	fields, err := s.client.HGetAll(ctx, votesKey(userID)).Result()
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to load question votes")
	}

	votes := make([]models.Vote, 0, len(fields))
	for questionID, raw := range fields {
		var v models.Vote
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, errors.Wrapf(err, "failed to decode vote on %s", questionID)
		}
		votes = append(votes, v)
	}
	slices.SortFunc(votes, func(a, b models.Vote) int { return strings.Compare(a.QuestionID, b.QuestionID) })
	return votes, nil
}

// SaveVotes replaces the user's vote hash atomically
func (s *TokenStore) SaveVotes(ctx context.Context, userID string, votes []models.Vote) error {
	values := make([]any, 0, 2*len(votes))
	for _, v := range votes {
		raw, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "failed to encode vote")
		}
		values = append(values, v.QuestionID, string(raw))
	}

	key := votesKey(userID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return errors.DatabaseError(err, "failed to save question votes")
	}
	return nil
}
