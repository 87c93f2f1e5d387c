// Package redisstore keeps session credentials and question votes in redis.
// Each credential key expires together with the token it holds.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/ports"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "duvidapp:session:"

// TokenStore implements ports.TokenStore and ports.VoteStore on a redis client
type TokenStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ ports.ClientStore = (*TokenStore)(nil)

// NewTokenStore creates a token store using an existing client
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client, now: time.Now}
}

// Dial connects to redis and verifies the connection with a PING
func Dial(ctx context.Context, addr, password string, db int) (*TokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.DatabaseError(err, "failed to reach redis at "+addr)
	}
	return NewTokenStore(client), nil
}

// Close closes the redis client
func (s *TokenStore) Close() error {
	return s.client.Close()
}

func sessionKey(key string) string {
	return fmt.Sprintf("%s%s", keyPrefix, key)
}

// Load returns the credentials stored under key, or nil when there are none
func (s *TokenStore) Load(ctx context.Context, key string) (*ports.Credentials, error) {
	raw, err := s.client.Get(ctx, sessionKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to load session token")
	}

	var creds ports.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, errors.Wrap(err, "failed to decode session token")
	}
	return &creds, nil
}

// Save stores the credentials with a TTL matching their expiry. Already
// expired credentials are not written and any previous value is removed.
func (s *TokenStore) Save(ctx context.Context, key string, creds ports.Credentials) error {
	ttl := creds.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	raw, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "failed to encode session token")
	}
	if err := s.client.Set(ctx, sessionKey(key), raw, ttl).Err(); err != nil {
		return errors.DatabaseError(err, "failed to save session token")
	}
	return nil
}

// Delete removes the credentials stored under key
func (s *TokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionKey(key)).Err(); err != nil {
		return errors.DatabaseError(err, "failed to delete session token")
	}
	return nil
}
