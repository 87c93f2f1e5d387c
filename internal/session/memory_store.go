package session

import (
	"context"
	"slices"
	"sync"

	"duvidapp/models"
	"duvidapp/ports"
)

// MemoryTokenStore keeps credentials and question votes in process memory
type MemoryTokenStore struct {
	mu    sync.RWMutex
	items map[string]ports.Credentials
	votes map[string][]models.Vote
}

// NewMemoryTokenStore creates an empty in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		items: make(map[string]ports.Credentials),
		votes: make(map[string][]models.Vote),
	}
}

var _ ports.ClientStore = (*MemoryTokenStore)(nil)

func (m *MemoryTokenStore) Load(_ context.Context, key string) (*ports.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	creds, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	if creds.User != nil {
		user := *creds.User
		creds.User = &user
	}
	return &creds, nil
}

func (m *MemoryTokenStore) Save(_ context.Context, key string, creds ports.Credentials) error {
	if creds.User != nil {
		user := *creds.User
		creds.User = &user
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = creds
	return nil
}

func (m *MemoryTokenStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryTokenStore) LoadVotes(_ context.Context, userID string) ([]models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.votes[userID]), nil
}

func (m *MemoryTokenStore) SaveVotes(_ context.Context, userID string, votes []models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(votes) == 0 {
		delete(m.votes, userID)
		return nil
	}
	m.votes[userID] = slices.Clone(votes)
	return nil
}
