package app

import (
	"context"
	"slices"
	"sync"
	"time"

	"duvidapp/internal"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// WorkspaceManager owns the workspaces of a server process, keyed by
// browser-session id
type WorkspaceManager struct {
	backend     Backend
	cfg         WorkspaceConfig
	idleTimeout time.Duration
	logger      *internal.Logger
	onCreate    []func(*Workspace)
	creating    singleflight.Group

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewWorkspaceManager creates a manager. Workspaces idle for longer than
// idleTimeout are dropped by Sweep; their persisted tokens survive.
func NewWorkspaceManager(backend Backend, cfg WorkspaceConfig, idleTimeout time.Duration) *WorkspaceManager {
	logger := cfg.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &WorkspaceManager{
		backend:     backend,
		cfg:         cfg,
		idleTimeout: idleTimeout,
		logger:      logger.WithField("component", "workspaces"),
		workspaces:  make(map[string]*Workspace),
	}
}

// OnCreate registers a hook run for every new workspace, before it is handed
// out
func (m *WorkspaceManager) OnCreate(fn func(*Workspace)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = append(m.onCreate, fn)
}

// NewID returns a fresh workspace id
func (m *WorkspaceManager) NewID() string {
	return uuid.NewString()
}

// Get returns the workspace for id, creating it (and restoring its persisted
// session) when needed. Creation runs outside the manager lock so a slow token
// store only delays callers asking for the same id.
func (m *WorkspaceManager) Get(ctx context.Context, id string) *Workspace {
	if w, ok := m.Lookup(id); ok {
		w.Touch()
		return w
	}

	v, _, _ := m.creating.Do(id, func() (any, error) {
		if w, ok := m.Lookup(id); ok {
			return w, nil
		}

		w := NewWorkspace(ctx, id, m.backend, m.cfg)
		m.mu.Lock()
		hooks := slices.Clone(m.onCreate)
		m.mu.Unlock()
		for _, fn := range hooks {
			fn(w)
		}

		m.mu.Lock()
		m.workspaces[id] = w
		total := len(m.workspaces)
		m.mu.Unlock()
		m.logger.Debug("[Workspaces] Created %s (total %d)", id, total)
		return w, nil
	})
	w := v.(*Workspace)
	w.Touch()
	return w
}

// Lookup returns an existing workspace without creating one
func (m *WorkspaceManager) Lookup(id string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	return w, ok
}

// Remove closes and forgets a workspace
func (m *WorkspaceManager) Remove(id string) {
	m.mu.Lock()
	w, ok := m.workspaces[id]
	delete(m.workspaces, id)
	m.mu.Unlock()

	if ok {
		w.Close()
	}
}

// Len returns the number of live workspaces
func (m *WorkspaceManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Sweep drops workspaces idle for longer than the idle timeout and reports how
// many were removed
func (m *WorkspaceManager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.cfg.Clock().Add(-m.idleTimeout)

	m.mu.Lock()
	var stale []*Workspace
	for id, w := range m.workspaces {
		if w.LastSeen().Before(cutoff) {
			stale = append(stale, w)
			delete(m.workspaces, id)
		}
	}
	m.mu.Unlock()

	for _, w := range stale {
		w.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("[Workspaces] Evicted %d idle workspaces", len(stale))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done
func (m *WorkspaceManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close closes every workspace
func (m *WorkspaceManager) Close() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = make(map[string]*Workspace)
	m.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}
