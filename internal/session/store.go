// Package session owns the authenticated identity of a workspace. It is the only
// writer of the bearer token; every other store reads it through ports.SessionReader.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"duvidapp/internal"
	"duvidapp/internal/errors"
	"duvidapp/internal/remote"
	"duvidapp/internal/validation"
	"duvidapp/models"
	"duvidapp/ports"
)

// State is the session lifecycle state
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

const persistTimeout = 3 * time.Second

// Backend is the part of the remote API the session needs
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, req remote.RegisterRequest) error
}

// RegisterInput is a sign-up form in domain vocabulary
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// RegisterResult tells the form whether sign-up worked and, if not, why
type RegisterResult struct {
	Success bool
	Message string
	// Err is the classified failure, nil on success
	Err error
}

// Config configures a Store
type Config struct {
	// Key identifies this session's credentials in Tokens
	Key       string
	Tokens    ports.TokenStore
	Validator *validation.Validator
	Logger    *internal.Logger
	Clock     func() time.Time
}

// Store is the session state machine
type Store struct {
	backend   Backend
	tokens    ports.TokenStore
	key       string
	validator *validation.Validator
	logger    *internal.Logger
	now       func() time.Time

	mu        sync.RWMutex
	state     State
	token     string
	expiresAt time.Time
	user      *models.User
}

var _ ports.SessionReader = (*Store)(nil)

// New creates a session store and restores any persisted credentials
func New(ctx context.Context, backend Backend, cfg Config) *Store {
	s := &Store{
		backend:   backend,
		tokens:    cfg.Tokens,
		key:       cfg.Key,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		now:       cfg.Clock,
		state:     StateAnonymous,
	}
	if s.tokens == nil {
		s.tokens = NewMemoryTokenStore()
	}
	if s.validator == nil {
		s.validator = validation.Default()
	}
	if s.logger == nil {
		s.logger = internal.DefaultLogger
	}
	s.logger = s.logger.WithField("component", "session")
	if s.now == nil {
		s.now = time.Now
	}

	s.Restore(ctx)
	return s
}

// Restore primes the session from persisted credentials. Expired or undecodable
// tokens are discarded without any notification.
func (s *Store) Restore(ctx context.Context) {
	creds, err := s.tokens.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn("[Session] Failed to load credentials for %s: %v", s.key, err)
		return
	}
	if creds == nil || creds.Token == "" {
		return
	}

	user, expiresAt, err := decodeToken(creds.Token)
	if err != nil || !expiresAt.After(s.now()) {
		s.logger.Debug("[Session] Discarding stored token for %s", s.key)
		s.forget(ctx)
		return
	}

	// the cached profile may be fresher than the claims after a profile update
	if creds.User != nil && creds.User.ID == user.ID {
		user = mergeUser(user, *creds.User)
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.token = creds.Token
	s.expiresAt = expiresAt
	s.user = &user
	s.mu.Unlock()
	s.logger.Info("[Session] Restored session for user %s", user.ID)
}

// Login exchanges credentials for a token. Bad credentials fail with an
// Unauthorized error carrying the form message.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.state = StateAuthenticating
	s.mu.Unlock()

	token, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.reset()
		if httpErr, ok := errors.AsHTTPError(err); ok && (httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusBadRequest) {
			return errors.Unauthorized("Email ou senha incorretos")
		}
		if errors.IsNetwork(err) {
			return errors.Wrap(err, "Não foi possível conectar ao servidor.")
		}
		return errors.Wrap(err, "Erro ao fazer login. Tente novamente.")
	}

	user, expiresAt, err := decodeToken(token)
	if err != nil {
		s.reset()
		return errors.Wrap(err, "Erro ao fazer login. Tente novamente.")
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.token = token
	s.expiresAt = expiresAt
	s.user = &user
	s.mu.Unlock()

	s.persist(ctx)
	s.logger.Info("[Session] User %s logged in", user.ID)
	return nil
}

// Register creates an account. It never logs the user in.
func (s *Store) Register(ctx context.Context, in RegisterInput) RegisterResult {
	form, err := s.validator.Registration(in.Name, in.Email, in.Password, in.Role)
	if err != nil {
		return RegisterResult{Message: errors.UserMessage(err), Err: err}
	}

	err = s.backend.Register(ctx, remote.RegisterRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role.BackendRole(),
	})
	switch {
	case err == nil:
		return RegisterResult{Success: true}
	case errors.HasStatus(err, http.StatusConflict):
		msg := errors.UserMessage(err)
		if msg == "" || msg == "Falha ao enviar dados ao servidor." {
			msg = "Este email já está em uso."
		}
		return RegisterResult{Message: msg, Err: errors.Conflict(msg)}
	case errors.IsNetwork(err):
		s.logger.Warn("[Session] Register failed: %v", err)
		return RegisterResult{Message: "Não foi possível conectar ao servidor.", Err: err}
	default:
		s.logger.Warn("[Session] Register failed: %v", err)
		return RegisterResult{Message: "Ocorreu um erro inesperado ao registrar.", Err: err}
	}
}

// Logout clears the identity and the persisted credentials
func (s *Store) Logout(ctx context.Context) {
	s.reset()
	s.forget(ctx)
}

// Token returns the bearer token, or "" when there is none. A token whose exp
// has passed ends the session.
func (s *Store) Token() string {
	s.mu.RLock()
	token, expiresAt := s.token, s.expiresAt
	s.mu.RUnlock()

	if token == "" {
		return ""
	}
	if !expiresAt.After(s.now()) {
		s.logger.Info("[Session] Token expired for %s", s.key)
		s.reset()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		s.forget(ctx)
		return ""
	}
	return token
}

// User returns the signed-in user
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// State returns the lifecycle state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether a usable token is held
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// IsTeacher reports whether the signed-in user is a teacher
func (s *Store) IsTeacher() bool {
	user, ok := s.User()
	return ok && user.IsTeacher()
}

// ExpiresAt returns when the current token stops being valid
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// UpdateUser merges the non-empty fields of updated into the signed-in user and
// refreshes the persisted snapshot. The id must match the current user.
func (s *Store) UpdateUser(ctx context.Context, updated models.User) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return errors.Unauthenticated("sessão expirada, faça login novamente")
	}
	if updated.ID != "" && updated.ID != s.user.ID {
		s.mu.Unlock()
		return errors.Forbidden("profile belongs to another user")
	}
	merged := mergeUser(*s.user, updated)
	s.user = &merged
	s.mu.Unlock()

	s.persist(ctx)
	return nil
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAnonymous
	s.token = ""
	s.expiresAt = time.Time{}
	s.user = nil
}

func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	creds := ports.Credentials{Token: s.token, ExpiresAt: s.expiresAt}
	if s.user != nil {
		user := *s.user
		creds.User = &user
	}
	s.mu.RUnlock()

	if creds.Token == "" {
		return
	}
	if err := s.tokens.Save(ctx, s.key, creds); err != nil {
		s.logger.Warn("[Session] Failed to persist credentials for %s: %v", s.key, err)
	}
}

func (s *Store) forget(ctx context.Context) {
	if err := s.tokens.Delete(ctx, s.key); err != nil {
		s.logger.Warn("[Session] Failed to delete credentials for %s: %v", s.key, err)
	}
}

func mergeUser(base, overlay models.User) models.User {
	if overlay.Name != "" {
		base.Name = overlay.Name
	}
	if overlay.Email != "" {
		base.Email = overlay.Email
	}
	if overlay.Avatar != "" {
		base.Avatar = overlay.Avatar
	}
	if overlay.Role.Valid() {
		base.Role = overlay.Role
	}
	return base
}
