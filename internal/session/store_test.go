package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/internal/remote"
	"duvidapp/internal/testkit"
	"duvidapp/models"
	"duvidapp/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *testkit.Backend
	client  *remote.Client
	tokens  *MemoryTokenStore
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testkit.NewBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	return &fixture{
		backend: backend,
		client:  remote.NewClient(remote.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}),
		tokens:  NewMemoryTokenStore(),
		now:     time.Now(),
	}
}

func (f *fixture) newStore(t *testing.T) *Store {
	t.Helper()
	return New(context.Background(), f.client, Config{
		Key:    "ws-1",
		Tokens: f.tokens,
		Clock:  func() time.Time { return f.now },
	})
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	uid := f.backend.AddUser("Prof. Marina", "marina@example.com", "secret1", "admin")
	s := f.newStore(t)
	assert.Equal(t, StateAnonymous, s.State())

	require.NoError(t, s.Login(context.Background(), "marina@example.com", "secret1"))

	assert.Equal(t, StateAuthenticated, s.State())
	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsTeacher())

	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, uid, user.ID)
	assert.Equal(t, "Prof. Marina", user.Name)
	assert.Equal(t, models.RoleTeacher, user.Role)

	creds, err := f.tokens.Load(context.Background(), "ws-1")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, s.Token(), creds.Token)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	s := f.newStore(t)

	err := s.Login(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Email ou senha incorretos", errors.UserMessage(err))
	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, s.Token())
}

func TestRestore_UnexpiredToken(t *testing.T) {
	f := newFixture(t)
	uid := f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	token := f.backend.IssueToken(uid, time.Hour)
	require.NoError(t, f.tokens.Save(context.Background(), "ws-1", ports.Credentials{
		Token: token,
		User:  &models.User{ID: uid, Name: "Ana Maria"},
	}))

	s := f.newStore(t)

	assert.Equal(t, StateAuthenticated, s.State())
	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "Ana Maria", user.Name, "cached profile overlays the claims")
	assert.Equal(t, models.RoleStudent, user.Role)
}

func TestRestore_ExpiredTokenDiscarded(t *testing.T) {
	f := newFixture(t)
	uid := f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	require.NoError(t, f.tokens.Save(context.Background(), "ws-1", ports.Credentials{
		Token: f.backend.IssueToken(uid, -time.Minute),
	}))

	s := f.newStore(t)

	assert.Equal(t, StateAnonymous, s.State())
	creds, err := f.tokens.Load(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestRestore_GarbageTokenDiscarded(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tokens.Save(context.Background(), "ws-1", ports.Credentials{Token: "not-a-jwt"}))

	s := f.newStore(t)
	assert.Equal(t, StateAnonymous, s.State())
}

func TestToken_ExpiresDuringSession(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	s := f.newStore(t)
	require.NoError(t, s.Login(context.Background(), "ana@example.com", "secret1"))

	f.now = f.now.Add(25 * time.Hour)

	assert.Empty(t, s.Token())
	assert.Equal(t, StateAnonymous, s.State())
	_, ok := s.User()
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	s := f.newStore(t)
	require.NoError(t, s.Login(context.Background(), "ana@example.com", "secret1"))

	s.Logout(context.Background())

	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, s.Token())
	creds, err := f.tokens.Load(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	s := f.newStore(t)
	ctx := context.Background()

	res := s.Register(ctx, RegisterInput{Name: "Prof", Email: "prof@example.com", Password: "secret1", Role: models.RoleTeacher})
	assert.True(t, res.Success)
	require.NoError(t, s.Login(ctx, "prof@example.com", "secret1"))
	assert.True(t, s.IsTeacher(), "teacher is registered as a privileged account")

	res = s.Register(ctx, RegisterInput{Name: "Outra", Email: "ana@example.com", Password: "secret1", Role: models.RoleStudent})
	assert.False(t, res.Success)
	assert.Equal(t, "Este email já está em uso.", res.Message)
	assert.True(t, errors.IsConflict(res.Err))
	assert.Equal(t, errors.CodeConflict, errors.GetCode(res.Err))

	f.backend.FailNext(http.MethodPost, "/auth/register", http.StatusInternalServerError, "", 1)
	res = s.Register(ctx, RegisterInput{Name: "Novo", Email: "novo@example.com", Password: "secret1", Role: models.RoleStudent})
	assert.False(t, res.Success)
	assert.Equal(t, "Ocorreu um erro inesperado ao registrar.", res.Message)

	res = s.Register(ctx, RegisterInput{Name: "Novo", Email: "novo@example.com", Password: "123", Role: models.RoleStudent})
	assert.False(t, res.Success)
	assert.Equal(t, "A senha deve ter pelo menos 6 caracteres", res.Message)
	assert.True(t, errors.IsValidation(res.Err))
}

func TestRegister_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := remote.NewClient(remote.Config{BaseURL: srv.URL, Timeout: time.Second})
	s := New(context.Background(), client, Config{Key: "ws"})

	res := s.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1", Role: models.RoleStudent})
	assert.False(t, res.Success)
	assert.Equal(t, "Não foi possível conectar ao servidor.", res.Message)
	assert.True(t, errors.IsNetwork(res.Err))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	uid := f.backend.AddUser("Ana", "ana@example.com", "secret1", "user")
	s := f.newStore(t)
	ctx := context.Background()

	assert.True(t, errors.IsUnauthenticated(s.UpdateUser(ctx, models.User{Name: "x"})))

	require.NoError(t, s.Login(ctx, "ana@example.com", "secret1"))
	require.NoError(t, s.UpdateUser(ctx, models.User{ID: uid, Name: "Ana Maria"}))

	user, _ := s.User()
	assert.Equal(t, "Ana Maria", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)

	creds, err := f.tokens.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", creds.User.Name)

	assert.Error(t, s.UpdateUser(ctx, models.User{ID: "someone-else", Name: "x"}))
}
