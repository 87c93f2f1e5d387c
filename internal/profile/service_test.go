package profile

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/internal/notify"
	"duvidapp/internal/remote"
	"duvidapp/internal/session"
	"duvidapp/internal/testkit"
	"duvidapp/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

type env struct {
	backend *testkit.Backend
	session *session.Store
	center  *notify.Center
	service *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	backend := testkit.NewBackend()
	backend.Seed()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := remote.NewClient(remote.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	sess := session.New(context.Background(), client, session.Config{Key: "profile"})
	require.NoError(t, sess.Login(context.Background(), "ana@duvidapp.dev", "senha123"))

	center := notify.NewCenter(time.Minute)
	t.Cleanup(center.Close)

	return &env{backend: backend, session: sess, center: center, service: NewService(client, sess, center, nil)}
}

func TestUpdate_Name(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.service.Update(context.Background(), UpdateInput{Name: str("Ana Beatriz Costa")}))

	user, _ := e.session.User()
	assert.Equal(t, "Ana Beatriz Costa", user.Name)
	assert.Equal(t, "ana@duvidapp.dev", user.Email)

	toasts := e.center.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Perfil atualizado com sucesso!", toasts[0].Message)
}

func TestUpdate_EmptyIsNoop(t *testing.T) {
	e := newEnv(t)
	before := e.backend.RequestCount()

	require.NoError(t, e.service.Update(context.Background(), UpdateInput{Name: str("   ")}))
	assert.Equal(t, before, e.backend.RequestCount())
	assert.Empty(t, e.center.Toasts())
}

func TestUpdate_PasswordNeedsCurrent(t *testing.T) {
	e := newEnv(t)
	before := e.backend.RequestCount()

	err := e.service.Update(context.Background(), UpdateInput{Password: str("novasenha")})
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, before, e.backend.RequestCount())
}

func TestUpdate_PasswordChange(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.service.Update(context.Background(), UpdateInput{
		Password:        str("novasenha"),
		CurrentPassword: str("senha123"),
	}))

	e.session.Logout(context.Background())
	require.NoError(t, e.session.Login(context.Background(), "ana@duvidapp.dev", "novasenha"))
}

func TestUpdate_WrongCurrentPassword(t *testing.T) {
	e := newEnv(t)

	err := e.service.Update(context.Background(), UpdateInput{
		Password:        str("novasenha"),
		CurrentPassword: str("errada"),
	})
	require.Error(t, err)

	toasts := e.center.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ports.SeverityError, toasts[0].Severity)
	assert.Equal(t, "Senha atual incorreta", toasts[0].Message)
}

func TestUpdate_EmailConflict(t *testing.T) {
	e := newEnv(t)

	err := e.service.Update(context.Background(), UpdateInput{Email: str("joao@duvidapp.dev")})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	user, _ := e.session.User()
	assert.Equal(t, "ana@duvidapp.dev", user.Email)
}
