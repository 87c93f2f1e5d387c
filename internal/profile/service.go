// Package profile updates the signed-in user's account
package profile

import (
	"context"

	"duvidapp/internal"
	"duvidapp/internal/errors"
	"duvidapp/internal/notify"
	"duvidapp/internal/remote"
	"duvidapp/internal/validation"
	"duvidapp/models"
	"duvidapp/ports"
)

// Backend is the part of the remote API the profile service needs
type Backend interface {
	UpdateUser(ctx context.Context, token, userID string, req remote.UpdateUserRequest) (*models.User, error)
}

// Session is the session view the service needs: it reads the identity and is
// allowed to refresh the cached profile.
type Session interface {
	ports.SessionReader
	UpdateUser(ctx context.Context, updated models.User) error
}

// UpdateInput is the profile form; nil or blank fields are left unchanged
type UpdateInput struct {
	Name            *string
	Email           *string
	Password        *string
	CurrentPassword *string
}

// Service performs profile updates
type Service struct {
	backend   Backend
	session   Session
	notifier  ports.Notifier
	validator *validation.Validator
	logger    *internal.Logger
}

// NewService creates a profile service
func NewService(backend Backend, session Session, notifier ports.Notifier, logger *internal.Logger) *Service {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Service{
		backend:   backend,
		session:   session,
		notifier:  notifier,
		validator: validation.Default(),
		logger:    logger.WithField("component", "profile"),
	}
}

// Update sends the changed fields to the backend and refreshes the session's
// copy of the user. An empty form is a no-op.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	form, err := s.validator.Profile(in.Name, in.Email, in.Password, in.CurrentPassword)
	if err != nil {
		return err
	}
	if form.Empty() {
		return nil
	}

	token := s.session.Token()
	user, ok := s.session.User()
	if token == "" || !ok {
		return notify.ReportError(s.notifier, errors.Unauthenticated("sessão expirada, faça login novamente"), "")
	}

	stored, err := s.backend.UpdateUser(ctx, token, user.ID, remote.UpdateUserRequest{
		Name:            form.Name,
		Email:           form.Email,
		Password:        form.Password,
		CurrentPassword: form.CurrentPassword,
	})
	if err != nil {
		s.logger.Warn("[Profile] Update of %s failed: %v", user.ID, err)
		return notify.ReportError(s.notifier, err, "Falha ao atualizar o perfil.")
	}

	updated := models.User{ID: user.ID}
	if stored != nil {
		updated = *stored
		updated.ID = user.ID
	} else {
		if form.Name != nil {
			updated.Name = *form.Name
		}
		if form.Email != nil {
			updated.Email = *form.Email
		}
	}
	if err := s.session.UpdateUser(ctx, updated); err != nil {
		return notify.ReportError(s.notifier, err, "Falha ao atualizar o perfil.")
	}

	s.notifier.ShowToast("Perfil atualizado com sucesso!", ports.SeveritySuccess)
	return nil
}
