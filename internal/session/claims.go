package session

import (
	"time"

	"duvidapp/internal/errors"
	"duvidapp/models"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is the payload the backend signs into access tokens
type tokenClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// decodeToken reads the user and expiry out of a bearer token. The signature is
// not checked here; the backend verifies it on every request.
func decodeToken(raw string) (models.User, time.Time, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return models.User{}, time.Time{}, errors.Wrap(err, "failed to decode access token")
	}
	if claims.Subject == "" {
		return models.User{}, time.Time{}, errors.InvalidInput("access token has no subject")
	}
	if claims.ExpiresAt == nil {
		return models.User{}, time.Time{}, errors.InvalidInput("access token has no expiry")
	}

	user := models.User{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  models.RoleFromBackend(claims.Role),
	}
	return user, claims.ExpiresAt.Time, nil
}
