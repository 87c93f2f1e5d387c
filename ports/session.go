package ports

import "duvidapp/models"

// SessionReader is the read-only view of the current session that stores use to
// authorize writes. Only the session store may change the token.
type SessionReader interface {
	Token() string
	User() (models.User, bool)
}
