package models

import "strings"

// Role is the domain role of a user
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Backend role vocabulary
const (
	backendRoleAdmin = "admin"
	backendRoleUser  = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// BackendRole maps the domain role onto the backend's role vocabulary
func (r Role) BackendRole() string {
	if r == RoleTeacher {
		return backendRoleAdmin
	}
	return backendRoleUser
}

// Label is the role's display name
func (r Role) Label() string {
	if r == RoleTeacher {
		return "Professor"
	}
	return "Aluno"
}

// RoleFromBackend maps the backend's role vocabulary onto the domain role
func RoleFromBackend(role string) Role {
	switch strings.ToLower(role) {
	case backendRoleAdmin, string(RoleTeacher):
		return RoleTeacher
	default:
		return RoleStudent
	}
}

// User represents the signed-in person
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// IsTeacher reports whether the user holds the privileged role
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// Initials returns up to two upper-case initials for avatar fallbacks
func (u User) Initials() string {
	return Initials(u.Name)
}

// Initials returns up to two upper-case initials of name
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(string([]rune(part)[0])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}
