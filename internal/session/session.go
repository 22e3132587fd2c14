// internal/session/session.go
package session

import (
	"context"
	"errors"
)

// Roles a member can hold.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin privileges required")
	ErrInvalidToken    = errors.New("invalid session token")
)

// User is the signed-in member as seen by the views.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Session is the read-only context handed to a view when it is built.
// A nil User is an anonymous visitor.
type Session struct {
	User    *User `json:"user"`
	IsAdmin bool  `json:"isAdmin"`
}

// ForUser builds the session of u, deriving the admin flag from its role.
func ForUser(u User) Session {
	return Session{User: &u, IsAdmin: u.Role == RoleAdmin}
}

// Anonymous is the session of a visitor without a token.
func Anonymous() Session {
	return Session{}
}

// UserID returns the user's id or "" for anonymous sessions.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKey{}).(Session); ok {
		return s
	}
	return Anonymous()
}
