// internal/membership/domain.go
package membership

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"librarium/internal/session"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrDuplicateEmail = errors.New("a member with this email already exists")
	ErrInvalidMember  = errors.New("invalid member")
)

// Member represents a library member.
type Member struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero" db:"created_at"`
}

// User converts the member into the session view of it.
func (m Member) User() session.User {
	return session.User{ID: m.ID.String(), Email: m.Email, Name: m.Name, Role: m.Role}
}

func validate(email, name, role string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidMember, email)
	}
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMember)
	}
	if role != session.RoleAdmin && role != session.RoleMember {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMember, role)
	}
	return nil
}

// MemberRegisteredEvent is published when a new member registers.
type MemberRegisteredEvent struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}
