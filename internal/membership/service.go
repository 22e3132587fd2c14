// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"

	"librarium/internal/session"
)

// Service defines the interface for the membership service.
type Service interface {
	RegisterMember(ctx context.Context, email, name, role string) (*Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	// LookupUser resolves a session token subject. It satisfies session.UserLookup.
	LookupUser(ctx context.Context, id string) (session.User, error)
}
