// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"librarium/internal/eventstore"
	"librarium/internal/session"
)

const aggregateType = "member"

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sqlx.DB
}

// NewService creates a new membership service instance.
func NewService(es *eventstore.EventStore, db *sqlx.DB) Service {
	return &service{
		eventStore: es,
		db:         db,
	}
}

// RegisterMember creates a new member.
func (s *service) RegisterMember(ctx context.Context, email, name, role string) (*Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if role == "" {
		role = session.RoleMember
	}
	if err := validate(email, name, role); err != nil {
		return nil, err
	}

	id := uuid.New()
	event, err := eventstore.NewEvent("MemberRegistered", MemberRegisteredEvent{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
	})
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	member := &Member{}
	err = tx.GetContext(ctx, member, `
		INSERT INTO members (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, role, created_at`,
		id, email, name, role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	if err := s.eventStore.Append(ctx, tx, id.String(), aggregateType, 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return member, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	member := &Member{}
	err := s.db.GetContext(ctx, member,
		`SELECT id, email, name, role, created_at FROM members WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		return nil, fmt.Errorf("failed to get member from read model: %w", err)
	}
	return member, nil
}

func (s *service) LookupUser(ctx context.Context, id string) (session.User, error) {
	memberID, err := uuid.Parse(id)
	if err != nil {
		return session.User{}, fmt.Errorf("%w: malformed id %q", ErrMemberNotFound, id)
	}
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return session.User{}, err
	}
	return member.User(), nil
}
