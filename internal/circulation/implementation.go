// internal/circulation/implementation.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"librarium/internal/catalog"
	"librarium/internal/eventstore"
)

const aggregateType = "borrow_record"

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sqlx.DB
	tracer     trace.Tracer
	operations metric.Int64Counter
	now        func() time.Time
}

// NewService creates a new circulation service instance.
func NewService(es *eventstore.EventStore, db *sqlx.DB) Service {
	ops, err := otel.Meter("librarium/circulation").Int64Counter("circulation.operations",
		metric.WithDescription("Borrow and return operations by outcome"))
	if err != nil {
		slog.Warn("circulation metrics unavailable", "err", err)
	}
	return &service{
		eventStore: es,
		db:         db,
		tracer:     otel.Tracer("librarium/circulation"),
		operations: ops,
		now:        time.Now,
	}
}

// BorrowBook lends one copy of isbn to the member for LoanPeriod.
func (s *service) BorrowBook(ctx context.Context, memberID uuid.UUID, isbn string) (*BorrowRecord, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.borrow_book",
		trace.WithAttributes(attribute.String("book.isbn", isbn)))
	defer span.End()

	now := s.now().UTC()
	record := &BorrowRecord{
		ID:         uuid.New(),
		MemberID:   memberID,
		ISBN:       isbn,
		BorrowedAt: now,
		DueAt:      now.Add(LoanPeriod),
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		available, err := lockAvailable(ctx, tx, isbn)
		if err != nil {
			return err
		}
		if available <= 0 {
			return fmt.Errorf("%w: %s", ErrNotAvailable, isbn)
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO borrow_records (id, member_id, isbn, borrowed_at, due_at)
			VALUES (:id, :member_id, :isbn, :borrowed_at, :due_at)`, record)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("%w: %s", ErrAlreadyBorrowed, isbn)
			}
			return fmt.Errorf("insert borrow record: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET available_quantity = available_quantity - 1, updated_at = NOW() WHERE isbn = $1`,
			isbn); err != nil {
			return fmt.Errorf("decrement availability: %w", err)
		}

		event, err := eventstore.NewEvent("BookBorrowed", BookBorrowedEvent{
			RecordID: record.ID,
			MemberID: memberID,
			ISBN:     isbn,
			DueAt:    record.DueAt,
		})
		if err != nil {
			return err
		}
		return s.eventStore.Append(ctx, tx, record.ID.String(), aggregateType, 0, []eventstore.Event{event})
	})
	s.count(ctx, "borrow", err)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ReturnBook closes the member's open loan of isbn.
func (s *service) ReturnBook(ctx context.Context, memberID uuid.UUID, isbn string) error {
	ctx, span := s.tracer.Start(ctx, "circulation.return_book",
		trace.WithAttributes(attribute.String("book.isbn", isbn)))
	defer span.End()

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var recordID uuid.UUID
		err := tx.GetContext(ctx, &recordID, `
			SELECT id FROM borrow_records
			WHERE member_id = $1 AND isbn = $2 AND returned_at IS NULL
			FOR UPDATE`, memberID, isbn)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotBorrowed, isbn)
			}
			return fmt.Errorf("find open loan: %w", err)
		}

		returnedAt := s.now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE borrow_records SET returned_at = $1 WHERE id = $2`, returnedAt, recordID); err != nil {
			return fmt.Errorf("close loan: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET available_quantity = available_quantity + 1, updated_at = NOW() WHERE isbn = $1`,
			isbn); err != nil {
			return fmt.Errorf("increment availability: %w", err)
		}

		event, err := eventstore.NewEvent("BookReturned", BookReturnedEvent{
			RecordID:   recordID,
			MemberID:   memberID,
			ISBN:       isbn,
			ReturnedAt: returnedAt,
		})
		if err != nil {
			return err
		}
		version, err := s.eventStore.CurrentVersion(ctx, tx, recordID.String())
		if err != nil {
			return err
		}
		return s.eventStore.Append(ctx, tx, recordID.String(), aggregateType, version, []eventstore.Event{event})
	})
	s.count(ctx, "return", err)
	return err
}

func (s *service) ListBorrowedBooks(ctx context.Context, memberID uuid.UUID) ([]catalog.Book, error) {
	books := []catalog.Book{}
	err := s.db.SelectContext(ctx, &books, `
		SELECT b.isbn, b.name, b.category, b.quantity, b.available_quantity, b.price, b.created_at, b.updated_at
		FROM borrow_records r
		JOIN books b ON b.isbn = r.isbn
		WHERE r.member_id = $1 AND r.returned_at IS NULL
		ORDER BY r.borrowed_at, b.isbn`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list borrowed books: %w", err)
	}
	return books, nil
}

func lockAvailable(ctx context.Context, tx *sqlx.Tx, isbn string) (int, error) {
	var available int
	err := tx.GetContext(ctx, &available,
		`SELECT available_quantity FROM books WHERE isbn = $1 FOR UPDATE`, isbn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", catalog.ErrBookNotFound, isbn)
		}
		return 0, fmt.Errorf("lock book %s: %w", isbn, err)
	}
	return available, nil
}

func (s *service) count(ctx context.Context, op string, err error) {
	if s.operations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome)))
}

func (s *service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
