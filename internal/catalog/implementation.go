// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"librarium/internal/eventstore"
	"librarium/internal/session"
)

const aggregateType = "book"

const bookColumns = `isbn, name, category, quantity, available_quantity, price, created_at, updated_at`

// service implements the Service interface.
type service struct {
	db           *sqlx.DB
	eventStore   *eventstore.EventStore
	tracer       trace.Tracer
	booksDeleted metric.Int64Counter
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, es *eventstore.EventStore) Service {
	deleted, err := otel.Meter("librarium/catalog").Int64Counter("catalog.books.deleted",
		metric.WithDescription("Books removed from the catalog"))
	if err != nil {
		slog.Warn("catalog metrics unavailable", "err", err)
	}
	return &service{
		db:           db,
		eventStore:   es,
		tracer:       otel.Tracer("librarium/catalog"),
		booksDeleted: deleted,
	}
}

// ListBooks returns the whole catalog in insertion order.
func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list_books")
	defer span.End()

	books := []Book{}
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at, isbn`
	if err := s.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	span.SetAttributes(attribute.Int("books.count", len(books)))
	return books, nil
}

// GetBook retrieves a book by its ISBN.
func (s *service) GetBook(ctx context.Context, isbn string) (*Book, error) {
	book := &Book{}
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`
	if err := s.db.GetContext(ctx, book, query, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
		}
		return nil, fmt.Errorf("get book %s: %w", isbn, err)
	}
	return book, nil
}

// AddBook inserts a new book with every copy available.
func (s *service) AddBook(ctx context.Context, book Book) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_book",
		trace.WithAttributes(attribute.String("book.isbn", book.ISBN)))
	defer span.End()

	book.AvailableQuantity = book.Quantity
	if err := book.Validate(); err != nil {
		return nil, err
	}

	event, err := eventstore.NewEvent("BookAdded", BookAddedEvent{
		ISBN:     book.ISBN,
		Name:     book.Name,
		Category: book.Category,
		Quantity: book.Quantity,
		Price:    book.Price,
	})
	if err != nil {
		return nil, err
	}

	created := &Book{}
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, created, `
			INSERT INTO books (isbn, name, category, quantity, available_quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+bookColumns,
			book.ISBN, book.Name, book.Category, book.Quantity, book.AvailableQuantity, book.Price)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("%w: %s", ErrDuplicateISBN, book.ISBN)
			}
			return fmt.Errorf("insert book: %w", err)
		}
		return s.appendEvent(ctx, tx, book.ISBN, event)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateBook applies a partial edit under a row lock.
func (s *service) UpdateBook(ctx context.Context, isbn string, update BookUpdate) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_book",
		trace.WithAttributes(attribute.String("book.isbn", isbn)))
	defer span.End()

	updated := &Book{}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockBook(ctx, tx, isbn)
		if err != nil {
			return err
		}
		next, err := update.Apply(*current)
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, updated, `
			UPDATE books
			SET name = $1, category = $2, quantity = $3, available_quantity = $4, price = $5, updated_at = NOW()
			WHERE isbn = $6
			RETURNING `+bookColumns,
			next.Name, next.Category, next.Quantity, next.AvailableQuantity, next.Price, isbn)
		if err != nil {
			return fmt.Errorf("update book: %w", err)
		}

		event, err := eventstore.NewEvent("BookUpdated", BookUpdatedEvent{
			ISBN:              isbn,
			Name:              next.Name,
			Category:          next.Category,
			Quantity:          next.Quantity,
			AvailableQuantity: next.AvailableQuantity,
			Price:             next.Price,
		})
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, isbn, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a book that has no open loans.
func (s *service) DeleteBook(ctx context.Context, isbn string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.delete_book",
		trace.WithAttributes(attribute.String("book.isbn", isbn)))
	defer span.End()

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockBook(ctx, tx, isbn); err != nil {
			return err
		}

		var openLoans int
		err := tx.GetContext(ctx, &openLoans,
			`SELECT COUNT(*) FROM borrow_records WHERE isbn = $1 AND returned_at IS NULL`, isbn)
		if err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if openLoans > 0 {
			return fmt.Errorf("%w: %d open loans for %s", ErrBookOnLoan, openLoans, isbn)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE isbn = $1`, isbn); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}

		event, err := eventstore.NewEvent("BookDeleted", BookDeletedEvent{
			ISBN:      isbn,
			DeletedBy: session.FromContext(ctx).UserID(),
			DeletedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, isbn, event)
	})
	if err != nil {
		return err
	}

	if s.booksDeleted != nil {
		s.booksDeleted.Add(ctx, 1)
	}
	slog.InfoContext(ctx, "book deleted", "isbn", isbn)
	return nil
}

func lockBook(ctx context.Context, tx *sqlx.Tx, isbn string) (*Book, error) {
	book := &Book{}
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, book, query, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
		}
		return nil, fmt.Errorf("lock book %s: %w", isbn, err)
	}
	return book, nil
}

func (s *service) appendEvent(ctx context.Context, tx *sqlx.Tx, isbn string, event eventstore.Event) error {
	version, err := s.eventStore.CurrentVersion(ctx, tx, isbn)
	if err != nil {
		return err
	}
	if err := s.eventStore.Append(ctx, tx, isbn, aggregateType, version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
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
