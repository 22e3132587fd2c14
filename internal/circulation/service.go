// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/google/uuid"

	"librarium/internal/catalog"
)

// Service defines the interface for the circulation service.
type Service interface {
	BorrowBook(ctx context.Context, memberID uuid.UUID, isbn string) (*BorrowRecord, error)
	ReturnBook(ctx context.Context, memberID uuid.UUID, isbn string) error
	// ListBorrowedBooks returns the books the member currently has on loan.
	ListBorrowedBooks(ctx context.Context, memberID uuid.UUID) ([]catalog.Book, error)
}
