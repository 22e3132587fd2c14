// internal/catalog/service.go
package catalog

import (
	"context"
)

// Service defines the interface for the catalog service.
type Service interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, isbn string) (*Book, error)
	AddBook(ctx context.Context, book Book) (*Book, error)
	UpdateBook(ctx context.Context, isbn string, update BookUpdate) (*Book, error)
	DeleteBook(ctx context.Context, isbn string) error
}
