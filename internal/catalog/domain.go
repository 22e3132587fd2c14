// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateISBN = errors.New("a book with this ISBN already exists")
	ErrInvalidBook   = errors.New("invalid book")
	ErrBookOnLoan    = errors.New("book has copies on loan")
)

// Book is a catalog entry. ISBN is unique across the catalog.
type Book struct {
	ISBN              string    `json:"isbn" db:"isbn"`
	Name              string    `json:"name" db:"name"`
	Category          string    `json:"category" db:"category"`
	Quantity          int       `json:"quantity" db:"quantity"`
	AvailableQuantity int       `json:"availableQuantity" db:"available_quantity"`
	Price             float64   `json:"price" db:"price"`
	CreatedAt         time.Time `json:"createdAt,omitzero" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt,omitzero" db:"updated_at"`
}

// Validate checks the field constraints of a book.
func (b Book) Validate() error {
	switch {
	case strings.TrimSpace(b.ISBN) == "":
		return fmt.Errorf("%w: isbn is required", ErrInvalidBook)
	case strings.TrimSpace(b.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidBook)
	case b.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidBook)
	case b.AvailableQuantity < 0 || b.AvailableQuantity > b.Quantity:
		return fmt.Errorf("%w: available quantity must be between 0 and quantity", ErrInvalidBook)
	case b.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidBook)
	}
	return nil
}

// BookUpdate is a partial edit of a book. Nil fields are left unchanged.
type BookUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// Apply returns b with u applied. Changing the total quantity moves the
// available quantity by the same amount, so copies on loan stay on loan.
func (u BookUpdate) Apply(b Book) (Book, error) {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Price != nil {
		b.Price = *u.Price
	}
	if u.Quantity != nil {
		delta := *u.Quantity - b.Quantity
		b.Quantity = *u.Quantity
		b.AvailableQuantity += delta
		if b.AvailableQuantity < 0 {
			return b, fmt.Errorf("%w: quantity is below the number of copies on loan", ErrInvalidBook)
		}
	}
	return b, b.Validate()
}

// BookAddedEvent is recorded when a book enters the catalog.
type BookAddedEvent struct {
	ISBN     string  `json:"isbn"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// BookUpdatedEvent is recorded when an admin edits a book.
type BookUpdatedEvent struct {
	ISBN              string  `json:"isbn"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Quantity          int     `json:"quantity"`
	AvailableQuantity int     `json:"available_quantity"`
	Price             float64 `json:"price"`
}

// BookDeletedEvent is recorded when a book is removed from the catalog.
type BookDeletedEvent struct {
	ISBN      string    `json:"isbn"`
	DeletedBy string    `json:"deleted_by,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}
