// internal/circulation/domain.go
package circulation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LoanPeriod is how long a member may keep a borrowed book.
const LoanPeriod = 14 * 24 * time.Hour

var (
	ErrNotAvailable    = errors.New("no copies available")
	ErrAlreadyBorrowed = errors.New("book already borrowed by this member")
	ErrNotBorrowed     = errors.New("book is not borrowed by this member")
)

// BorrowRecord is one loan of one copy of a book to a member.
type BorrowRecord struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	MemberID   uuid.UUID  `json:"memberId" db:"member_id"`
	ISBN       string     `json:"isbn" db:"isbn"`
	BorrowedAt time.Time  `json:"borrowedAt" db:"borrowed_at"`
	DueAt      time.Time  `json:"dueAt" db:"due_at"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
}

// BookBorrowedEvent is published when a book is borrowed.
type BookBorrowedEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	MemberID uuid.UUID `json:"member_id"`
	ISBN     string    `json:"isbn"`
	DueAt    time.Time `json:"due_at"`
}

// BookReturnedEvent is published when a book is returned.
type BookReturnedEvent struct {
	RecordID   uuid.UUID `json:"record_id"`
	MemberID   uuid.UUID `json:"member_id"`
	ISBN       string    `json:"isbn"`
	ReturnedAt time.Time `json:"returned_at"`
}
