// Package booklist is the view-model behind the book list page: the full
// catalog with client-side pagination, the signed-in member's borrowed
// books, and the confirmation gate in front of deletes.
package booklist

import (
	"slices"

	"librarium/internal/catalog"
)

// AllRows is the page size that shows the whole catalog on one page.
const AllRows = 0

// DefaultPageSize is the page size of a fresh view.
const DefaultPageSize = 10

// PageSizes are the page sizes offered to the user.
var PageSizes = []int{5, 10, 25, AllRows}

// State is everything the page shows. It is owned by one View and rebuilt
// from the backend on every fetch.
type State struct {
	Books    []catalog.Book
	Borrowed []catalog.Book

	// PendingISBN is the delete target. It is only meaningful while
	// ModalOpen is set.
	PendingISBN string
	ModalOpen   bool

	Page     int
	PageSize int
}

// NewState returns the empty state of a fresh view.
func NewState(pageSize int) State {
	if pageSize < 0 {
		pageSize = AllRows
	}
	return State{Books: []catalog.Book{}, Borrowed: []catalog.Book{}, PageSize: pageSize}
}

// Visible returns the rows of the current page.
func (s State) Visible() []catalog.Book {
	return VisibleBooks(s.Books, s.Page, s.PageSize)
}

func (s State) clone() State {
	s.Books = slices.Clone(s.Books)
	s.Borrowed = slices.Clone(s.Borrowed)
	return s
}

// VisibleBooks returns books[page*size : page*size+size], clamped to the
// bounds of books. A size of AllRows (or less) returns every book and a
// negative page is treated as the first one. It never panics.
func VisibleBooks(books []catalog.Book, page, size int) []catalog.Book {
	if size <= AllRows {
		return books
	}
	if page < 0 {
		page = 0
	}
	n := len(books)
	if page > n/size {
		return books[n:]
	}
	start := page * size
	end := min(start+size, n)
	return books[start:end]
}

// PageCount is the number of pages needed to show n books, at least one.
func PageCount(n, size int) int {
	if size <= AllRows || n == 0 {
		return 1
	}
	return (n + size - 1) / size
}
