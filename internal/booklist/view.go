// internal/booklist/view.go
package booklist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"librarium/internal/catalog"
	"librarium/internal/session"
)

// Client is the part of the catalog backend the view talks to.
type Client interface {
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	ListBorrowedBooks(ctx context.Context) ([]catalog.Book, error)
	DeleteBook(ctx context.Context, isbn string) (bool, error)
}

var fetchFailures metric.Int64Counter

func init() {
	var err error
	fetchFailures, err = otel.Meter("librarium/booklist").Int64Counter("booklist.fetch.failures",
		metric.WithDescription("Failed backend calls made by book list views"))
	if err != nil {
		slog.Warn("booklist metrics unavailable", "err", err)
	}
}

// View is the book list of one session. Every handler runs under mu, so
// events on one view are applied one at a time. Backend calls made during
// Activate run outside the lock and apply their result under it.
type View struct {
	mu        sync.Mutex
	client    Client
	session   session.Session
	state     State
	formToken string

	// Bumped on every fetch of the respective list. A fetch result is
	// applied only if no newer fetch of the same list has started since.
	booksGen    uint64
	borrowedGen uint64
}

// NewView builds the view of s. The session is fixed for the lifetime of
// the view; a different user gets a different view.
func NewView(client Client, s session.Session, pageSize int) *View {
	return &View{client: client, session: s, state: NewState(pageSize), formToken: uuid.NewString()}
}

// FormToken is the random value every form of this view must echo back.
// It never changes for the lifetime of the view.
func (v *View) FormToken() string {
	return v.formToken
}

// Session returns the session the view was built for.
func (v *View) Session() session.Session {
	return v.session
}

// UseClient swaps the backend client, e.g. when the same user comes back
// with a fresh token.
func (v *View) UseClient(c Client) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.client = c
}

// State returns a copy of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// Activate loads the catalog and the borrowed books concurrently. Each list
// replaces its own part of the state when its fetch succeeds; a failed fetch
// is logged and the previous list is kept.
func (v *View) Activate(ctx context.Context) {
	v.mu.Lock()
	v.booksGen++
	v.borrowedGen++
	booksGen, borrowedGen := v.booksGen, v.borrowedGen
	client := v.client
	v.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		books, err := client.ListBooks(ctx)
		if err != nil {
			logFailure(ctx, "list_books", "", err)
			return nil
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if booksGen == v.booksGen {
			v.state.Books = nonNil(books)
		}
		return nil
	})
	g.Go(func() error {
		books, err := client.ListBorrowedBooks(ctx)
		if err != nil {
			logFailure(ctx, "list_borrowed_books", "", err)
			return nil
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if borrowedGen == v.borrowedGen {
			v.state.Borrowed = nonNil(books)
		}
		return nil
	})
	_ = g.Wait()
}

// SetPage moves to page p. Negative pages are clamped to the first page.
func (v *View) SetPage(p int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Page = max(p, 0)
}

// SetPageSize changes the page size and returns to the first page. Sizes
// below zero mean AllRows.
func (v *View) SetPageSize(size int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.PageSize = max(size, AllRows)
	v.state.Page = 0
}

// RequestDelete opens the confirmation dialog for isbn. It is ignored for
// sessions that are not admin.
func (v *View) RequestDelete(isbn string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.session.IsAdmin {
		slog.Warn("delete requested by non-admin session", "user_id", v.session.UserID(), "isbn", isbn)
		return
	}
	v.state.PendingISBN = isbn
	v.state.ModalOpen = true
}

// CancelDelete closes the dialog. The pending target is left as is.
func (v *View) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.ModalOpen = false
}

// ConfirmDelete deletes the pending book, then re-fetches the catalog, then
// closes the dialog and clears the target. It does nothing unless the dialog
// is open on a target and the catalog is non-empty. When the delete call
// fails the failure is logged and the dialog stays open. Any answer from the
// backend counts as an acknowledgement, including one with success unset.
//
// The lock is held throughout, so no other event on this view interleaves
// with the delete and its re-fetch.
func (v *View) ConfirmDelete(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	isbn := v.state.PendingISBN
	if !v.state.ModalOpen || isbn == "" || len(v.state.Books) == 0 {
		return
	}

	ok, err := v.client.DeleteBook(ctx, isbn)
	if err != nil {
		logFailure(ctx, "delete_book", isbn, err)
		return
	}
	if !ok {
		slog.WarnContext(ctx, "delete acknowledged without success", "isbn", isbn)
	}

	v.booksGen++
	books, err := v.client.ListBooks(ctx)
	if err != nil {
		logFailure(ctx, "list_books", "", err)
	} else {
		v.state.Books = nonNil(books)
	}

	v.state.ModalOpen = false
	v.state.PendingISBN = ""
}

func logFailure(ctx context.Context, op, isbn string, err error) {
	attrs := []any{"op", op, "err", err}
	if isbn != "" {
		attrs = append(attrs, "isbn", isbn)
	}
	slog.ErrorContext(ctx, "book list backend call failed", attrs...)
	if fetchFailures != nil {
		fetchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

func nonNil(books []catalog.Book) []catalog.Book {
	if books == nil {
		return []catalog.Book{}
	}
	return books
}
