package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/booklist"
	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/clients"
	"librarium/internal/httpx"
	"librarium/internal/membership"
	"librarium/internal/session"
)

const jwtSecret = "wire-test-secret"

// memoryCatalog is an in-memory catalog.Service.
type memoryCatalog struct {
	mu    sync.Mutex
	books []catalog.Book
}

func (m *memoryCatalog) ListBooks(context.Context) ([]catalog.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.books), nil
}

func (m *memoryCatalog) GetBook(_ context.Context, isbn string) (*catalog.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ISBN == isbn {
			return &b, nil
		}
	}
	return nil, catalog.ErrBookNotFound
}

func (m *memoryCatalog) AddBook(_ context.Context, b catalog.Book) (*catalog.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = append(m.books, b)
	return &b, nil
}

func (m *memoryCatalog) UpdateBook(context.Context, string, catalog.BookUpdate) (*catalog.Book, error) {
	return nil, catalog.ErrInvalidBook
}

func (m *memoryCatalog) DeleteBook(_ context.Context, isbn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.books, func(b catalog.Book) bool { return b.ISBN == isbn })
	if i < 0 {
		return catalog.ErrBookNotFound
	}
	m.books = slices.Delete(m.books, i, i+1)
	return nil
}

// memoryLoans is an in-memory circulation.Service.
type memoryLoans struct {
	borrowed map[uuid.UUID][]catalog.Book
}

func (m *memoryLoans) BorrowBook(context.Context, uuid.UUID, string) (*circulation.BorrowRecord, error) {
	return nil, circulation.ErrNotAvailable
}

func (m *memoryLoans) ReturnBook(context.Context, uuid.UUID, string) error {
	return circulation.ErrNotBorrowed
}

func (m *memoryLoans) ListBorrowedBooks(_ context.Context, id uuid.UUID) ([]catalog.Book, error) {
	return append([]catalog.Book{}, m.borrowed[id]...), nil
}

type memoryMembers map[string]session.User

func (m memoryMembers) RegisterMember(context.Context, string, string, string) (*membership.Member, error) {
	return nil, membership.ErrInvalidMember
}

func (m memoryMembers) GetMember(context.Context, uuid.UUID) (*membership.Member, error) {
	return nil, membership.ErrMemberNotFound
}

func (m memoryMembers) LookupUser(_ context.Context, id string) (session.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return session.User{}, membership.ErrMemberNotFound
}

// TestWire runs the page server against the real backend handlers over HTTP.
func TestWire(t *testing.T) {
	adminID, memberID := uuid.New(), uuid.New()
	members := memoryMembers{
		adminID.String():  {ID: adminID.String(), Name: "Admin", Role: session.RoleAdmin},
		memberID.String(): {ID: memberID.String(), Name: "Member", Role: session.RoleMember},
	}
	books := &memoryCatalog{books: []catalog.Book{
		{ISBN: "A", Name: "Foo", Category: "Fiction", Quantity: 2, AvailableQuantity: 1, Price: 250.5},
		{ISBN: "B", Name: "Bar", Category: "Poetry", Quantity: 1, AvailableQuantity: 1, Price: 99},
	}}
	loans := &memoryLoans{borrowed: map[uuid.UUID][]catalog.Book{memberID: {books.books[0]}}}

	api := chi.NewRouter()
	api.Route("/v1", func(r chi.Router) {
		r.Use(session.Resolve(jwtSecret, members, httpx.WriteSessionError))
		requireAdmin := session.RequireAdmin(httpx.WriteSessionError)
		catalog.NewHandler(books).Register(r, requireAdmin)
		circulation.NewHandler(loans).Register(r, session.RequireUser(httpx.WriteSessionError))
		membership.NewHandler(members).Register(r, requireAdmin)
	})
	backendSrv := httptest.NewServer(api)
	t.Cleanup(backendSrv.Close)

	base := clients.NewCatalogClient(backendSrv.URL)
	pages := NewServer(
		clients.NewSessionClient(backendSrv.URL),
		func(token string) booklist.Client { return base.WithToken(token) },
		NewRegistry(booklist.DefaultPageSize, time.Hour),
	).Routes()

	adminToken, err := session.GenerateToken(jwtSecret, adminID.String(), session.RoleAdmin, time.Hour)
	require.NoError(t, err)
	memberToken, err := session.GenerateToken(jwtSecret, memberID.String(), session.RoleMember, time.Hour)
	require.NoError(t, err)

	t.Run("member sees borrowed books and no admin controls", func(t *testing.T) {
		body := newBrowser(t, pages, memberToken).get("/books")
		assert.Contains(t, body, "₹250.5")
		assert.Contains(t, body, "Borrowed Books")
		assert.Equal(t, 1, strings.Count(body, `class="borrowed-row"`))
		assert.NotContains(t, body, "Add Book")
	})

	t.Run("admin deletes through the dialog", func(t *testing.T) {
		admin := newBrowser(t, pages, adminToken)
		admin.get("/books")
		admin.post("/books/B/delete", nil)
		admin.post("/books/delete/confirm", nil)

		remaining, err := books.ListBooks(context.Background())
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "A", remaining[0].ISBN)

		body := admin.get("/books")
		assert.NotContains(t, body, "Are you sure?")
		assert.Equal(t, 1, strings.Count(body, `class="book-row"`))
	})

	t.Run("member token cannot delete through the API", func(t *testing.T) {
		_, err := base.WithToken(memberToken).DeleteBook(context.Background(), "A")
		assert.True(t, clients.IsStatus(err, http.StatusForbidden))
	})

	t.Run("unknown isbn is a 404", func(t *testing.T) {
		_, err := base.WithToken(adminToken).DeleteBook(context.Background(), "nope")
		assert.True(t, clients.IsStatus(err, http.StatusNotFound))
	})

	t.Run("isbns with escapes reach the backend intact", func(t *testing.T) {
		for _, isbn := range []string{"X%41", "c/d"} {
			_, err := books.AddBook(context.Background(), catalog.Book{ISBN: isbn, Name: "Odd"})
			require.NoError(t, err)
		}
		_, err := books.AddBook(context.Background(), catalog.Book{ISBN: "XA", Name: "Decoy"})
		require.NoError(t, err)

		for _, isbn := range []string{"X%41", "c/d"} {
			ok, err := base.WithToken(adminToken).DeleteBook(context.Background(), isbn)
			require.NoError(t, err, isbn)
			assert.True(t, ok)
		}

		_, err = books.GetBook(context.Background(), "XA")
		assert.NoError(t, err)
		_, err = books.GetBook(context.Background(), "X%41")
		assert.ErrorIs(t, err, catalog.ErrBookNotFound)
	})
}
