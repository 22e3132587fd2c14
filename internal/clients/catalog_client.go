// internal/clients/catalog_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"librarium/internal/catalog"
)

// CatalogClient talks to the catalog backend on behalf of one caller.
type CatalogClient struct {
	t     *transport
	token string
}

func NewCatalogClient(baseURL string, opts ...Option) *CatalogClient {
	return &CatalogClient{t: newTransport("catalog", baseURL, opts...)}
}

// WithToken returns a copy of c that authenticates as the owner of token.
// The copy shares the connection pool and circuit breaker of c.
func (c *CatalogClient) WithToken(token string) *CatalogClient {
	return &CatalogClient{t: c.t, token: token}
}

// ListBooks fetches the whole catalog.
func (c *CatalogClient) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	var resp struct {
		Books []catalog.Book `json:"books"`
	}
	if err := c.t.do(ctx, c.token, http.MethodGet, "/v1/book", &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

// ListBorrowedBooks fetches the caller's open loans.
func (c *CatalogClient) ListBorrowedBooks(ctx context.Context) ([]catalog.Book, error) {
	var resp struct {
		Books []catalog.Book `json:"books"`
	}
	if err := c.t.do(ctx, c.token, http.MethodGet, "/v1/user/borrowed-books", &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

// DeleteBook removes a book. A 404 or 403 comes back as an *APIError.
func (c *CatalogClient) DeleteBook(ctx context.Context, isbn string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.t.do(ctx, c.token, http.MethodDelete, "/v1/book/"+url.PathEscape(isbn), &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}
