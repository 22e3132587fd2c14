// internal/httpx/params.go
package httpx

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// PathParam returns the chi URL parameter name in decoded form. chi matches
// against r.URL.RawPath when the request has one and against the already
// decoded r.URL.Path otherwise, so only the first case needs unescaping.
func PathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
