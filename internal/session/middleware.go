// internal/session/middleware.go
package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// UserLookup resolves a token subject to the member it belongs to. The role
// on the member record is authoritative, not the one in the token.
type UserLookup interface {
	LookupUser(ctx context.Context, id string) (User, error)
}

// ErrorWriter renders an error response; the HTTP layer supplies it so this
// package stays free of response formatting.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// BearerToken extracts the token from the Authorization header or, failing
// that, from the "token" cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// Resolve attaches a Session to every request. Requests without a token get
// an anonymous session; requests with a bad token are rejected.
func Resolve(secret string, users UserLookup, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), Anonymous())))
				return
			}

			claims, err := ParseToken(secret, token)
			if err != nil {
				writeErr(w, r, ErrUnauthenticated)
				return
			}
			user, err := users.LookupUser(r.Context(), claims.Sub)
			if err != nil {
				slog.Warn("session lookup failed", "user_id", claims.Sub, "err", err)
				writeErr(w, r, ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), ForUser(user))))
		})
	}
}

// RequireUser rejects anonymous sessions.
func RequireUser(writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if FromContext(r.Context()).User == nil {
				writeErr(w, r, ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects every session that is not an admin.
func RequireAdmin(writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			switch {
			case s.User == nil:
				writeErr(w, r, ErrUnauthenticated)
			case !s.IsAdmin:
				writeErr(w, r, ErrForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
