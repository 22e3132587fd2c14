package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type stubUsers map[string]User

func (s stubUsers) LookupUser(_ context.Context, id string) (User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return User{}, errors.New("member not found")
}

func writeStatus(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		w.WriteHeader(http.StatusForbidden)
	default:
		w.WriteHeader(http.StatusUnauthorized)
	}
}

var users = stubUsers{
	"u-1": {ID: "u-1", Name: "Reader", Role: RoleMember},
	"a-1": {ID: "a-1", Name: "Librarian", Role: RoleAdmin},
}

func captureSession(got *Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestForUser(t *testing.T) {
	assert.True(t, ForUser(User{ID: "a", Role: RoleAdmin}).IsAdmin)
	assert.False(t, ForUser(User{ID: "m", Role: RoleMember}).IsAdmin)
	assert.Equal(t, "", Anonymous().UserID())
	assert.Equal(t, "m", ForUser(User{ID: "m"}).UserID())
}

func TestParseToken(t *testing.T) {
	token, err := GenerateToken(secret, "u-1", RoleMember, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Sub)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken(secret, "u-1", RoleMember, -time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Sub: "u-1"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(secret, s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve(t *testing.T) {
	mw := Resolve(secret, users, writeStatus)

	t.Run("anonymous without token", func(t *testing.T) {
		var got Session
		w := httptest.NewRecorder()
		mw(captureSession(&got)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, got.User)
	})

	t.Run("role comes from the member record", func(t *testing.T) {
		token, _ := GenerateToken(secret, "a-1", RoleMember, time.Hour)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		var got Session
		w := httptest.NewRecorder()
		mw(captureSession(&got)).ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got.User)
		assert.True(t, got.IsAdmin)
	})

	t.Run("cookie token", func(t *testing.T) {
		token, _ := GenerateToken(secret, "u-1", RoleMember, time.Hour)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: token})

		var got Session
		w := httptest.NewRecorder()
		mw(captureSession(&got)).ServeHTTP(w, r)

		require.NotNil(t, got.User)
		assert.Equal(t, "u-1", got.User.ID)
		assert.False(t, got.IsAdmin)
	})

	t.Run("invalid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		mw(captureSession(new(Session))).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown member", func(t *testing.T) {
		token, _ := GenerateToken(secret, "ghost", RoleAdmin, time.Hour)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		mw(captureSession(new(Session))).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	guard := RequireAdmin(writeStatus)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name string
		s    Session
		want int
	}{
		{"anonymous", Anonymous(), http.StatusUnauthorized},
		{"member", ForUser(users["u-1"]), http.StatusForbidden},
		{"admin", ForUser(users["a-1"]), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodDelete, "/", nil)
			r = r.WithContext(WithSession(r.Context(), tc.s))
			w := httptest.NewRecorder()
			guard(ok).ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireUser(t *testing.T) {
	guard := RequireUser(writeStatus)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	w := httptest.NewRecorder()
	guard(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithSession(r.Context(), ForUser(users["u-1"])))
	w = httptest.NewRecorder()
	guard(ok).ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
