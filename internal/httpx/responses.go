// internal/httpx/responses.go
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"librarium/internal/session"
)

// ErrorBody is the error payload of every JSON error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

// JSONError writes an ErrorBody.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Error: message, Code: code})
}

// DecodeJSON reads a JSON request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WriteSessionError maps session errors to 401 and 403. It matches
// session.ErrorWriter.
func WriteSessionError(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, session.ErrForbidden) {
		JSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
		return
	}
	JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", session.ErrUnauthenticated.Error())
}
