// internal/membership/handler.go
package membership

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"librarium/internal/httpx"
	"librarium/internal/session"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the member routes. Registration is an admin operation.
func (h *Handler) Register(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/user/me", h.HandleMe)
	r.With(requireAdmin).Post("/members", h.HandleRegister)
}

// HandleMe reports the session of the caller. Anonymous callers get
// {"user": null, "isAdmin": false}.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, session.FromContext(r.Context()))
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	member, err := h.service.RegisterMember(r.Context(), req.Email, req.Name, req.Role)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusCreated, map[string]any{"member": member})
	case errors.Is(err, ErrInvalidMember):
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_MEMBER", err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		httpx.JSONError(w, http.StatusConflict, "DUPLICATE_EMAIL", err.Error())
	default:
		slog.ErrorContext(r.Context(), "member registration failed", "err", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
