// internal/circulation/handler.go
package circulation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"librarium/internal/catalog"
	"librarium/internal/httpx"
	"librarium/internal/session"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the loan routes. Every route acts on the caller's own loans.
func (h *Handler) Register(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/user/borrowed-books", h.HandleBorrowed)
		r.Post("/book/{isbn}/borrow", h.HandleBorrow)
		r.Post("/book/{isbn}/return", h.HandleReturn)
	})
}

func (h *Handler) HandleBorrowed(w http.ResponseWriter, r *http.Request) {
	memberID, ok := callerID(w, r)
	if !ok {
		return
	}
	books, err := h.service.ListBorrowedBooks(r.Context(), memberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	memberID, ok := callerID(w, r)
	if !ok {
		return
	}
	record, err := h.service.BorrowBook(r.Context(), memberID, isbnParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"record": record})
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	memberID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.service.ReturnBook(r.Context(), memberID, isbnParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(session.FromContext(r.Context()).UserID())
	if err != nil {
		httpx.WriteSessionError(w, r, session.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return id, true
}

func isbnParam(r *http.Request) string {
	return httpx.PathParam(r, "isbn")
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrBookNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrNotBorrowed):
		httpx.JSONError(w, http.StatusNotFound, "NOT_BORROWED", err.Error())
	case errors.Is(err, ErrNotAvailable):
		httpx.JSONError(w, http.StatusConflict, "NOT_AVAILABLE", err.Error())
	case errors.Is(err, ErrAlreadyBorrowed):
		httpx.JSONError(w, http.StatusConflict, "ALREADY_BORROWED", err.Error())
	default:
		slog.ErrorContext(r.Context(), "circulation request failed",
			"path", r.URL.Path, "request_id", httpx.RequestIDFrom(r.Context()), "err", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
