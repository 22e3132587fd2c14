// internal/catalog/handler.go
package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"librarium/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the book routes on r. Mutations go through requireAdmin.
func (h *Handler) Register(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/book", h.HandleList)
	r.Get("/book/{isbn}", h.HandleGet)
	r.With(requireAdmin).Post("/book", h.HandleCreate)
	r.With(requireAdmin).Patch("/book/{isbn}", h.HandleUpdate)
	r.With(requireAdmin).Delete("/book/{isbn}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), isbnParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ISBN     string  `json:"isbn"`
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	book, err := h.service.AddBook(r.Context(), Book{
		ISBN:     req.ISBN,
		Name:     req.Name,
		Category: req.Category,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"book": book})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update BookUpdate
	if err := httpx.DecodeJSON(r, &update); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	book, err := h.service.UpdateBook(r.Context(), isbnParam(r), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBook(r.Context(), isbnParam(r)); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func isbnParam(r *http.Request) string {
	return httpx.PathParam(r, "isbn")
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrInvalidBook):
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_BOOK", err.Error())
	case errors.Is(err, ErrDuplicateISBN):
		httpx.JSONError(w, http.StatusConflict, "DUPLICATE_ISBN", err.Error())
	case errors.Is(err, ErrBookOnLoan):
		httpx.JSONError(w, http.StatusConflict, "BOOK_ON_LOAN", err.Error())
	default:
		slog.ErrorContext(r.Context(), "catalog request failed",
			"path", r.URL.Path, "request_id", httpx.RequestIDFrom(r.Context()), "err", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
