// internal/web/server.go
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"librarium/internal/booklist"
	"librarium/internal/clients"
	"librarium/internal/httpx"
	"librarium/internal/session"
)

// VisitorCookie names the cookie that keeps an anonymous visitor on their
// own view.
const VisitorCookie = "visitor"

// FormTokenField is the form field every post must carry. Its value is the
// form token of the caller's view.
const FormTokenField = "form_token"

// SessionSource resolves a caller's token to their session.
type SessionSource interface {
	Me(ctx context.Context, token string) (session.Session, error)
}

// ClientFactory returns the backend client that acts as the owner of token.
type ClientFactory func(token string) booklist.Client

type Server struct {
	sessions SessionSource
	clients  ClientFactory
	views    *Registry
}

func NewServer(sessions SessionSource, newClient ClientFactory, views *Registry) *Server {
	return &Server{sessions: sessions, clients: newClient, views: views}
}

// Routes returns a router serving only the page routes.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register mounts the page routes on r. Every form post must echo the form
// token of the caller's view and redirects back to the list.
func (s *Server) Register(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/books", http.StatusFound)
	})
	r.Get("/books", s.handleList)
	r.Post("/books/page", s.handlePage)
	r.Post("/books/page-size", s.handlePageSize)
	r.Post("/books/{isbn}/delete", s.handleRequestDelete)
	r.Post("/books/delete/confirm", s.handleConfirmDelete)
	r.Post("/books/delete/cancel", s.handleCancelDelete)
}

// view resolves the caller's session and returns their view. Callers the
// backend does not recognise are treated as anonymous.
func (s *Server) view(w http.ResponseWriter, r *http.Request) *booklist.View {
	token := session.BearerToken(r)
	sess, err := s.sessions.Me(r.Context(), token)
	if err != nil {
		level := slog.LevelError
		if clients.IsStatus(err, http.StatusUnauthorized) {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "session lookup failed, continuing as anonymous",
			"request_id", httpx.RequestIDFrom(r.Context()), "err", err)
		sess, token = session.Anonymous(), ""
	}

	var visitor string
	if sess.User == nil {
		visitor = visitorID(w, r)
	}
	v, _ := s.views.View(sess, visitor, s.clients(token))
	return v
}

// formView is view for form posts. It answers 403 and returns false when
// the post does not carry the view's form token.
func (s *Server) formView(w http.ResponseWriter, r *http.Request) (*booklist.View, bool) {
	v := s.view(w, r)
	got := r.PostFormValue(FormTokenField)
	if subtle.ConstantTimeCompare([]byte(got), []byte(v.FormToken())) != 1 {
		slog.WarnContext(r.Context(), "form post without a valid form token",
			"path", r.URL.Path, "request_id", httpx.RequestIDFrom(r.Context()))
		http.Error(w, "invalid form token", http.StatusForbidden)
		return nil, false
	}
	return v, true
}

// visitorID returns the caller's visitor id, issuing a new one when the
// request has none.
func visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(VisitorCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	v.Activate(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := booklist.Render(w, v.State(), v.Session(), v.FormToken()); err != nil {
		slog.ErrorContext(r.Context(), "render book list", "err", err)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}
	page, err := formInt(r, "page")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v.SetPage(page)
	backToList(w, r)
}

func (s *Server) handlePageSize(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}
	size, err := formInt(r, "size")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v.SetPageSize(size)
	backToList(w, r)
}

func (s *Server) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}
	v.RequestDelete(httpx.PathParam(r, "isbn"))
	backToList(w, r)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}
	v.ConfirmDelete(r.Context())
	backToList(w, r)
}

func (s *Server) handleCancelDelete(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}
	v.CancelDelete()
	backToList(w, r)
}

func formInt(r *http.Request, name string) (int, error) {
	raw := r.PostFormValue(name)
	if raw == "" {
		return 0, errors.New("missing form field " + name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("form field " + name + " must be an integer")
	}
	return n, nil
}

func backToList(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}
