package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"

	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/session"
	"github.com/drallgood/bookshelf/internal/view"
)

// shelfView is the payload of /shelves/:publicId
type shelfView struct {
	Bookshelf *models.Bookshelf `json:"bookshelf"`
	Books     []models.Book     `json:"books"`
	Criteria  view.Criteria     `json:"criteria"`
	Summary   view.Summary      `json:"summary"`
}

// sessionView is the payload of /me
type sessionView struct {
	State     string            `json:"state"`
	Bookshelf *models.Bookshelf `json:"bookshelf"`
	Books     []models.Book     `json:"books"`
	Criteria  view.Criteria     `json:"criteria"`
	Summary   view.Summary      `json:"summary"`
	LastError string            `json:"lastError,omitempty"`
}

var errNoSession = &models.APIError{Message: "No bookshelf is open for editing", Code: "NOT_FOUND"}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func criteriaFromRequest(r *http.Request) (view.Criteria, error) {
	q := r.URL.Query()
	return view.ParseCriteria(q.Get("genre"), q.Get("language"), q.Get("status"), q.Get("q"), q.Get("sort"))
}

func (s *Server) handleShelf(w http.ResponseWriter, r *http.Request) {
	publicID := httprouter.ParamsFromContext(r.Context()).ByName("publicId")

	criteria, err := criteriaFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		shelf *models.Bookshelf
		books []models.Book
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		shelf, err = s.api.GetBookshelf(ctx, publicID)
		return err
	})
	g.Go(func() error {
		var err error
		books, err = s.api.ListBooks(ctx, publicID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, r, err)
		return
	}

	derived := view.Derive(books, criteria)
	s.writeData(w, r, http.StatusOK, shelfView{
		Bookshelf: shelf,
		Books:     derived,
		Criteria:  criteria,
		Summary:   view.Summarize(books),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.session == nil {
		s.writeAPIError(w, r, http.StatusNotFound, errNoSession)
		return
	}

	if s.session.CanEdit() && r.URL.Query().Get("refresh") != "" {
		if err := s.session.Refresh(r.Context()); err != nil {
			logger.FromContext(r.Context()).Warn("Session refresh failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	snap := s.session.Snapshot()
	if snap.State == session.Anonymous {
		s.writeAPIError(w, r, http.StatusNotFound, errNoSession)
		return
	}
	out := sessionView{
		State:     snap.State.String(),
		Bookshelf: snap.Bookshelf,
		Books:     view.Derive(snap.Books, criteria),
		Criteria:  criteria,
		Summary:   view.Summarize(snap.Books),
	}
	if snap.LastError != nil {
		out.LastError = snap.LastError.Error()
	}
	s.writeData(w, r, http.StatusOK, out)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeAPIError(w, r, http.StatusNotFound, &models.APIError{Message: "Route not found", Code: "NOT_FOUND"})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeAPIError(w, r, http.StatusMethodNotAllowed, &models.APIError{Message: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
}

func (s *Server) panicHandler(w http.ResponseWriter, r *http.Request, v interface{}) {
	logger.FromContext(r.Context()).Error("Handler panicked", map[string]interface{}{
		"panic": v,
		"path":  r.URL.Path,
	})
	s.writeAPIError(w, r, http.StatusInternalServerError, &models.APIError{Message: "Internal server error", Code: "INTERNAL_ERROR"})
}
