package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/validation"
)

type envelope struct {
	Data  interface{}      `json:"data"`
	Error *models.APIError `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	js, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, `{"data":null,"error":{"message":"Internal server error","code":"INTERNAL_ERROR"}}`, http.StatusInternalServerError)
		return
	}
	js = append(js, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	s.writeJSON(w, r, status, envelope{Data: data})
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	s.writeJSON(w, r, status, envelope{Error: apiErr})
}

// writeError maps err onto a status code and error envelope
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		s.writeAPIError(w, r, http.StatusBadRequest, &models.APIError{
			Message: "Invalid query parameters",
			Code:    "VALIDATION_ERROR",
			Fields:  fe,
		})
		return
	}

	var apiErr *bookshelf.APIError
	switch {
	case errors.Is(err, bookshelf.ErrNotFound):
		s.writeAPIError(w, r, http.StatusNotFound, &models.APIError{Message: "Bookshelf not found", Code: "NOT_FOUND"})
	case errors.Is(err, bookshelf.ErrUnauthorized):
		s.writeAPIError(w, r, http.StatusUnauthorized, &models.APIError{Message: "Edit token was rejected", Code: "UNAUTHORIZED"})
	case errors.As(err, &apiErr):
		s.writeAPIError(w, r, http.StatusBadGateway, &models.APIError{Message: apiErr.Message, Code: apiErr.Code})
	default:
		logger.FromContext(r.Context()).Error("Upstream request failed", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeAPIError(w, r, http.StatusBadGateway, &models.APIError{Message: "Bookshelf service is unavailable", Code: "UPSTREAM_ERROR"})
	}
}
