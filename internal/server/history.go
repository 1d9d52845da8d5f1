package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/signlingo/internal/store"
)

const defaultHistoryLimit = 50

type historyResponse struct {
	Attempt       *store.Attempt        `json:"attempt"`
	Confirmations []*store.Confirmation `json:"confirmations"`
}

// handleListHistory handles GET /api/history?limit=N.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	attempts, err := s.config.Store.Attempts().List(limit)
	if err != nil {
		s.log.Error("list attempts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if attempts == nil {
		attempts = []*store.Attempt{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

// handleGetHistory handles GET /api/history/{id}.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	attempt, err := s.config.Store.Attempts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "attempt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get attempt")
		return
	}

	confirmations, err := s.config.Store.Confirmations().ListByAttempt(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get confirmations")
		return
	}
	if confirmations == nil {
		confirmations = []*store.Confirmation{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Attempt: attempt, Confirmations: confirmations})
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.config.Store.Attempts().Stats()
	if err != nil {
		s.log.Error("attempt stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
