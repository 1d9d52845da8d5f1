package server

import "net/http"

// handleSession handles GET /api/session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Session.Snapshot())
}

// handleSessionReset handles POST /api/session/reset.
func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.config.Session.Reset()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "resetting"})
}

// handleSessionRetry handles POST /api/session/retry.
func (s *Server) handleSessionRetry(w http.ResponseWriter, r *http.Request) {
	s.config.Session.Retry()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}
