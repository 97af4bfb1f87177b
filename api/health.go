package api

import (
	"net/http"
)

// handleLiveness reports process liveness only.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness reports whether the pipeline can serve queries; an
// unreachable store makes the instance not ready.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	stats := s.rag.Stats(r.Context())
	if stats.Store.Error != "" {
		writeJSON(w, s.logger, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"store":  stats.Store.Error,
		})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ready"})
}
