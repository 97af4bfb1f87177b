package api

import (
	"net/http"
	"time"
)

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	// Model listing is best effort: an unreachable backend yields an empty
	// catalog, not an error response.
	models, err := s.rag.ListModels(r.Context())
	if err != nil {
		s.logger.Warn("listing models failed", "error", err)
		models = nil
	}

	now := time.Now().Unix()
	list := modelList{Object: "list", Data: make([]modelEntry, 0, len(models))}
	for _, id := range models {
		list.Data = append(list.Data, modelEntry{
			ID:      id,
			Object:  "model",
			Created: now,
			OwnedBy: "obelisk",
		})
	}
	writeJSON(w, s.logger, http.StatusOK, list)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.rag.Stats(r.Context()))
}
