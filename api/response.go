package api

import (
	"encoding/json"
	"net/http"

	"github.com/obelisk-rag/obelisk/internal/log"
)

// errorBody is the JSON error envelope, shaped like the OpenAI API's so
// existing clients can parse failures from any endpoint.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Type = errorType(status)
	writeJSON(w, logger, status, body)
}

func errorType(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found_error"
	case status >= 400 && status < 500:
		return "invalid_request_error"
	default:
		return "server_error"
	}
}
