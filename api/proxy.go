package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// maxProxyBody caps how much of an /api/chat body is buffered for rewriting.
const maxProxyBody = 10 << 20

// ollamaProxy forwards native Ollama API traffic upstream. Chat requests
// are rewritten on the way through: the vault is queried for context
// matching the latest user message, and the results are injected as a
// system message. Everything else passes through untouched, so native
// clients keep working against the proxy unmodified.
func (s *Server) ollamaProxy(target *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("ollama proxy error", "path", r.URL.Path, "error", err)
		writeError(w, s.logger, http.StatusBadGateway, "upstream unavailable")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/chat" {
			if err := s.injectChatContext(r); err != nil {
				// Context injection is best effort; the request still goes
				// upstream unmodified.
				s.logger.Warn("context injection skipped", "error", err)
			}
		}
		proxy.ServeHTTP(w, r)
	})
}

// ollamaChatBody is the subset of the native chat request the proxy reads
// and rewrites. Unknown fields are preserved via the raw map.
type ollamaChatBody map[string]json.RawMessage

func (s *Server) injectChatContext(r *http.Request) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
	r.Body.Close()
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	restore := func(body []byte) {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Length", fmt.Sprint(len(body)))
	}
	restore(raw)

	var body ollamaChatBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("parsing chat body: %w", err)
	}

	var messages []chatMessage
	if err := json.Unmarshal(body["messages"], &messages); err != nil {
		return fmt.Errorf("parsing messages: %w", err)
	}
	question := lastUserMessage(messages)
	if question == "" {
		return nil
	}

	results, err := s.rag.Retrieve(r.Context(), question, 0)
	if err != nil || len(results) == 0 {
		return err
	}

	var b strings.Builder
	b.WriteString("Use the following documents from the user's notes to answer. " +
		"If they do not contain the answer, say so.\n")
	for i, res := range results {
		fmt.Fprintf(&b, "\nDocument %d:\n%s\n", i+1, res.Content)
	}

	injected := append([]chatMessage{{Role: "system", Content: b.String()}}, messages...)
	encoded, err := json.Marshal(injected)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}
	body["messages"] = encoded

	rewritten, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding chat body: %w", err)
	}
	restore(rewritten)
	return nil
}
