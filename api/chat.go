package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/obelisk-rag/obelisk/internal/rag"
)

// chatMessage is one message in an OpenAI-style conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the accepted subset of the OpenAI chat API.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatCompletionResponse is the OpenAI envelope plus a sources extension
// naming the vault documents behind the answer.
type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   rag.Usage              `json:"usage"`
	Sources []rag.Source           `json:"sources,omitempty"`
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Stream {
		writeError(w, s.logger, http.StatusBadRequest, "streaming is not supported")
		return
	}

	question := lastUserMessage(req.Messages)
	if question == "" {
		writeError(w, s.logger, http.StatusBadRequest, "no user message in request")
		return
	}

	var opts []rag.QueryOption
	if req.Model != "" {
		opts = append(opts, rag.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, rag.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, rag.WithMaxTokens(*req.MaxTokens))
	}

	answer, err := s.rag.Query(r.Context(), question, opts...)
	if err != nil {
		writeError(w, s.logger, http.StatusBadGateway, fmt.Sprintf("query failed: %v", err))
		return
	}

	writeJSON(w, s.logger, http.StatusOK, chatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   answer.Model,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: answer.Text},
			FinishReason: "stop",
		}},
		Usage:   answer.Usage,
		Sources: answer.Sources,
	})
}

// lastUserMessage returns the content of the most recent user turn.
func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
