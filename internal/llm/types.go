package llm

import (
	"fmt"
	"strings"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ChatResponse is the non-streaming reply of POST /api/chat.
type ChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// ModelInfo is one entry of GET /api/tags.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, body)
}

// ModelListError is the structured failure of a model listing. Timeout
// distinguishes an unreachable or silent server from every other failure.
type ModelListError struct {
	Timeout bool
	Message string
	Cause   error
}

const modelListTimeoutMessage = "Connection timed out. Check if Ollama is running and the IP is correct."

func (e *ModelListError) Error() string {
	return e.Message
}

func (e *ModelListError) Unwrap() error {
	return e.Cause
}
