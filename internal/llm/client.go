// Package llm talks to a model serving endpoint. The ServingClient resolves
// a bearer credential, posts a chat payload to the endpoint's invocation
// paths in order, and normalizes the several reply shapes serving endpoints
// produce into plain text.
package llm

import (
	"context"
	"encoding/json"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// CompletionResponse is the normalized result of a completion.
type CompletionResponse struct {
	Content  string          `json:"content"`
	Raw      json.RawMessage `json:"raw,omitempty"` // provider payload as received
	Path     string          `json:"path,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
}

// Client is the interface model backends implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the backend name.
	Name() string
}
