// Package llm provides model backend adapters.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion, including image encoding
// - Endpoint resolution (base URL, tunnel)
//
// Model, max tokens and temperature are fixed when the provider is built.
// No adapter retries; transport errors are returned to the caller.
package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the concrete API model identifier.
	Model() string

	// Chat sends one chat completion request. An empty system prompt is omitted.
	Chat(ctx context.Context, system string, messages []ChatMessage) (LLMResponse, error)
}
