package llm

import (
	"context"

	"applens-copilot/internal/models"
)

// TextCompletionPayload is a single-prompt completion request, used for the
// composite-question generation path.
type TextCompletionPayload struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

// StreamCallback receives one incremental content delta. Returning an error
// aborts the stream.
type StreamCallback func(content string) error

// Client defines the interface for LLM interactions.
type Client interface {
	// ChatComplete runs a blocking chat completion for the resolved options.
	// model selects a non-default deployment when non-empty.
	ChatComplete(ctx context.Context, opts *models.ExtendedChatCompletionsOptions, model string) (*models.ChatResponse, error)

	// StreamChatComplete streams a chat completion, invoking onDelta per
	// content chunk, and returns the finish reason reported by the provider.
	StreamChatComplete(ctx context.Context, opts *models.ExtendedChatCompletionsOptions, model string, onDelta StreamCallback) (string, error)

	// TextComplete runs a raw single-prompt completion.
	TextComplete(ctx context.Context, payload TextCompletionPayload) (*models.ChatResponse, error)

	// Embed converts text into the vector used for similarity search.
	Embed(ctx context.Context, text string) ([]float32, error)

	GetModelInfo() ModelInfo
}

// ModelInfo contains information about the LLM model.
type ModelInfo struct {
	Name                string
	Provider            string
	MaxCompletionTokens int
}

// Config holds configuration for LLM clients.
type Config struct {
	Provider            string
	Endpoint            string
	APIKey              string
	Model               string
	FallbackModel       string
	TextCompletionModel string
	EmbeddingModel      string
	MaxCompletionTokens int
	Temperature         float64
}
