package dtos

import (
	"applens-copilot/internal/models"
	"applens-copilot/pkg/llm"
)

// RequestChatPayload is the body of both blocking and streamed chat
// completion calls.
type RequestChatPayload struct {
	MetaData models.ChatMetaData  `json:"metadata" binding:"required"`
	Messages []models.ChatMessage `json:"messages" binding:"required"`
}

// TextCompletionRequest wraps a raw single-prompt completion.
type TextCompletionRequest struct {
	Payload llm.TextCompletionPayload `json:"payload" binding:"required"`
}

// EnabledResponse reports the outcome of an availability check.
type EnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// ChatCompletionResponse is the blocking completion result.
type ChatCompletionResponse struct {
	Text         string   `json:"text"`
	FinishReason string   `json:"finishReason"`
	Truncated    bool     `json:"truncated"`
	FeedbackIDs  []string `json:"feedbackIds,omitempty"`
}

// NewChatCompletionResponse projects a model response onto the wire shape.
func NewChatCompletionResponse(resp *models.ChatResponse) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		Text:         resp.Text,
		FinishReason: resp.FinishReason,
		Truncated:    resp.Truncated(),
		FeedbackIDs:  resp.FeedbackIDs,
	}
}
