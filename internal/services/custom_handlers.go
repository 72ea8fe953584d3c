package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"applens-copilot/internal/constants"
	"applens-copilot/internal/models"
)

// CompletionHandler customizes a prepared completion request for one chat
// identifier. A handler may mutate opts in place, or return a non-nil
// response to short-circuit the model call entirely.
type CompletionHandler func(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage, opts *models.ExtendedChatCompletionsOptions) (*models.ChatResponse, error)

func defaultCompletionHandlers() map[string]CompletionHandler {
	return map[string]CompletionHandler{
		constants.ChatIdentifierDetectorCopilot: handleDetectorCopilot,
	}
}

// handleDetectorCopilot condenses raw detector output in the latest user turn
// into the compact prompt form. Messages that are not detector JSON pass
// through untouched.
func handleDetectorCopilot(_ context.Context, _ *models.ChatMetaData, _ []models.ChatMessage, opts *models.ExtendedChatCompletionsOptions) (*models.ChatResponse, error) {
	for i := len(opts.Messages) - 1; i >= 0; i-- {
		msg := &opts.Messages[i]
		if msg.Role != models.ChatRoleUser {
			continue
		}

		trimmed := strings.TrimSpace(msg.Content)
		if !strings.HasPrefix(trimmed, "{") {
			return nil, nil
		}

		var response models.DetectorResponse
		if err := json.Unmarshal([]byte(trimmed), &response); err != nil {
			return nil, nil
		}

		condensed, err := models.BuildDetectorPromptJSON(&response)
		if err != nil {
			log.Printf("detector output condensation failed: %v", err)
			return nil, nil
		}
		msg.Content = condensed
		return nil, nil
	}
	return nil, nil
}
