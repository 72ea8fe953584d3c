package models

import "encoding/json"

// FewShotExample is one worked user/assistant exchange declared by a
// template, injected between the system prompt and the live conversation.
type FewShotExample struct {
	UserInput       string `json:"userInput"`
	ChatbotResponse string `json:"chatbotResponse"`
}

// ChatTemplate is a parsed prompt template file. SystemPrompt may contain the
// datetime/resource-id placeholders plus the optional document and feedback
// content placeholders declared by the search settings.
type ChatTemplate struct {
	SystemPrompt               string                      `json:"systemPrompt"`
	FewShotExamples            []FewShotExample            `json:"fewShotExamples"`
	DocumentSearchSettings     *DocumentSearchSettings     `json:"DocumentSearchSettings"`
	ChatFeedbackSearchSettings *ChatFeedbackSearchSettings `json:"ChatFeedbackSearchSettings"`
}

// ParseChatTemplate decodes a template file, filling in the search-settings
// defaults for any field the file leaves unset.
func ParseChatTemplate(content string) (*ChatTemplate, error) {
	var raw struct {
		SystemPrompt               string           `json:"systemPrompt"`
		FewShotExamples            []FewShotExample `json:"fewShotExamples"`
		DocumentSearchSettings     *json.RawMessage `json:"DocumentSearchSettings"`
		ChatFeedbackSearchSettings *json.RawMessage `json:"ChatFeedbackSearchSettings"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, err
	}

	t := &ChatTemplate{
		SystemPrompt:    raw.SystemPrompt,
		FewShotExamples: raw.FewShotExamples,
	}

	if raw.DocumentSearchSettings != nil {
		settings := NewDocumentSearchSettings()
		if err := json.Unmarshal(*raw.DocumentSearchSettings, settings); err != nil {
			return nil, err
		}
		t.DocumentSearchSettings = settings
	}

	if raw.ChatFeedbackSearchSettings != nil {
		settings := NewChatFeedbackSearchSettings()
		if err := json.Unmarshal(*raw.ChatFeedbackSearchSettings, settings); err != nil {
			return nil, err
		}
		t.ChatFeedbackSearchSettings = settings
	}

	return t, nil
}
