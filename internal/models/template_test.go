package models

import "testing"

func TestParseChatTemplateDefaults(t *testing.T) {
	raw := `{
		"systemPrompt": "You are a copilot.",
		"ChatFeedbackSearchSettings": {"minScore": 0.7}
	}`
	template, err := ParseChatTemplate(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if template.SystemPrompt != "You are a copilot." {
		t.Fatalf("unexpected system prompt: %q", template.SystemPrompt)
	}
	if template.DocumentSearchSettings != nil {
		t.Fatalf("absent document settings should stay nil")
	}

	fs := template.ChatFeedbackSearchSettings
	if fs == nil {
		t.Fatalf("feedback settings should be populated")
	}
	if fs.MinScore != 0.7 {
		t.Fatalf("explicit minScore lost: %v", fs.MinScore)
	}
	if fs.NumDocuments != 10 {
		t.Fatalf("default numDocuments not applied: %d", fs.NumDocuments)
	}
	if fs.ContentPlaceholder != "<<FEEDBACK_CONTENT_HERE>>" {
		t.Fatalf("default placeholder not applied: %q", fs.ContentPlaceholder)
	}
}

func TestParseChatTemplateDocumentSettings(t *testing.T) {
	raw := `{
		"systemPrompt": "docs",
		"fewShotExamples": [{"userInput": "q", "chatbotResponse": "a"}],
		"DocumentSearchSettings": {"indexName": "applens-docs", "numDocuments": 5}
	}`
	template, err := ParseChatTemplate(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(template.FewShotExamples) != 1 {
		t.Fatalf("few-shot examples lost")
	}
	ds := template.DocumentSearchSettings
	if ds == nil || ds.IndexName != "applens-docs" || ds.NumDocuments != 5 {
		t.Fatalf("document settings mis-parsed: %+v", ds)
	}
	if ds.MinScore != 0.5 {
		t.Fatalf("default minScore not applied: %v", ds.MinScore)
	}
}

func TestParseChatTemplateInvalid(t *testing.T) {
	if _, err := ParseChatTemplate("{not json"); err == nil {
		t.Fatalf("malformed template should fail to parse")
	}
}

func TestChatFeedbackSearchSettingsClone(t *testing.T) {
	original := NewChatFeedbackSearchSettings()
	clone := original.Clone()
	clone.NumDocuments = 99
	if original.NumDocuments == 99 {
		t.Fatalf("mutating the clone must not touch the original")
	}
}
