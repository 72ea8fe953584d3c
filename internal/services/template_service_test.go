package services

import "testing"

func TestGetTemplateFallsBackToDefault(t *testing.T) {
	service := newTestTemplateService(t, map[string]string{
		"_default.json": `{"systemPrompt": "default prompt"}`,
		"kustogpt.json": `{"systemPrompt": "kusto prompt"}`,
	})

	template, err := service.GetTemplate("KustoGPT")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if template.SystemPrompt != "kusto prompt" {
		t.Fatalf("identifier lookup should be case-insensitive, got %q", template.SystemPrompt)
	}

	template, err = service.GetTemplate("nosuchcopilot")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if template.SystemPrompt != "default prompt" {
		t.Fatalf("unknown identifier should fall back to default, got %q", template.SystemPrompt)
	}
}

func TestTemplateServiceSkipsMalformedFiles(t *testing.T) {
	service := newTestTemplateService(t, map[string]string{
		"_default.json": `{"systemPrompt": "default prompt"}`,
		"broken.json":   `{not json`,
	})

	template, err := service.GetTemplate("broken")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if template.SystemPrompt != "default prompt" {
		t.Fatalf("malformed template should fall back to default, got %q", template.SystemPrompt)
	}
}

func TestTemplateServiceRequiresDefault(t *testing.T) {
	_, err := NewTemplateService(&mapTemplateSource{files: map[string]string{
		"kustogpt.json": `{"systemPrompt": "kusto"}`,
	}})
	if err == nil {
		t.Fatalf("missing default template should fail startup")
	}
}
