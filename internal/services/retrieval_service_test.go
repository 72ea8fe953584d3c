package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"applens-copilot/internal/models"
	"applens-copilot/pkg/llm"
)

func TestPrepareCompositeUserQuestionSingleMessage(t *testing.T) {
	client := &fakeLLMClient{}
	service := NewRetrievalService(newTestLLMManager(client), newTestTemplateService(t, map[string]string{}), newFakeIndexService(), "fake")

	question, err := service.PrepareCompositeUserQuestion(context.Background(), &models.ChatMetaData{}, []models.ChatMessage{
		{Role: "user", Content: "why is my app slow?"},
	})
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if question != "why is my app slow?" {
		t.Fatalf("lone message should pass through verbatim, got %q", question)
	}
	if client.textCalls != 0 {
		t.Fatalf("lone message must not call the model, got %d calls", client.textCalls)
	}
}

func TestPrepareCompositeUserQuestionEmptyConversation(t *testing.T) {
	service := NewRetrievalService(llm.NewManager(), newTestTemplateService(t, map[string]string{}), newFakeIndexService(), "fake")

	for _, messages := range [][]models.ChatMessage{
		nil,
		{{Role: "user", Content: "   "}},
	} {
		question, err := service.PrepareCompositeUserQuestion(context.Background(), &models.ChatMetaData{}, messages)
		if err != nil {
			t.Fatalf("prepare failed: %v", err)
		}
		if question != "" {
			t.Fatalf("conversation with no content should yield empty question, got %q", question)
		}
	}
}

func TestPrepareCompositeUserQuestionMultiTurn(t *testing.T) {
	client := &fakeLLMClient{textResponse: &models.ChatResponse{Text: "  what causes 502 errors after scaling?  "}}
	templates := newTestTemplateService(t, map[string]string{
		"compositequestioncreator.json": `{"systemPrompt": "Condense the conversation about <<ARM_RESOURCE_ID>> into one question."}`,
	})
	service := NewRetrievalService(newTestLLMManager(client), templates, newFakeIndexService(), "fake")

	metadata := &models.ChatMetaData{ArmResourceID: "/subscriptions/s/providers/Microsoft.Web/sites/app"}
	question, err := service.PrepareCompositeUserQuestion(context.Background(), metadata, []models.ChatMessage{
		{Role: "user", Content: "my app returns 502"},
		{Role: "assistant", Content: "when did it start?"},
		{Role: "user", Content: "after scaling out"},
	})
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if question != "what causes 502 errors after scaling?" {
		t.Fatalf("composite question not trimmed, got %q", question)
	}
	if client.textCalls != 1 {
		t.Fatalf("expected one text completion, got %d", client.textCalls)
	}
	if !strings.HasPrefix(client.lastTextPrompt, "Below is a chat history") {
		t.Fatalf("prompt should lead with the transcript preamble: %q", client.lastTextPrompt)
	}
	if !strings.Contains(client.lastTextPrompt, "Condense the conversation") {
		t.Fatalf("prompt should end with the condenser template: %q", client.lastTextPrompt)
	}
	if !strings.Contains(client.lastTextPrompt, "user: my app returns 502\n") ||
		!strings.Contains(client.lastTextPrompt, "assistant: when did it start?\n") {
		t.Fatalf("prompt should carry the role-labelled transcript: %q", client.lastTextPrompt)
	}
	if strings.Contains(client.lastTextPrompt, "<<ARM_RESOURCE_ID>>") ||
		!strings.Contains(client.lastTextPrompt, "/subscriptions/s/providers/Microsoft.Web/sites/app") {
		t.Fatalf("condenser prompt placeholders should resolve: %q", client.lastTextPrompt)
	}
}

func TestGetDocumentContent(t *testing.T) {
	index := newFakeIndexService()
	index.searchResults["applens-docs"] = []models.CognitiveSearchDocument{
		{ID: "1", Title: "Scaling guide", Content: "Scale out before scaling up."},
		{ID: "2", Content: "Check health probes."},
	}
	service := NewRetrievalService(llm.NewManager(), newTestTemplateService(t, map[string]string{}), index, "fake")

	settings := models.NewDocumentSearchSettings()
	settings.IndexName = "applens-docs"

	content, docs, err := service.GetDocumentContent(context.Background(), settings, "how to scale")
	if err != nil {
		t.Fatalf("retrieval failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected both documents back, got %d", len(docs))
	}
	if !strings.Contains(content, "Scaling guide\nScale out before scaling up.") {
		t.Fatalf("title+content rendering wrong: %q", content)
	}

	content, docs, err = service.GetDocumentContent(context.Background(), nil, "query")
	if err != nil || content != "" || docs != nil {
		t.Fatalf("nil settings should be a no-op, got %q %v %v", content, docs, err)
	}
}

func TestGetDocumentContentReferences(t *testing.T) {
	index := newFakeIndexService()
	index.searchResults["applens-docs"] = []models.CognitiveSearchDocument{
		{ID: "1", Content: "Scale out first.", URL: "https://docs.example.com/scaling"},
	}
	service := NewRetrievalService(llm.NewManager(), newTestTemplateService(t, map[string]string{}), index, "fake")

	settings := models.NewDocumentSearchSettings()
	settings.IndexName = "applens-docs"
	settings.IncludeReferences = true

	content, _, err := service.GetDocumentContent(context.Background(), settings, "how to scale")
	if err != nil {
		t.Fatalf("retrieval failed: %v", err)
	}
	if !strings.Contains(content, "Reference: https://docs.example.com/scaling") {
		t.Fatalf("reference url not rendered: %q", content)
	}
}

func feedbackDoc(t *testing.T, feedback models.ChatFeedback) models.CognitiveSearchDocument {
	t.Helper()
	payload, err := json.Marshal(feedback)
	if err != nil {
		t.Fatalf("marshal feedback: %v", err)
	}
	return models.CognitiveSearchDocument{ID: feedback.ID, JSONPayload: string(payload)}
}

func TestGetChatFeedbackOverFetchAndCap(t *testing.T) {
	index := newFakeIndexService()
	partition := models.GetPartitionKey("kustogpt", "Microsoft.Web", "sites")

	docs := []models.CognitiveSearchDocument{
		{ID: "bad", JSONPayload: "{corrupt"},
	}
	for _, id := range []string{"f1", "f2", "f3"} {
		docs = append(docs, feedbackDoc(t, models.ChatFeedback{
			ID:               id,
			UserQuestion:     "question " + id,
			ExpectedResponse: "answer " + id,
		}))
	}
	index.searchResults[partition] = docs

	service := NewRetrievalService(llm.NewManager(), newTestTemplateService(t, map[string]string{}), index, "fake")

	settings := models.NewChatFeedbackSearchSettings()
	settings.NumDocuments = 2

	content, ids, err := service.GetChatFeedback(context.Background(), settings, "query", "Microsoft.Web", "sites", "kustogpt", nil)
	if err != nil {
		t.Fatalf("retrieval failed: %v", err)
	}
	if index.searchedTopN != 12 {
		t.Fatalf("expected over-fetched search of 12, got %d", index.searchedTopN)
	}
	if index.searchedIndex != partition {
		t.Fatalf("index name should derive from the partition key, got %q", index.searchedIndex)
	}
	if len(ids) != 2 || ids[0] != "f1" || ids[1] != "f2" {
		t.Fatalf("corrupt record should be skipped and count capped, got %v", ids)
	}
	if !strings.Contains(content, "Q: question f1\nA: answer f1") {
		t.Fatalf("feedback rendering wrong: %q", content)
	}
	if strings.Contains(content, "f3") {
		t.Fatalf("results past the document cap should be dropped: %q", content)
	}
}

func TestGetChatFeedbackRendersAdditionalFieldsSorted(t *testing.T) {
	index := newFakeIndexService()
	settings := models.NewChatFeedbackSearchSettings()
	settings.IndexName = "custom-index"
	index.searchResults["custom-index"] = []models.CognitiveSearchDocument{
		feedbackDoc(t, models.ChatFeedback{
			ID:               "f1",
			UserQuestion:     "q",
			ExpectedResponse: "a",
			AdditionalFields: map[string]string{"zeta": "2", "alpha": "1"},
		}),
	}
	service := NewRetrievalService(llm.NewManager(), newTestTemplateService(t, map[string]string{}), index, "fake")

	content, _, err := service.GetChatFeedback(context.Background(), settings, "query", "p", "t", "c", nil)
	if err != nil {
		t.Fatalf("retrieval failed: %v", err)
	}
	if !strings.Contains(content, "alpha: 1\nzeta: 2") {
		t.Fatalf("additional fields should render in sorted order: %q", content)
	}
}

func TestGetRelatedFeedbacks(t *testing.T) {
	index := newFakeIndexService()
	partition := models.GetPartitionKey("docscopilot", "Microsoft.Web", "sites")
	index.searchResults[partition] = []models.CognitiveSearchDocument{
		feedbackDoc(t, models.ChatFeedback{
			ID:                   "f1",
			UserQuestion:         "why 502",
			ExpectedResponse:     "check scaling",
			ResourceSpecificInfo: map[string]string{"Region": "eastus"},
		}),
		feedbackDoc(t, models.ChatFeedback{
			ID:                   "f2",
			UserQuestion:         "why 502 on linux",
			ExpectedResponse:     "check probes",
			ResourceSpecificInfo: map[string]string{"Region": "westus"},
		}),
	}
	service := NewRetrievalService(newTestLLMManager(&fakeLLMClient{}), newTestTemplateService(t, map[string]string{}), index, "fake")

	metadata := &models.ChatMetaData{
		ChatIdentifier:       "docscopilot",
		ResourceSpecificInfo: map[string]string{"Region": "eastus"},
	}
	metadata.SetProviderAndResourceType("Microsoft.Web", "sites")

	records, err := service.GetRelatedFeedbacks(context.Background(), metadata, []models.ChatMessage{
		{Role: "user", Content: "my app returns 502"},
	})
	if err != nil {
		t.Fatalf("retrieval failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "f1" {
		t.Fatalf("expected only the applicable record, got %+v", records)
	}
	if index.searchedIndex != partition {
		t.Fatalf("index name should derive from the partition key, got %q", index.searchedIndex)
	}

	records, err = service.GetRelatedFeedbacks(context.Background(), metadata, nil)
	if err != nil || records != nil {
		t.Fatalf("empty conversation should be a no-op, got %v %v", records, err)
	}
}

func TestIsFeedbackApplicable(t *testing.T) {
	cases := []struct {
		name         string
		feedback     map[string]string
		provider     string
		resourceType string
		resource     map[string]string
		want         bool
	}{
		{
			name:     "request with no constraints always matches",
			feedback: map[string]string{"sku": "Premium"},
			provider: "Microsoft.Compute", resourceType: "virtualMachines",
			want: true,
		},
		{
			name:     "equal sets ignoring case and order",
			feedback: map[string]string{"sku": "Premium,Standard"},
			provider: "Microsoft.Compute", resourceType: "virtualMachines",
			resource: map[string]string{"SKU": "standard, premium"},
			want:     true,
		},
		{
			name:     "subset is not equality",
			feedback: map[string]string{"sku": "Premium"},
			provider: "Microsoft.Compute", resourceType: "virtualMachines",
			resource: map[string]string{"sku": "Premium,Standard"},
			want:     false,
		},
		{
			name:     "record missing a constrained key rejects",
			feedback: map[string]string{},
			provider: "Microsoft.Compute", resourceType: "virtualMachines",
			resource: map[string]string{"Region": "eastus"},
			want:     false,
		},
		{
			name:     "web app kind matches on overlap",
			feedback: map[string]string{"Kind": "app,linux"},
			provider: "Microsoft.Web", resourceType: "sites",
			resource: map[string]string{"kind": "linux,container"},
			want:     true,
		},
		{
			name:     "web app kind with no overlap rejects",
			feedback: map[string]string{"Kind": "functionapp"},
			provider: "Microsoft.Web", resourceType: "sites",
			resource: map[string]string{"kind": "app,linux"},
			want:     false,
		},
		{
			name:     "web app record without kind is shared across app types",
			feedback: map[string]string{},
			provider: "Microsoft.Web", resourceType: "sites",
			resource: map[string]string{"Kind": "app"},
			want:     true,
		},
		{
			name:     "kind outside web apps needs equality",
			feedback: map[string]string{"Kind": "app,linux"},
			provider: "Microsoft.Compute", resourceType: "virtualMachines",
			resource: map[string]string{"Kind": "linux"},
			want:     false,
		},
		{
			name:     "missing kind outside web apps rejects",
			feedback: map[string]string{},
			provider: "Microsoft.Compute", resourceType: "virtualMachines",
			resource: map[string]string{"Kind": "app"},
			want:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			feedback := &models.ChatFeedback{ResourceSpecificInfo: tc.feedback}
			got := isFeedbackApplicable(feedback, tc.provider, tc.resourceType, tc.resource)
			if got != tc.want {
				t.Fatalf("applicability = %v, want %v", got, tc.want)
			}
		})
	}
}
