package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"applens-copilot/config"
	"applens-copilot/internal/models"
)

type fakeRetrievalService struct {
	related      []*models.ChatFeedback
	relatedCalls int
}

func (f *fakeRetrievalService) PrepareCompositeUserQuestion(context.Context, *models.ChatMetaData, []models.ChatMessage) (string, error) {
	return "", nil
}

func (f *fakeRetrievalService) GetDocumentContent(context.Context, *models.DocumentSearchSettings, string) (string, []models.CognitiveSearchDocument, error) {
	return "", nil, nil
}

func (f *fakeRetrievalService) GetChatFeedback(context.Context, *models.ChatFeedbackSearchSettings, string, string, string, string, map[string]string) (string, []string, error) {
	return "", nil, nil
}

func (f *fakeRetrievalService) GetRelatedFeedbacks(context.Context, *models.ChatMetaData, []models.ChatMessage) ([]*models.ChatFeedback, error) {
	f.relatedCalls++
	return f.related, nil
}

func postJSONContext(t *testing.T, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", "someone@contoso.com")
	return c, w
}

func denyAllCopilots(t *testing.T) {
	t.Helper()
	prev := config.Copilots
	config.Copilots = &models.CopilotsConfiguration{}
	t.Cleanup(func() { config.Copilots = prev })
}

func allowFeedbackFor(t *testing.T, chatIdentifier string) {
	t.Helper()
	prev := config.Copilots
	config.Copilots = &models.CopilotsConfiguration{
		Enabled: true,
		CopilotSettings: map[string]*models.CopilotSettings{
			chatIdentifier: models.NewCopilotSettings(true, true, "", "", ""),
		},
	}
	t.Cleanup(func() { config.Copilots = prev })
}

func TestSaveFeedbackDeniedUser(t *testing.T) {
	denyAllCopilots(t)
	handler := NewFeedbackHandler(nil, nil)

	c, w := postJSONContext(t, "/", `{
		"chatIdentifier": "docscopilot",
		"provider": "Microsoft.Web",
		"resourceType": "sites",
		"userQuestion": "why 502",
		"expectedResponse": "check probes"
	}`)
	handler.SaveFeedback(c)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("denied user should get 401, got %d", w.Code)
	}
}

func TestGetRelatedFeedbacksDeniedUser(t *testing.T) {
	denyAllCopilots(t)
	retrieval := &fakeRetrievalService{}
	handler := NewFeedbackHandler(nil, retrieval)

	c, w := postJSONContext(t, "/", `{
		"metadata": {"chatIdentifier": "docscopilot", "armResourceId": "/subscriptions/s/providers/Microsoft.Web/sites/app"},
		"messages": [{"role": "user", "content": "why 502"}]
	}`)
	handler.GetRelatedFeedbacks(c)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("denied user should get 401, got %d", w.Code)
	}
	if retrieval.relatedCalls != 0 {
		t.Fatalf("retrieval must not run for a denied user")
	}
}

func TestGetRelatedFeedbacksReturnsRecords(t *testing.T) {
	allowFeedbackFor(t, "docscopilot")
	retrieval := &fakeRetrievalService{related: []*models.ChatFeedback{{ID: "f1", UserQuestion: "why 502"}}}
	handler := NewFeedbackHandler(nil, retrieval)

	c, w := postJSONContext(t, "/", `{
		"metadata": {"chatIdentifier": "docscopilot", "armResourceId": "/subscriptions/s/providers/Microsoft.Web/sites/app"},
		"messages": [{"role": "user", "content": "why 502"}]
	}`)
	handler.GetRelatedFeedbacks(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool                  `json:"success"`
		Data    []models.ChatFeedback `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.Success || len(resp.Data) != 1 || resp.Data[0].ID != "f1" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if retrieval.relatedCalls != 1 {
		t.Fatalf("expected one retrieval call, got %d", retrieval.relatedCalls)
	}
}

func TestSaveFeedbackRejectsMismatchedSubmitter(t *testing.T) {
	allowFeedbackFor(t, "docscopilot")
	handler := NewFeedbackHandler(nil, nil)

	c, w := postJSONContext(t, "/", `{
		"chatIdentifier": "docscopilot",
		"provider": "Microsoft.Web",
		"resourceType": "sites",
		"userQuestion": "why 502",
		"expectedResponse": "check probes",
		"submittedBy": "somebodyelse@contoso.com"
	}`)
	handler.SaveFeedback(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("mismatched submitter should get 400, got %d", w.Code)
	}
}
