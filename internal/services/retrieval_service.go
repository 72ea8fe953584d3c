package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"applens-copilot/internal/constants"
	"applens-copilot/internal/models"
	"applens-copilot/pkg/llm"
	"applens-copilot/pkg/search"
)

// feedbackOverFetch widens the index query so that applicability filtering
// still leaves enough results to fill the requested document count.
const feedbackOverFetch = 10

// RetrievalService condenses conversations into search queries and pulls the
// supporting context (documents and past feedback) injected into prompts.
type RetrievalService interface {
	// PrepareCompositeUserQuestion condenses a conversation into a single
	// standalone question suitable for similarity search.
	PrepareCompositeUserQuestion(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) (string, error)

	// GetDocumentContent retrieves supporting documents for the query and
	// renders them into prompt text.
	GetDocumentContent(ctx context.Context, settings *models.DocumentSearchSettings, query string) (string, []models.CognitiveSearchDocument, error)

	// GetChatFeedback retrieves past feedback applicable to the resource,
	// rendered into prompt text together with the ids that were used.
	GetChatFeedback(ctx context.Context, settings *models.ChatFeedbackSearchSettings, query, provider, resourceType, chatIdentifier string, resourceInfo map[string]string) (string, []string, error)

	// GetRelatedFeedbacks condenses the conversation and returns the raw
	// feedback records that a prompt for it would draw on.
	GetRelatedFeedbacks(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) ([]*models.ChatFeedback, error)
}

type retrievalService struct {
	llmManager      *llm.Manager
	templateService TemplateService
	indexService    search.IndexService
	provider        string
}

func NewRetrievalService(llmManager *llm.Manager, templateService TemplateService, indexService search.IndexService, provider string) RetrievalService {
	return &retrievalService{
		llmManager:      llmManager,
		templateService: templateService,
		indexService:    indexService,
		provider:        provider,
	}
}

func (s *retrievalService) PrepareCompositeUserQuestion(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	// A single-turn conversation is its own question; no model call needed.
	if len(messages) == 1 {
		if strings.TrimSpace(messages[0].Content) == "" {
			return "", nil
		}
		return messages[0].Content, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Below is a chat history between a human and an AI assistant.\n\n")
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		prompt.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}

	template, err := s.templateService.GetTemplate(constants.ChatIdentifierCompositeQuestionCreator)
	if err != nil {
		return "", err
	}
	prompt.WriteString("\n")
	prompt.WriteString(template.SystemPrompt)

	systemPrompt := strings.ReplaceAll(prompt.String(), constants.PlaceholderCurrentDateTime, time.Now().UTC().Format(time.RFC1123))
	if metadata != nil {
		systemPrompt = strings.ReplaceAll(systemPrompt, constants.PlaceholderArmResourceID, metadata.ArmResourceID)
	}

	client, err := s.llmManager.GetClient(s.provider)
	if err != nil {
		return "", err
	}

	resp, err := client.TextComplete(ctx, llm.TextCompletionPayload{
		Prompt:      systemPrompt,
		MaxTokens:   constants.MaxTokensAllowed,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("composite question completion failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *retrievalService) GetDocumentContent(ctx context.Context, settings *models.DocumentSearchSettings, query string) (string, []models.CognitiveSearchDocument, error) {
	if settings == nil || settings.IndexName == "" || strings.TrimSpace(query) == "" {
		return "", nil, nil
	}

	docs, err := s.indexService.Search(ctx, query, settings.IndexName, settings.NumDocuments, float32(settings.MinScore))
	if err != nil {
		return "", nil, fmt.Errorf("document search failed: %w", err)
	}

	var sb strings.Builder
	for _, doc := range docs {
		if doc.Title != "" {
			sb.WriteString(doc.Title)
			sb.WriteString("\n")
		}
		sb.WriteString(doc.Content)
		if settings.IncludeReferences && doc.URL != "" {
			sb.WriteString(fmt.Sprintf("\nReference: %s", doc.URL))
		}
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()), docs, nil
}

func (s *retrievalService) GetChatFeedback(ctx context.Context, settings *models.ChatFeedbackSearchSettings, query, provider, resourceType, chatIdentifier string, resourceInfo map[string]string) (string, []string, error) {
	if settings == nil || strings.TrimSpace(query) == "" {
		return "", nil, nil
	}

	feedbacks, err := s.fetchApplicableFeedbacks(ctx, settings, query, provider, resourceType, chatIdentifier, resourceInfo)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	ids := make([]string, 0, len(feedbacks))
	for _, feedback := range feedbacks {
		ids = append(ids, feedback.ID)
		sb.WriteString(fmt.Sprintf("Q: %s\nA: %s\n", feedback.UserQuestion, feedback.ExpectedResponse))
		renderAdditionalFields(&sb, feedback.AdditionalFields)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), ids, nil
}

func (s *retrievalService) GetRelatedFeedbacks(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) ([]*models.ChatFeedback, error) {
	query, err := s.PrepareCompositeUserQuestion(ctx, metadata, messages)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	settings := models.NewChatFeedbackSearchSettings()
	return s.fetchApplicableFeedbacks(ctx, settings, query, metadata.Provider(), metadata.ResourceType(), metadata.ChatIdentifier, metadata.ResourceSpecificInfo)
}

// fetchApplicableFeedbacks over-fetches from the index, drops records that do
// not apply to the resource and caps the result at the configured count.
func (s *retrievalService) fetchApplicableFeedbacks(ctx context.Context, settings *models.ChatFeedbackSearchSettings, query, provider, resourceType, chatIdentifier string, resourceInfo map[string]string) ([]*models.ChatFeedback, error) {
	indexName := settings.IndexName
	if indexName == "" {
		indexName = models.GetPartitionKey(chatIdentifier, provider, resourceType)
	}

	fetchCount := settings.NumDocuments + feedbackOverFetch
	docs, err := s.indexService.Search(ctx, query, indexName, fetchCount, float32(settings.MinScore))
	if err != nil {
		return nil, fmt.Errorf("feedback search failed: %w", err)
	}

	feedbacks := make([]*models.ChatFeedback, 0, len(docs))
	for _, doc := range docs {
		if doc.JSONPayload == "" {
			continue
		}
		var feedback models.ChatFeedback
		if err := json.Unmarshal([]byte(doc.JSONPayload), &feedback); err != nil {
			// One corrupt record must not sink the whole retrieval.
			log.Printf("skipping malformed feedback payload %s: %v", doc.ID, err)
			continue
		}
		if !isFeedbackApplicable(&feedback, provider, resourceType, resourceInfo) {
			continue
		}
		feedbacks = append(feedbacks, &feedback)
		if len(feedbacks) == settings.NumDocuments {
			break
		}
	}
	return feedbacks, nil
}

// renderAdditionalFields appends template-defined extras in a stable order.
func renderAdditionalFields(sb *strings.Builder, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s: %s\n", k, fields[k]))
	}
}

// isFeedbackApplicable decides whether a stored feedback record applies to
// the resource currently being diagnosed. Every constraint the request pins
// in resourceInfo must be matched by the record with an equal comma-separated
// value set. Web app kinds are special: a site's kind list evolves (e.g.
// "app,linux"), so Kind matches on any overlap, and a record carrying no Kind
// at all is shared across all app types.
func isFeedbackApplicable(feedback *models.ChatFeedback, provider, resourceType string, resourceInfo map[string]string) bool {
	isWebApp := strings.EqualFold(provider, constants.WebAppProvider) && strings.EqualFold(resourceType, constants.WebAppResourceType)

	for key, requested := range resourceInfo {
		isKind := isWebApp && strings.EqualFold(key, constants.ResourceInfoKind)

		recorded, ok := lookupFold(feedback.ResourceSpecificInfo, key)
		if !ok {
			if isKind {
				return true
			}
			return false
		}

		if isKind {
			if !commaSeparatedValuesOverlap(requested, recorded) {
				return false
			}
			continue
		}
		if !commaSeparatedValuesEqual(requested, recorded) {
			return false
		}
	}
	return true
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func splitCommaSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			set[part] = struct{}{}
		}
	}
	return set
}

func commaSeparatedValuesEqual(a, b string) bool {
	setA, setB := splitCommaSet(a), splitCommaSet(b)
	if len(setA) != len(setB) {
		return false
	}
	for v := range setA {
		if _, ok := setB[v]; !ok {
			return false
		}
	}
	return true
}

func commaSeparatedValuesOverlap(a, b string) bool {
	setA, setB := splitCommaSet(a), splitCommaSet(b)
	for v := range setA {
		if _, ok := setB[v]; ok {
			return true
		}
	}
	return false
}
