package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"applens-copilot/internal/constants"
	"applens-copilot/internal/models"
	"applens-copilot/pkg/llm"
	"applens-copilot/pkg/redis"
)

const (
	defaultTemperature = 0.3
	defaultTopP        = 0.95

	textCompletionCacheTTL = 12 * time.Hour
)

// ErrStreamCancelled terminates a stream that was cancelled out-of-band. It
// is a distinct terminal status, never reported as a normal completion.
var ErrStreamCancelled = errors.New("chat stream cancelled")

// ChatCompletionService resolves templates into fully-populated completion
// requests and executes them against the configured model provider.
type ChatCompletionService interface {
	// PrepareChatCompletionOptions resolves the template for the request,
	// substitutes placeholders, retrieves supporting context and returns the
	// request ready to send to the provider.
	PrepareChatCompletionOptions(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) (*models.ExtendedChatCompletionsOptions, error)

	// RunChatCompletion executes a blocking chat completion.
	RunChatCompletion(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) (*models.ChatResponse, uint, error)

	// StreamChatCompletion executes a streaming chat completion, emitting
	// chunks through onChunk. The final chunk carries the finish reason and,
	// when feedback was folded into the prompt, the serialized feedback ids.
	// Returns ErrStreamCancelled when the message was cancelled mid-flight.
	StreamChatCompletion(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage, onChunk func(models.ChatStreamResponse) error) error

	// RunTextCompletion executes a raw text completion, optionally served
	// from the response cache.
	RunTextCompletion(ctx context.Context, payload llm.TextCompletionPayload, useCache bool) (*models.ChatResponse, uint, error)
}

type chatCompletionService struct {
	llmManager       *llm.Manager
	templateService  TemplateService
	retrievalService RetrievalService
	redisRepo        redis.IRedisRepositories
	handlers         map[string]CompletionHandler
	provider         string
}

func NewChatCompletionService(llmManager *llm.Manager, templateService TemplateService, retrievalService RetrievalService, redisRepo redis.IRedisRepositories, provider string) ChatCompletionService {
	return &chatCompletionService{
		llmManager:       llmManager,
		templateService:  templateService,
		retrievalService: retrievalService,
		redisRepo:        redisRepo,
		handlers:         defaultCompletionHandlers(),
		provider:         provider,
	}
}

func (s *chatCompletionService) PrepareChatCompletionOptions(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) (*models.ExtendedChatCompletionsOptions, error) {
	template, err := s.templateService.GetTemplate(metadata.ChatIdentifier)
	if err != nil {
		return nil, err
	}

	// A custom prompt extends the template's prompt rather than replacing
	// it, so the template's placeholders and retrieval blocks stay live.
	systemPrompt := template.SystemPrompt + metadata.CustomPrompt

	// Placeholders resolve before retrieval so the injected content is never
	// itself scanned for placeholders.
	systemPrompt = strings.ReplaceAll(systemPrompt, constants.PlaceholderCurrentDateTime, time.Now().UTC().Format(time.RFC1123))
	systemPrompt = strings.ReplaceAll(systemPrompt, constants.PlaceholderArmResourceID, metadata.ArmResourceID)

	// Templates normally opt into feedback retrieval via their settings, but
	// a resolved prompt still carrying the default placeholder gets retrieval
	// with default settings even when the template declares none.
	feedbackSettings := template.ChatFeedbackSearchSettings
	if feedbackSettings == nil && strings.Contains(systemPrompt, models.NewChatFeedbackSearchSettings().ContentPlaceholder) {
		feedbackSettings = models.NewChatFeedbackSearchSettings()
	}

	compositeQuestion := ""
	if template.DocumentSearchSettings != nil || feedbackSettings != nil {
		compositeQuestion, err = s.retrievalService.PrepareCompositeUserQuestion(ctx, metadata, messages)
		if err != nil {
			// Retrieval is additive context; a failure degrades the prompt
			// rather than failing the request.
			log.Printf("composite question preparation failed: %v", err)
			compositeQuestion = ""
		}
	}

	var (
		wg              sync.WaitGroup
		documentContent string
		feedbackContent string
		feedbackIDs     []string
	)

	if template.DocumentSearchSettings != nil && compositeQuestion != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, _, err := s.retrievalService.GetDocumentContent(ctx, template.DocumentSearchSettings, compositeQuestion)
			if err != nil {
				log.Printf("document retrieval failed: %v", err)
				return
			}
			documentContent = content
		}()
	}

	if feedbackSettings != nil && compositeQuestion != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, ids, err := s.retrievalService.GetChatFeedback(ctx, feedbackSettings, compositeQuestion, metadata.Provider(), metadata.ResourceType(), metadata.ChatIdentifier, metadata.ResourceSpecificInfo)
			if err != nil {
				log.Printf("feedback retrieval failed: %v", err)
				return
			}
			feedbackContent = content
			feedbackIDs = ids
		}()
	}

	wg.Wait()

	if template.DocumentSearchSettings != nil {
		systemPrompt = strings.ReplaceAll(systemPrompt, template.DocumentSearchSettings.DocumentContentPlaceholder, documentContent)
	}
	if feedbackSettings != nil {
		systemPrompt = strings.ReplaceAll(systemPrompt, feedbackSettings.ContentPlaceholder, feedbackContent)
	}

	// System prompt, then the template's worked examples, then the live
	// conversation in caller order.
	chatMessages := make([]models.ChatMessage, 0, 1+2*len(template.FewShotExamples)+len(messages))
	chatMessages = append(chatMessages, models.ChatMessage{Role: models.ChatRoleSystem, Content: systemPrompt})
	for _, example := range template.FewShotExamples {
		chatMessages = append(chatMessages,
			models.ChatMessage{Role: models.ChatRoleUser, Content: example.UserInput},
			models.ChatMessage{Role: models.ChatRoleAssistant, Content: example.ChatbotResponse},
		)
	}
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		chatMessages = append(chatMessages, msg)
	}

	return &models.ExtendedChatCompletionsOptions{
		Messages:        chatMessages,
		Temperature:     defaultTemperature,
		TopP:            defaultTopP,
		MaxTokens:       clampMaxTokens(metadata.MaxTokens, constants.MaxTokensAllowed),
		FeedbackIDsUsed: feedbackIDs,
	}, nil
}

func (s *chatCompletionService) RunChatCompletion(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage) (*models.ChatResponse, uint, error) {
	opts, err := s.PrepareChatCompletionOptions(ctx, metadata, messages)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if handler, ok := s.handlers[strings.ToLower(metadata.ChatIdentifier)]; ok {
		resp, err := handler(ctx, metadata, messages, opts)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		// A handler that produced a full response short-circuits the model.
		if resp != nil {
			return resp, http.StatusOK, nil
		}
	}

	client, err := s.llmManager.GetClient(s.provider)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	resp, err := client.ChatComplete(ctx, opts, metadata.ChatModel)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	resp.FeedbackIDs = opts.FeedbackIDsUsed
	return resp, http.StatusOK, nil
}

func (s *chatCompletionService) StreamChatCompletion(ctx context.Context, metadata *models.ChatMetaData, messages []models.ChatMessage, onChunk func(models.ChatStreamResponse) error) error {
	opts, err := s.PrepareChatCompletionOptions(ctx, metadata, messages)
	if err != nil {
		return err
	}
	opts.MaxTokens = clampMaxTokens(metadata.MaxTokens, constants.MaxTokensAllowedForStreaming)

	if handler, ok := s.handlers[strings.ToLower(metadata.ChatIdentifier)]; ok {
		resp, err := handler(ctx, metadata, messages, opts)
		if err != nil {
			return err
		}
		if resp != nil {
			if err := onChunk(models.ChatStreamResponse{Content: resp.Text}); err != nil {
				return err
			}
			return onChunk(terminalChunk(resp.FinishReason, opts.FeedbackIDsUsed))
		}
	}

	client, err := s.llmManager.GetClient(s.provider)
	if err != nil {
		return err
	}

	cancelKey := constants.ChatHubMessageStatePrefix + metadata.MessageID
	finishReason, err := client.StreamChatComplete(ctx, opts, metadata.ChatModel, func(content string) error {
		// Cancellation flags are polled at chunk boundaries; GetDel keeps a
		// flag from being observed twice.
		if s.isCancelled(ctx, cancelKey) {
			return ErrStreamCancelled
		}
		return onChunk(models.ChatStreamResponse{Content: content})
	})
	if err != nil {
		return err
	}

	return onChunk(terminalChunk(finishReason, opts.FeedbackIDsUsed))
}

func (s *chatCompletionService) RunTextCompletion(ctx context.Context, payload llm.TextCompletionPayload, useCache bool) (*models.ChatResponse, uint, error) {
	cacheKey := ""
	if useCache {
		cacheKey = textCompletionCacheKey(payload)
		if cached, err := s.redisRepo.Get(cacheKey, ctx); err == nil {
			var resp models.ChatResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, http.StatusOK, nil
			}
		} else if !errors.Is(err, redis.ErrKeyNotFound) {
			log.Printf("text completion cache read failed: %v", err)
		}
	}

	client, err := s.llmManager.GetClient(s.provider)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	resp, err := client.TextComplete(ctx, payload)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if useCache {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.redisRepo.Set(cacheKey, data, textCompletionCacheTTL, ctx); err != nil {
				log.Printf("text completion cache write failed: %v", err)
			}
		}
	}
	return resp, http.StatusOK, nil
}

func (s *chatCompletionService) isCancelled(ctx context.Context, key string) bool {
	value, err := s.redisRepo.GetDel(key, ctx)
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			log.Printf("cancellation flag read failed for %s: %v", key, err)
		}
		return false
	}
	return value == constants.MessageStateCancelled
}

func clampMaxTokens(requested, ceiling int) int {
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}

// terminalChunk builds the final chunk of a stream. Provenance rides on the
// content of the terminal chunk so the client needs no second round trip.
func terminalChunk(finishReason string, feedbackIDs []string) models.ChatStreamResponse {
	content := ""
	if len(feedbackIDs) > 0 {
		if data, err := json.Marshal(feedbackIDs); err == nil {
			content = string(data)
		}
	}
	if finishReason == "" {
		finishReason = "stop"
	}
	return models.ChatStreamResponse{Content: content, FinishReason: finishReason}
}

func textCompletionCacheKey(payload llm.TextCompletionPayload) string {
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("TextCompletion-%s", hex.EncodeToString(sum[:]))
}
