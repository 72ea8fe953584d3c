package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"applens-copilot/internal/models"
	"applens-copilot/internal/utils"
)

type GeminiClient struct {
	client              *genai.Client
	model               string
	textCompletionModel string
	embeddingModel      string
	maxCompletionTokens int
	temperature         float64
}

func NewGeminiClient(config Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	// Create the Gemini SDK client using the provided API key.
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	embeddingModel := config.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}

	return &GeminiClient{
		client:              client,
		model:               config.Model,
		textCompletionModel: config.TextCompletionModel,
		embeddingModel:      embeddingModel,
		maxCompletionTokens: config.MaxCompletionTokens,
		temperature:         config.Temperature,
	}, nil
}

// buildSession converts the chat options into a Gemini generative model and a
// chat session primed with the conversation history. Gemini has no system
// role in history, so the system prompt rides on SystemInstruction and the
// last user message is returned separately as the message to send.
func (c *GeminiClient) buildSession(opts *models.ExtendedChatCompletionsOptions, modelName string) (*genai.ChatSession, genai.Text) {
	if modelName == "" {
		modelName = c.model
	}
	model := c.client.GenerativeModel(modelName)
	if opts.MaxTokens > 0 {
		model.MaxOutputTokens = utils.ToInt32Ptr(int32(opts.MaxTokens))
	}
	model.SetTemperature(opts.Temperature)
	model.SetTopP(opts.TopP)
	model.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockNone,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockNone,
		},
	}

	history := make([]*genai.Content, 0, len(opts.Messages))
	lastUser := genai.Text("")
	systemParts := make([]string, 0, 1)

	for _, msg := range opts.Messages {
		switch mapRole(msg.Role) {
		case "system":
			systemParts = append(systemParts, msg.Content)
		case "assistant":
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	if len(systemParts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemParts, "\n"))},
		}
	}

	// Pop the trailing user turn out of history; it becomes the message.
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		if text, ok := history[n-1].Parts[0].(genai.Text); ok {
			lastUser = text
		}
		history = history[:n-1]
	}

	session := model.StartChat()
	session.History = history
	return session, lastUser
}

func (c *GeminiClient) ChatComplete(ctx context.Context, opts *models.ExtendedChatCompletionsOptions, model string) (*models.ChatResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	session, message := c.buildSession(opts, model)
	result, err := session.SendMessage(ctx, message)
	if err != nil {
		log.Printf("Gemini API error: %v", err)
		return nil, fmt.Errorf("gemini API error: %v", err)
	}

	text, finishReason := flattenCandidates(result)
	return &models.ChatResponse{
		Text:         text,
		FinishReason: finishReason,
	}, nil
}

func (c *GeminiClient) StreamChatComplete(ctx context.Context, opts *models.ExtendedChatCompletionsOptions, model string, onDelta StreamCallback) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	session, message := c.buildSession(opts, model)
	iter := session.SendMessageStream(ctx, message)

	finishReason := ""
	for {
		chunk, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return finishReason, fmt.Errorf("gemini stream error: %v", err)
		}

		text, reason := flattenCandidates(chunk)
		if reason != "" {
			finishReason = reason
		}
		if text == "" {
			continue
		}
		if err := onDelta(text); err != nil {
			return finishReason, err
		}
	}

	return finishReason, nil
}

func (c *GeminiClient) TextComplete(ctx context.Context, payload TextCompletionPayload) (*models.ChatResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	modelName := c.textCompletionModel
	if modelName == "" {
		modelName = c.model
	}
	model := c.client.GenerativeModel(modelName)
	if payload.MaxTokens > 0 {
		model.MaxOutputTokens = utils.ToInt32Ptr(int32(payload.MaxTokens))
	}
	model.SetTemperature(payload.Temperature)

	result, err := model.GenerateContent(ctx, genai.Text(payload.Prompt))
	if err != nil {
		log.Printf("Gemini API error: %v", err)
		return nil, fmt.Errorf("gemini API error: %v", err)
	}

	text, finishReason := flattenCandidates(result)
	return &models.ChatResponse{
		Text:         text,
		FinishReason: finishReason,
	}, nil
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.embeddingModel)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings error: %v", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned from Gemini")
	}
	return resp.Embedding.Values, nil
}

// GetModelInfo returns information about the Gemini model.
func (c *GeminiClient) GetModelInfo() ModelInfo {
	return ModelInfo{
		Name:                c.model,
		Provider:            "gemini",
		MaxCompletionTokens: c.maxCompletionTokens,
	}
}

// flattenCandidates joins the text parts of the first candidate and maps the
// Gemini finish reason onto the "stop"/"length" vocabulary the rest of the
// service understands.
func flattenCandidates(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ""
	}

	candidate := resp.Candidates[0]
	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}

	finishReason := ""
	switch candidate.FinishReason {
	case genai.FinishReasonStop:
		finishReason = "stop"
	case genai.FinishReasonMaxTokens:
		finishReason = "length"
	case genai.FinishReasonUnspecified:
		finishReason = ""
	default:
		finishReason = strings.ToLower(candidate.FinishReason.String())
	}

	return sb.String(), finishReason
}
