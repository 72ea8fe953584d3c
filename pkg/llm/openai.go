package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sashabaranov/go-openai"

	"applens-copilot/internal/models"
)

type OpenAIClient struct {
	client              *openai.Client
	model               string
	fallbackModel       string
	textCompletionModel string
	embeddingModel      openai.EmbeddingModel
	maxCompletionTokens int
	temperature         float64
}

func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	var clientConfig openai.ClientConfig
	if config.Endpoint != "" {
		// An endpoint means an Azure OpenAI resource; deployments are
		// addressed by name rather than public model id.
		clientConfig = openai.DefaultAzureConfig(config.APIKey, config.Endpoint)
	} else {
		clientConfig = openai.DefaultConfig(config.APIKey)
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4o
	}
	embeddingModel := openai.EmbeddingModel(config.EmbeddingModel)
	if config.EmbeddingModel == "" {
		embeddingModel = openai.AdaEmbeddingV2
	}

	return &OpenAIClient{
		client:              openai.NewClientWithConfig(clientConfig),
		model:               model,
		fallbackModel:       config.FallbackModel,
		textCompletionModel: config.TextCompletionModel,
		embeddingModel:      embeddingModel,
		maxCompletionTokens: config.MaxCompletionTokens,
		temperature:         config.Temperature,
	}, nil
}

func (c *OpenAIClient) resolveModel(model string) string {
	if model == "" {
		return c.model
	}
	return model
}

func (c *OpenAIClient) buildChatRequest(opts *models.ExtendedChatCompletionsOptions, model string) openai.ChatCompletionRequest {
	openAIMessages := make([]openai.ChatCompletionMessage, 0, len(opts.Messages))
	for _, msg := range opts.Messages {
		openAIMessages = append(openAIMessages, openai.ChatCompletionMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:            c.resolveModel(model),
		Messages:         openAIMessages,
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
	}
}

func (c *OpenAIClient) ChatComplete(ctx context.Context, opts *models.ExtendedChatCompletionsOptions, model string) (*models.ChatResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.buildChatRequest(opts, model))
	if err != nil && c.fallbackModel != "" && c.resolveModel(model) != c.fallbackModel {
		log.Printf("ChatComplete -> retrying on fallback deployment %s after: %v", c.fallbackModel, err)
		resp, err = c.client.CreateChatCompletion(ctx, c.buildChatRequest(opts, c.fallbackModel))
	}
	if err != nil {
		log.Printf("ChatComplete -> err: %v", err)
		return nil, fmt.Errorf("OpenAI API error: %v", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	choice := resp.Choices[0]
	return &models.ChatResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (c *OpenAIClient) StreamChatComplete(ctx context.Context, opts *models.ExtendedChatCompletionsOptions, model string, onDelta StreamCallback) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildChatRequest(opts, model))
	if err != nil {
		log.Printf("StreamChatComplete -> err: %v", err)
		return "", fmt.Errorf("OpenAI API error: %v", err)
	}
	defer stream.Close()

	finishReason := ""
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return finishReason, fmt.Errorf("OpenAI stream error: %v", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finishReason = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}
		if err := onDelta(choice.Delta.Content); err != nil {
			return finishReason, err
		}
	}

	return finishReason, nil
}

func (c *OpenAIClient) TextComplete(ctx context.Context, payload TextCompletionPayload) (*models.ChatResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	model := c.textCompletionModel
	if model == "" {
		model = c.model
	}

	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       model,
		Prompt:      payload.Prompt,
		MaxTokens:   payload.MaxTokens,
		Temperature: payload.Temperature,
	})
	if err != nil {
		log.Printf("TextComplete -> err: %v", err)
		return nil, fmt.Errorf("OpenAI API error: %v", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	choice := resp.Choices[0]
	return &models.ChatResponse{
		Text:         choice.Text,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings error: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned from OpenAI")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) GetModelInfo() ModelInfo {
	return ModelInfo{
		Name:                c.model,
		Provider:            "openai",
		MaxCompletionTokens: c.maxCompletionTokens,
	}
}
