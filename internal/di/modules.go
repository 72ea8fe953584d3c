package di

import (
	"log"
	"time"

	"go.uber.org/dig"

	"applens-copilot/config"
	"applens-copilot/internal/apis/handlers"
	"applens-copilot/internal/constants"
	"applens-copilot/internal/repositories"
	"applens-copilot/internal/services"
	"applens-copilot/internal/utils"
	"applens-copilot/pkg/llm"
	"applens-copilot/pkg/mongodb"
	"applens-copilot/pkg/redis"
	"applens-copilot/pkg/search"
)

var DiContainer *dig.Container

func Initialize() {
	DiContainer = dig.New()

	// Initialize MongoDB
	dbConfig := mongodb.MongoDbConfigModel{
		ConnectionUrl: config.Env.MongoURI,
		DatabaseName:  config.Env.MongoDatabaseName,
	}
	mongodbClient := mongodb.InitializeDatabaseConnection(dbConfig)

	// Initialize Redis
	redisClient, err := redis.RedisClient(config.Env.RedisHost, config.Env.RedisPort, config.Env.RedisUsername, config.Env.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}

	redisRepo := redis.NewRedisRepositories(redisClient)
	jwtService := utils.NewJWTService(
		config.Env.JWTSecret,
		time.Millisecond*time.Duration(config.Env.JWTExpirationMilliseconds),
	)

	feedbackRepo := repositories.NewFeedbackRepository(mongodbClient)

	if err := DiContainer.Provide(func() *mongodb.MongoDBClient { return mongodbClient }); err != nil {
		log.Fatalf("Failed to provide MongoDB client: %v", err)
	}

	if err := DiContainer.Provide(func() redis.IRedisRepositories { return redisRepo }); err != nil {
		log.Fatalf("Failed to provide Redis repositories: %v", err)
	}

	if err := DiContainer.Provide(func() utils.JWTService { return jwtService }); err != nil {
		log.Fatalf("Failed to provide JWT service: %v", err)
	}

	if err := DiContainer.Provide(func() repositories.FeedbackRepository { return feedbackRepo }); err != nil {
		log.Fatalf("Failed to provide feedback repository: %v", err)
	}

	// LLM Manager with the configured providers
	if err := DiContainer.Provide(func() *llm.Manager {
		manager := llm.NewManager()

		if config.Env.OpenAIAPIKey != "" {
			err := manager.RegisterClient(constants.OpenAI, llm.Config{
				Provider:            constants.OpenAI,
				Endpoint:            config.Env.OpenAIEndpoint,
				APIKey:              config.Env.OpenAIAPIKey,
				Model:               config.Env.OpenAIModel,
				FallbackModel:       config.Env.OpenAIFallbackModel,
				TextCompletionModel: config.Env.OpenAITextModel,
				EmbeddingModel:      config.Env.OpenAIEmbeddingModel,
				MaxCompletionTokens: config.Env.OpenAIMaxCompletionTokens,
				Temperature:         config.Env.OpenAITemperature,
			})
			if err != nil {
				log.Printf("Warning: Failed to register OpenAI client: %v", err)
			}
		}

		if config.Env.GeminiAPIKey != "" {
			err := manager.RegisterClient(constants.Gemini, llm.Config{
				Provider:            constants.Gemini,
				APIKey:              config.Env.GeminiAPIKey,
				Model:               config.Env.GeminiModel,
				EmbeddingModel:      config.Env.GeminiEmbeddingModel,
				MaxCompletionTokens: config.Env.GeminiMaxCompletionTokens,
				Temperature:         config.Env.GeminiTemperature,
			})
			if err != nil {
				log.Printf("Warning: Failed to register Gemini client: %v", err)
			}
		}
		return manager
	}); err != nil {
		log.Fatalf("Failed to provide LLM manager: %v", err)
	}

	// Search index service backed by the default provider's embeddings
	if err := DiContainer.Provide(func(llmManager *llm.Manager) search.IndexService {
		embedder, err := llmManager.GetClient(config.Env.DefaultLLMClient)
		if err != nil {
			log.Fatalf("Failed to get default LLM client for embeddings: %v", err)
		}
		indexService, err := search.NewQdrantIndexService(search.Config{
			URL:    config.Env.QdrantURL,
			APIKey: config.Env.QdrantAPIKey,
		}, embedder)
		if err != nil {
			log.Fatalf("Failed to create index service: %v", err)
		}
		return indexService
	}); err != nil {
		log.Fatalf("Failed to provide index service: %v", err)
	}

	// Template store
	if err := DiContainer.Provide(func() services.TemplateService {
		templateService, err := services.NewTemplateService(services.NewFSTemplateSource(config.Env.TemplateDirectory))
		if err != nil {
			log.Fatalf("Failed to load templates: %v", err)
		}
		return templateService
	}); err != nil {
		log.Fatalf("Failed to provide template service: %v", err)
	}

	// Retrieval service
	if err := DiContainer.Provide(func(llmManager *llm.Manager, templateService services.TemplateService, indexService search.IndexService) services.RetrievalService {
		return services.NewRetrievalService(llmManager, templateService, indexService, config.Env.DefaultLLMClient)
	}); err != nil {
		log.Fatalf("Failed to provide retrieval service: %v", err)
	}

	// Completion service
	if err := DiContainer.Provide(func(
		llmManager *llm.Manager,
		templateService services.TemplateService,
		retrievalService services.RetrievalService,
		redisRepo redis.IRedisRepositories,
	) services.ChatCompletionService {
		return services.NewChatCompletionService(llmManager, templateService, retrievalService, redisRepo, config.Env.DefaultLLMClient)
	}); err != nil {
		log.Fatalf("Failed to provide completion service: %v", err)
	}

	// Feedback service
	if err := DiContainer.Provide(func(feedbackRepo repositories.FeedbackRepository, indexService search.IndexService) services.FeedbackService {
		return services.NewFeedbackService(feedbackRepo, indexService)
	}); err != nil {
		log.Fatalf("Failed to provide feedback service: %v", err)
	}

	// Handlers
	if err := DiContainer.Provide(func(completionService services.ChatCompletionService) *handlers.CopilotHandler {
		return handlers.NewCopilotHandler(completionService)
	}); err != nil {
		log.Fatalf("Failed to provide copilot handler: %v", err)
	}

	if err := DiContainer.Provide(func(feedbackService services.FeedbackService, retrievalService services.RetrievalService) *handlers.FeedbackHandler {
		return handlers.NewFeedbackHandler(feedbackService, retrievalService)
	}); err != nil {
		log.Fatalf("Failed to provide feedback handler: %v", err)
	}

	if err := DiContainer.Provide(func(completionService services.ChatCompletionService, redisRepo redis.IRedisRepositories) *handlers.StreamHandler {
		return handlers.NewStreamHandler(completionService, redisRepo)
	}); err != nil {
		log.Fatalf("Failed to provide stream handler: %v", err)
	}
}

// GetCopilotHandler retrieves the CopilotHandler from the DI container
func GetCopilotHandler() (*handlers.CopilotHandler, error) {
	var handler *handlers.CopilotHandler
	err := DiContainer.Invoke(func(h *handlers.CopilotHandler) {
		handler = h
	})
	if err != nil {
		return nil, err
	}
	return handler, nil
}

// GetFeedbackHandler retrieves the FeedbackHandler from the DI container
func GetFeedbackHandler() (*handlers.FeedbackHandler, error) {
	var handler *handlers.FeedbackHandler
	err := DiContainer.Invoke(func(h *handlers.FeedbackHandler) {
		handler = h
	})
	if err != nil {
		return nil, err
	}
	return handler, nil
}

// GetStreamHandler retrieves the StreamHandler from the DI container
func GetStreamHandler() (*handlers.StreamHandler, error) {
	var handler *handlers.StreamHandler
	err := DiContainer.Invoke(func(h *handlers.StreamHandler) {
		handler = h
	})
	if err != nil {
		return nil, err
	}
	return handler, nil
}
