package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"applens-copilot/internal/constants"
)

type Environment struct {
	// Server configs
	IsDocker          bool
	Port              string
	Environment       string
	CorsAllowedOrigin string

	// Auth configs
	JWTSecret                 string
	JWTExpirationMilliseconds int

	// Feature configs
	ChatFeatureEnabled bool
	TemplateDirectory  string
	CopilotsConfigPath string
	DefaultLLMClient   string

	// Database configs
	MongoURI          string
	MongoDatabaseName string

	// Redis configs
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string

	// Search index configs
	QdrantURL    string
	QdrantAPIKey string

	// OpenAI configs
	OpenAIEndpoint            string
	OpenAIAPIKey              string
	OpenAIModel               string
	OpenAIFallbackModel       string
	OpenAITextModel           string
	OpenAIEmbeddingModel      string
	OpenAIMaxCompletionTokens int
	OpenAITemperature         float64

	// Gemini configs
	GeminiAPIKey              string
	GeminiModel               string
	GeminiEmbeddingModel      string
	GeminiMaxCompletionTokens int
	GeminiTemperature         float64
}

var Env Environment

// LoadEnv loads environment variables from .env file if present
// and validates required variables
func LoadEnv() error {
	// Check if running in Docker
	Env.IsDocker = os.Getenv("IS_DOCKER") == "true"

	// Load .env file only if not running in Docker
	if !Env.IsDocker {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("Warning: .env file not found: %v\n", err)
		}
	}

	// Server configs
	Env.Port = getEnvWithDefault("PORT", "3000")
	Env.Environment = getEnvWithDefault("ENVIRONMENT", "DEVELOPMENT")
	Env.CorsAllowedOrigin = getEnvWithDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	// Auth configs
	Env.JWTSecret = getRequiredEnv("JWT_SECRET", "applens_jwt_secret")
	Env.JWTExpirationMilliseconds = getIntEnvWithDefault("JWT_EXPIRATION_MILLISECONDS", 1000*60*60*24) // 1 day default

	// Feature configs
	Env.ChatFeatureEnabled = getEnvWithDefault("CHAT_FEATURE_ENABLED", "true") == "true"
	Env.TemplateDirectory = getEnvWithDefault("TEMPLATE_DIRECTORY", "templates")
	Env.CopilotsConfigPath = getEnvWithDefault("COPILOTS_CONFIG_PATH", "copilots.json")
	Env.DefaultLLMClient = getEnvWithDefault("DEFAULT_LLM_CLIENT", constants.OpenAI)

	// Database configs
	Env.MongoURI = getRequiredEnv("APPLENS_MONGODB_URI", "mongodb://localhost:27017/applens")
	Env.MongoDatabaseName = getRequiredEnv("APPLENS_MONGODB_NAME", "applens")
	Env.RedisHost = getRequiredEnv("APPLENS_REDIS_HOST", "localhost")
	Env.RedisPort = getRequiredEnv("APPLENS_REDIS_PORT", "6379")
	Env.RedisUsername = os.Getenv("APPLENS_REDIS_USERNAME")
	Env.RedisPassword = os.Getenv("APPLENS_REDIS_PASSWORD")

	// Search index configs
	Env.QdrantURL = getRequiredEnv("QDRANT_URL", "http://localhost:6334")
	Env.QdrantAPIKey = os.Getenv("QDRANT_API_KEY")

	// OpenAI configs
	Env.OpenAIEndpoint = os.Getenv("OPENAI_ENDPOINT")
	Env.OpenAIAPIKey = getRequiredEnv("OPENAI_API_KEY", "")
	Env.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", "gpt-4")
	Env.OpenAIFallbackModel = os.Getenv("OPENAI_FALLBACK_MODEL")
	Env.OpenAITextModel = getEnvWithDefault("OPENAI_TEXT_MODEL", "gpt-3.5-turbo-instruct")
	Env.OpenAIEmbeddingModel = getEnvWithDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002")
	Env.OpenAIMaxCompletionTokens = getIntEnvWithDefault("OPENAI_MAX_COMPLETION_TOKENS", constants.MaxTokensAllowed)
	Env.OpenAITemperature = getFloatEnvWithDefault("OPENAI_TEMPERATURE", 0.3)

	// Gemini configs
	Env.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	Env.GeminiModel = getEnvWithDefault("GEMINI_MODEL", "gemini-1.5-pro")
	Env.GeminiEmbeddingModel = getEnvWithDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004")
	Env.GeminiMaxCompletionTokens = getIntEnvWithDefault("GEMINI_MAX_COMPLETION_TOKENS", constants.MaxTokensAllowed)
	Env.GeminiTemperature = getFloatEnvWithDefault("GEMINI_TEMPERATURE", 0.3)

	return validateConfig()
}

// Helper functions to get environment variables with defaults and validation
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getRequiredEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strValue)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %d\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %f\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func validateConfig() error {
	// Validate MongoDB URI format
	if !isValidURI(Env.MongoURI) {
		return fmt.Errorf("invalid APPLENS_MONGODB_URI format: %s", Env.MongoURI)
	}

	// Validate JWT expiration
	if Env.JWTExpirationMilliseconds <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_MILLISECONDS must be positive, got: %d", Env.JWTExpirationMilliseconds)
	}

	return nil
}

func isValidURI(uri string) bool {
	return len(uri) > 0 && (len(uri) > 10)
}
