package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"applens-copilot/internal/models"
	"applens-copilot/pkg/llm"
	"applens-copilot/pkg/redis"
)

// mapTemplateSource serves templates from memory.
type mapTemplateSource struct {
	files map[string]string
}

func (s *mapTemplateSource) ListFiles() ([]string, error) {
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names, nil
}

func (s *mapTemplateSource) ReadFile(name string) (string, error) {
	content, ok := s.files[name]
	if !ok {
		return "", fmt.Errorf("no such template %s", name)
	}
	return content, nil
}

func newTestTemplateService(t *testing.T, files map[string]string) TemplateService {
	t.Helper()
	if _, ok := files["_default.json"]; !ok {
		files["_default.json"] = `{"systemPrompt": "You are a diagnostics assistant."}`
	}
	service, err := NewTemplateService(&mapTemplateSource{files: files})
	if err != nil {
		t.Fatalf("template service: %v", err)
	}
	return service
}

// fakeIndexService records calls and serves canned search results keyed by
// index name.
type fakeIndexService struct {
	searchResults map[string][]models.CognitiveSearchDocument
	searchedTopN  int
	searchedIndex string

	added        map[string][]models.CognitiveSearchDocument
	addErr       error
	addOK        bool
	addCalls     int
	deleteResult func(ids []string) (bool, []string, error)
}

func newFakeIndexService() *fakeIndexService {
	return &fakeIndexService{
		searchResults: make(map[string][]models.CognitiveSearchDocument),
		added:         make(map[string][]models.CognitiveSearchDocument),
		addOK:         true,
	}
}

func (f *fakeIndexService) AddDocuments(_ context.Context, documents []models.CognitiveSearchDocument, indexName string) (bool, error) {
	f.addCalls++
	if f.addErr != nil {
		return false, f.addErr
	}
	if !f.addOK {
		return false, nil
	}
	f.added[indexName] = append(f.added[indexName], documents...)
	return true, nil
}

func (f *fakeIndexService) DeleteDocuments(_ context.Context, ids []string, _ string) (bool, []string, error) {
	if f.deleteResult != nil {
		return f.deleteResult(ids)
	}
	return true, ids, nil
}

func (f *fakeIndexService) Search(_ context.Context, _ string, indexName string, topN int, _ float32) ([]models.CognitiveSearchDocument, error) {
	f.searchedIndex = indexName
	f.searchedTopN = topN
	return f.searchResults[indexName], nil
}

func (f *fakeIndexService) CreateIndex(context.Context, string) error { return nil }
func (f *fakeIndexService) DeleteIndex(context.Context, string) error { return nil }
func (f *fakeIndexService) ListIndices(context.Context) ([]string, error) {
	return nil, nil
}
func (f *fakeIndexService) Close() error { return nil }

// fakeLLMClient scripts the provider side of a completion.
type fakeLLMClient struct {
	chatResponse   *models.ChatResponse
	chatErr        error
	lastChatOpts   *models.ExtendedChatCompletionsOptions
	streamChunks   []string
	streamFinish   string
	textResponse   *models.ChatResponse
	textErr        error
	textCalls      int
	lastTextPrompt string
}

func (f *fakeLLMClient) ChatComplete(_ context.Context, opts *models.ExtendedChatCompletionsOptions, _ string) (*models.ChatResponse, error) {
	f.lastChatOpts = opts
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chatResponse != nil {
		return f.chatResponse, nil
	}
	return &models.ChatResponse{Text: "ok", FinishReason: "stop"}, nil
}

func (f *fakeLLMClient) StreamChatComplete(_ context.Context, opts *models.ExtendedChatCompletionsOptions, _ string, onDelta llm.StreamCallback) (string, error) {
	f.lastChatOpts = opts
	for _, chunk := range f.streamChunks {
		if err := onDelta(chunk); err != nil {
			return "", err
		}
	}
	if f.streamFinish == "" {
		return "stop", nil
	}
	return f.streamFinish, nil
}

func (f *fakeLLMClient) TextComplete(_ context.Context, payload llm.TextCompletionPayload) (*models.ChatResponse, error) {
	f.textCalls++
	f.lastTextPrompt = payload.Prompt
	if f.textErr != nil {
		return nil, f.textErr
	}
	if f.textResponse != nil {
		return f.textResponse, nil
	}
	return &models.ChatResponse{Text: "condensed question", FinishReason: "stop"}, nil
}

func (f *fakeLLMClient) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (f *fakeLLMClient) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Name: "fake", Provider: "fake"}
}

func newTestLLMManager(client llm.Client) *llm.Manager {
	manager := llm.NewManager()
	manager.AddClient("fake", client)
	return manager
}

// fakeRedis is an in-memory stand-in for the cache and cancellation flags.
type fakeRedis struct {
	values   map[string]string
	getCalls int
	setCalls int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Set(key string, data []byte, _ time.Duration, _ context.Context) error {
	f.setCalls++
	f.values[key] = string(data)
	return nil
}

func (f *fakeRedis) Get(key string, _ context.Context) (string, error) {
	f.getCalls++
	value, ok := f.values[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return value, nil
}

func (f *fakeRedis) GetDel(key string, _ context.Context) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	delete(f.values, key)
	return value, nil
}

func (f *fakeRedis) Del(key string, _ context.Context) error {
	delete(f.values, key)
	return nil
}

func (f *fakeRedis) TTL(string, context.Context) (time.Duration, error) {
	return 0, nil
}

// fakeFeedbackRepository is an in-memory authoritative store.
type fakeFeedbackRepository struct {
	records   map[string]*models.ChatFeedback
	createErr error
	deleteErr map[string]error
}

func newFakeFeedbackRepository() *fakeFeedbackRepository {
	return &fakeFeedbackRepository{
		records:   make(map[string]*models.ChatFeedback),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeFeedbackRepository) Create(feedback *models.ChatFeedback) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *feedback
	f.records[feedback.ID] = &clone
	return nil
}

func (f *fakeFeedbackRepository) FindByID(id, _ string) (*models.ChatFeedback, error) {
	return f.records[id], nil
}

func (f *fakeFeedbackRepository) Delete(id, _ string) error {
	if err, ok := f.deleteErr[id]; ok {
		return err
	}
	delete(f.records, id)
	return nil
}
