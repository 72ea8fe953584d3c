package search

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"applens-copilot/internal/models"
)

const defaultVectorSize = 1536

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g., "https://example.qdrant.io:6334").
	URL string

	// APIKey is optional API key for authentication.
	APIKey string

	// VectorSize is the embedding dimension; defaults to the ada-002 size.
	VectorSize uint64
}

// QdrantIndexService implements IndexService on a Qdrant cluster, one
// collection per index name.
type QdrantIndexService struct {
	client     *qdrant.Client
	embedder   Embedder
	vectorSize uint64
}

func NewQdrantIndexService(cfg Config, embedder Embedder) (*QdrantIndexService, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}

	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	vectorSize := cfg.VectorSize
	if vectorSize == 0 {
		vectorSize = defaultVectorSize
	}

	return &QdrantIndexService{
		client:     client,
		embedder:   embedder,
		vectorSize: vectorSize,
	}, nil
}

func (s *QdrantIndexService) CreateIndex(ctx context.Context, indexName string) error {
	exists, err := s.client.CollectionExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", indexName, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: indexName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", indexName, err)
	}
	return nil
}

func (s *QdrantIndexService) DeleteIndex(ctx context.Context, indexName string) error {
	if err := s.client.DeleteCollection(ctx, indexName); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", indexName, err)
	}
	return nil
}

func (s *QdrantIndexService) ListIndices(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

func (s *QdrantIndexService) AddDocuments(ctx context.Context, documents []models.CognitiveSearchDocument, indexName string) (bool, error) {
	if len(documents) == 0 {
		return true, nil
	}

	if err := s.CreateIndex(ctx, indexName); err != nil {
		return false, err
	}

	points := make([]*qdrant.PointStruct, 0, len(documents))
	for _, doc := range documents {
		vector, err := s.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return false, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}

		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":       doc.Title,
				"content":     doc.Content,
				"url":         doc.URL,
				"jsonPayload": doc.JSONPayload,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: indexName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return false, fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return true, nil
}

func (s *QdrantIndexService) DeleteDocuments(ctx context.Context, ids []string, indexName string) (bool, []string, error) {
	deleted := make([]string, 0, len(ids))

	// Delete one id at a time so partial failures report exactly which
	// documents are gone.
	var firstErr error
	for _, id := range ids {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: indexName,
			Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			log.Printf("qdrant delete failed for %s in %s: %v", id, indexName, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted = append(deleted, id)
	}

	return len(deleted) == len(ids), deleted, firstErr
}

func (s *QdrantIndexService) Search(ctx context.Context, query string, indexName string, topN int, minScore float32) ([]models.CognitiveSearchDocument, error) {
	exists, err := s.client.CollectionExists(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", indexName, err)
	}
	if !exists {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := uint64(topN)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: indexName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		ScoreThreshold: &minScore,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]models.CognitiveSearchDocument, 0, len(points))
	for _, point := range points {
		doc := models.CognitiveSearchDocument{}
		if point.Id != nil {
			doc.ID = point.Id.GetUuid()
		}
		for k, v := range point.Payload {
			switch k {
			case "title":
				doc.Title = v.GetStringValue()
			case "content":
				doc.Content = v.GetStringValue()
			case "url":
				doc.URL = v.GetStringValue()
			case "jsonPayload":
				doc.JSONPayload = v.GetStringValue()
			}
		}
		results = append(results, doc)
	}

	return results, nil
}

// Close implements IndexService.
func (s *QdrantIndexService) Close() error {
	return s.client.Close()
}

// Compile-time check that QdrantIndexService implements IndexService.
var _ IndexService = (*QdrantIndexService)(nil)
