package search

import (
	"context"

	"applens-copilot/internal/models"
)

// Embedder converts text into the vector used for similarity search. The llm
// clients satisfy this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexService is a technology-agnostic interface over the feedback and
// document indices. Each index name maps to an isolated collection.
type IndexService interface {
	// AddDocuments indexes the given documents, creating the index when it
	// does not exist yet. Returns true only when every document was indexed.
	AddDocuments(ctx context.Context, documents []models.CognitiveSearchDocument, indexName string) (bool, error)

	// DeleteDocuments removes documents by id. Returns whether every delete
	// succeeded along with the ids that were actually removed.
	DeleteDocuments(ctx context.Context, ids []string, indexName string) (bool, []string, error)

	// Search runs a similarity search and returns the top documents at or
	// above minScore, best match first.
	Search(ctx context.Context, query string, indexName string, topN int, minScore float32) ([]models.CognitiveSearchDocument, error)

	CreateIndex(ctx context.Context, indexName string) error
	DeleteIndex(ctx context.Context, indexName string) error
	ListIndices(ctx context.Context) ([]string, error)

	// Close releases any resources held by the index service.
	Close() error
}
