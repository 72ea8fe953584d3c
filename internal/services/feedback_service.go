package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"applens-copilot/internal/models"
	"applens-copilot/internal/repositories"
	"applens-copilot/pkg/search"
)

// FeedbackService keeps the authoritative feedback store and the search
// index consistent. The store is written first on save and last on delete,
// with compensating writes when the second leg fails, so a record is never
// retrievable from the index without existing in the store.
type FeedbackService interface {
	SaveFeedback(ctx context.Context, feedback *models.ChatFeedback) (*models.ChatFeedback, uint, error)

	// DeleteFeedbacks removes the given ids from both stores. Returns whether
	// every delete fully succeeded together with the ids actually removed.
	DeleteFeedbacks(ctx context.Context, ids []string, chatIdentifier, provider, resourceType string) (bool, []string, uint, error)
}

type feedbackService struct {
	feedbackRepo repositories.FeedbackRepository
	indexService search.IndexService
}

func NewFeedbackService(feedbackRepo repositories.FeedbackRepository, indexService search.IndexService) FeedbackService {
	return &feedbackService{
		feedbackRepo: feedbackRepo,
		indexService: indexService,
	}
}

func (s *feedbackService) SaveFeedback(ctx context.Context, feedback *models.ChatFeedback) (*models.ChatFeedback, uint, error) {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.Timestamp.IsZero() {
		feedback.Timestamp = time.Now().UTC()
	}
	partitionKey := feedback.GetPartitionKey()

	if err := s.feedbackRepo.Create(feedback); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to persist feedback: %w", err)
	}

	doc, err := feedbackToSearchDocument(feedback)
	if err != nil {
		s.compensateStoreInsert(feedback.ID, partitionKey)
		return nil, http.StatusInternalServerError, err
	}

	ok, err := s.indexService.AddDocuments(ctx, []models.CognitiveSearchDocument{*doc}, partitionKey)
	if err != nil || !ok {
		// The index leg failed; roll the store back so the record does not
		// exist in one store only.
		s.compensateStoreInsert(feedback.ID, partitionKey)
		if err == nil {
			err = fmt.Errorf("failed to index feedback %s", feedback.ID)
		}
		return nil, http.StatusInternalServerError, err
	}

	return feedback, http.StatusOK, nil
}

func (s *feedbackService) DeleteFeedbacks(ctx context.Context, ids []string, chatIdentifier, provider, resourceType string) (bool, []string, uint, error) {
	if len(ids) == 0 {
		return true, nil, http.StatusOK, nil
	}
	partitionKey := models.GetPartitionKey(chatIdentifier, provider, resourceType)

	allIndexed, removedFromIndex, err := s.indexService.DeleteDocuments(ctx, ids, partitionKey)
	if err != nil {
		log.Printf("index delete incomplete for partition %s: %v", partitionKey, err)
	}

	deleted := make([]string, 0, len(removedFromIndex))
	allSucceeded := allIndexed
	for _, id := range removedFromIndex {
		if err := s.feedbackRepo.Delete(id, partitionKey); err == nil {
			deleted = append(deleted, id)
			continue
		} else {
			log.Printf("store delete failed for feedback %s: %v", id, err)
		}

		// The store delete errored, but the record may already be gone.
		// Check what actually survived before compensating.
		record, ferr := s.feedbackRepo.FindByID(id, partitionKey)
		if ferr != nil {
			log.Printf("failed to load feedback %s after delete error: %v", id, ferr)
			allSucceeded = false
			continue
		}
		if record == nil {
			// Absent from the store, so the delete is complete after all.
			deleted = append(deleted, id)
			continue
		}

		// Restore the index entry so the record stays retrievable.
		allSucceeded = false
		if doc, derr := feedbackToSearchDocument(record); derr == nil {
			if _, rerr := s.indexService.AddDocuments(ctx, []models.CognitiveSearchDocument{*doc}, partitionKey); rerr != nil {
				log.Printf("failed to restore index entry for feedback %s: %v", id, rerr)
			}
		}
	}

	return allSucceeded, deleted, http.StatusOK, nil
}

func (s *feedbackService) compensateStoreInsert(id, partitionKey string) {
	if err := s.feedbackRepo.Delete(id, partitionKey); err != nil {
		log.Printf("compensating delete failed for feedback %s: %v", id, err)
	}
}

// feedbackToSearchDocument projects a feedback record into its index form.
// The question drives similarity; the full record rides along serialized so
// retrieval can reconstruct it without a store round trip.
func feedbackToSearchDocument(feedback *models.ChatFeedback) (*models.CognitiveSearchDocument, error) {
	payload, err := json.Marshal(feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize feedback %s: %w", feedback.ID, err)
	}
	return &models.CognitiveSearchDocument{
		ID:          feedback.ID,
		Title:       feedback.ChatIdentifier,
		Content:     feedback.UserQuestion,
		JSONPayload: string(payload),
	}, nil
}
