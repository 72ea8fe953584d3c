package repositories

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"applens-copilot/internal/models"
	"applens-copilot/pkg/mongodb"
)

type FeedbackRepository interface {
	Create(feedback *models.ChatFeedback) error
	FindByID(id, partitionKey string) (*models.ChatFeedback, error)
	Delete(id, partitionKey string) error
}

type feedbackRepository struct {
	collection *mongo.Collection
}

func NewFeedbackRepository(mongoClient *mongodb.MongoDBClient) FeedbackRepository {
	return &feedbackRepository{
		collection: mongoClient.GetCollectionByName("chat_feedback"),
	}
}

func (r *feedbackRepository) Create(feedback *models.ChatFeedback) error {
	feedback.GetPartitionKey()
	_, err := r.collection.InsertOne(context.Background(), feedback)
	if mongo.IsDuplicateKeyError(err) {
		log.Printf("feedback %s already exists, replacing", feedback.ID)
		filter := bson.M{"_id": feedback.ID, "partition_key": feedback.PartitionKey}
		_, err = r.collection.ReplaceOne(context.Background(), filter, feedback)
	}
	return err
}

func (r *feedbackRepository) FindByID(id, partitionKey string) (*models.ChatFeedback, error) {
	var feedback models.ChatFeedback
	filter := bson.M{"_id": id, "partition_key": partitionKey}
	err := r.collection.FindOne(context.Background(), filter).Decode(&feedback)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) Delete(id, partitionKey string) error {
	filter := bson.M{"_id": id, "partition_key": partitionKey}
	_, err := r.collection.DeleteOne(context.Background(), filter)
	return err
}
