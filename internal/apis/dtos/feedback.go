package dtos

// ChatFeedbackPurgeRequest names the feedback records to remove from both
// the store and the index.
type ChatFeedbackPurgeRequest struct {
	FeedbackIDs    []string `json:"feedbackIds" binding:"required"`
	ChatIdentifier string   `json:"chatIdentifier"`
	Provider       string   `json:"provider" binding:"required"`
	ResourceType   string   `json:"resourceType" binding:"required"`
}

// ChatFeedbackPurgeResponse reports which records were actually removed.
type ChatFeedbackPurgeResponse struct {
	AllSucceeded bool     `json:"allSucceeded"`
	DeletedIDs   []string `json:"deletedIds"`
}
