package models

import (
	"regexp"
	"strings"
	"time"
)

// ChatFeedback is a stored correction record: the question a user asked, the
// answer the copilot got wrong, and the answer a human says it should have
// given. It serves both as an audit trail and as retrievable few-shot context
// for future prompts.
type ChatFeedback struct {
	ID                      string            `bson:"_id" json:"id"`
	Timestamp               time.Time         `bson:"timestamp" json:"timestamp"`
	Provider                string            `bson:"provider" json:"provider"`
	ResourceType            string            `bson:"resource_type" json:"resourceType"`
	ChatIdentifier          string            `bson:"chat_identifier" json:"chatIdentifier"`
	SubmittedBy             string            `bson:"submitted_by" json:"submittedBy"`
	UserQuestion            string            `bson:"user_question" json:"userQuestion"`
	IncorrectSystemResponse string            `bson:"incorrect_system_response" json:"incorrectSystemResponse"`
	ExpectedResponse        string            `bson:"expected_response" json:"expectedResponse"`
	FeedbackExplanation     string            `bson:"feedback_explanation" json:"feedbackExplanation"`
	AdditionalFields        map[string]string `bson:"additional_fields,omitempty" json:"additionalFields,omitempty"`
	ResourceSpecificInfo    map[string]string `bson:"resource_specific_info,omitempty" json:"resourceSpecificInfo,omitempty"`
	LinkedFeedbackIDs       []string          `bson:"linked_feedback_ids,omitempty" json:"linkedFeedbackIds,omitempty"`
	PartitionKey            string            `bson:"partition_key" json:"partitionKey"`
}

var nonIndexChars = regexp.MustCompile("[^a-z0-9-]+")

// GetPartitionKey derives the storage and search-index partition for a
// (chatIdentifier, provider, resourceType) triple. The result is lowercase,
// limited to [a-z0-9-], has no leading or trailing hyphen and is capped at 127
// characters to satisfy index naming constraints. The same triple always
// yields the same key.
func GetPartitionKey(chatIdentifier, provider, resourceType string) string {
	if strings.TrimSpace(chatIdentifier) == "" {
		chatIdentifier = "default"
	}
	return normalizeIndexName(chatIdentifier + "-" + provider + "-" + resourceType)
}

func normalizeIndexName(str string) string {
	if strings.TrimSpace(str) == "" {
		return str
	}

	str = strings.ToLower(strings.Trim(strings.ReplaceAll(str, " ", ""), "-"))
	str = nonIndexChars.ReplaceAllString(str, "-")
	str = strings.Trim(str, "-")
	if len(str) > 127 {
		// The cap can land on a separator; trim again so the invariant holds.
		str = strings.TrimRight(str[:127], "-")
	}
	return str
}

// GetPartitionKey returns the partition for this record, deriving it from the
// record's own triple when it was not set at construction time.
func (f *ChatFeedback) GetPartitionKey() string {
	if f.PartitionKey == "" {
		f.PartitionKey = GetPartitionKey(f.ChatIdentifier, f.Provider, f.ResourceType)
	}
	return f.PartitionKey
}
