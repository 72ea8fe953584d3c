package models

import (
	"strings"
)

// Chat roles as sent to the completion providers.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is a single turn of a conversation. Ordering within a
// conversation is significant and preserved end to end.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMetaData carries the per-request routing and prompt-resolution inputs.
// Provider and ResourceType are derived from ArmResourceId on first access and
// cached; ArmResourceId is expected to be set before either is read.
type ChatMetaData struct {
	MessageID            string            `json:"messageId"`
	ChatIdentifier       string            `json:"chatIdentifier"`
	ChatModel            string            `json:"chatModel"`
	MaxTokens            int               `json:"maxTokens"`
	AzureServiceName     string            `json:"azureServiceName"`
	ArmResourceID        string            `json:"armResourceId"`
	CustomPrompt         string            `json:"customPrompt,omitempty"`
	ResourceSpecificInfo map[string]string `json:"resourceSpecificInfo,omitempty"`

	provider     string
	resourceType string
	derived      bool
}

// deriveFromArmResourceID parses the segment following "/providers/": the
// first part is the resource provider, the second the resource type.
func (m *ChatMetaData) deriveFromArmResourceID() {
	if m.derived {
		return
	}
	m.derived = true
	idx := strings.Index(strings.ToLower(m.ArmResourceID), "/providers/")
	if idx < 0 {
		return
	}
	parts := strings.Split(m.ArmResourceID[idx+len("/providers/"):], "/")
	if len(parts) > 0 {
		m.provider = parts[0]
	}
	if len(parts) > 1 {
		m.resourceType = parts[1]
	}
}

func (m *ChatMetaData) Provider() string {
	m.deriveFromArmResourceID()
	return m.provider
}

func (m *ChatMetaData) ResourceType() string {
	m.deriveFromArmResourceID()
	return m.resourceType
}

// SetProviderAndResourceType overrides the derived values. Used by callers
// that address a partition directly without an ARM resource id.
func (m *ChatMetaData) SetProviderAndResourceType(provider, resourceType string) {
	m.derived = true
	m.provider = provider
	m.resourceType = resourceType
}

// ChatResponse is the blocking-completion result returned to the client.
type ChatResponse struct {
	Text         string   `json:"text"`
	FinishReason string   `json:"finishReason"`
	FeedbackIDs  []string `json:"feedbackIds,omitempty"`
}

// Truncated reports whether the model stopped because it ran out of tokens.
func (r *ChatResponse) Truncated() bool {
	return strings.EqualFold(r.FinishReason, "length")
}

// ChatStreamResponse is one incremental chunk of a streaming completion. The
// terminal chunk carries a non-empty FinishReason and, when feedback records
// were folded into the prompt, their serialized ids as content.
type ChatStreamResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finishReason"`
}

// ExtendedChatCompletionsOptions is the fully resolved completion request:
// message list, sampling parameters and the ids of feedback records whose
// content was injected into the system prompt.
type ExtendedChatCompletionsOptions struct {
	Messages         []ChatMessage
	Temperature      float32
	MaxTokens        int
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	FeedbackIDsUsed  []string
}
