package constants

// LLM provider names
const (
	OpenAI = "openai"
	Gemini = "gemini"
)

// Chat identifiers represent copilot personas. Each one maps to a prompt
// template file under the template directory and optionally to a custom
// completion handler.
const (
	ChatIdentifierDefault                  = "_default"
	ChatIdentifierDetectorCopilot          = "detectorcopilot"
	ChatIdentifierDocsCopilot              = "docscopilot"
	ChatIdentifierKustoCopilot             = "kustogpt"
	ChatIdentifierCompositeQuestionCreator = "compositequestioncreator"
)

// Prompt placeholders replaced while resolving a template's system prompt.
const (
	PlaceholderCurrentDateTime = "<<CURRENT_DATETIME>>"
	PlaceholderArmResourceID   = "<<ARM_RESOURCE_ID>>"
)

// Token ceilings enforced on every completion request regardless of what the
// caller asked for.
const (
	MaxTokensAllowed             = 800
	MaxTokensAllowedForStreaming = 3000
)

// ChatHubMessageStatePrefix keys the per-message cancellation flag in Redis.
// The streaming loop polls this key at chunk boundaries.
const ChatHubMessageStatePrefix = "ChatHub-MessageState-"

// MessageStateCancelled is the flag value written when a client cancels an
// in-flight streaming response.
const MessageStateCancelled = "cancelled"

// Resource-provider identifiers with special-cased feedback matching rules.
const (
	WebAppProvider     = "Microsoft.Web"
	WebAppResourceType = "sites"
	ResourceInfoKind   = "Kind"
)

// OpenAICacheHeader lets a client opt out of the text-completion response
// cache for a single request.
const OpenAICacheHeader = "x-ms-openai-cache"
