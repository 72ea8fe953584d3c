package models

// CognitiveSearchDocument is the denormalized projection stored in the search
// index. JsonPayload carries the serialized source record verbatim; the index
// never inspects it, and retrieval reconstructs the original record from it.
type CognitiveSearchDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url,omitempty"`
	JSONPayload string `json:"jsonPayload,omitempty"`
}

// SearchSettingsBase holds the knobs shared by document and feedback search.
type SearchSettingsBase struct {
	IndexName         string  `json:"indexName"`
	IncludeReferences bool    `json:"includeReferences"`
	NumDocuments      int     `json:"numDocuments"`
	MinScore          float64 `json:"minScore"`
}

// DocumentSearchSettings configures supporting-document retrieval for a
// template. The placeholder marks where retrieved content is injected.
type DocumentSearchSettings struct {
	SearchSettingsBase
	DocumentContentPlaceholder string `json:"documentContentPlaceholder"`
}

// ChatFeedbackSearchSettings configures feedback retrieval for a template.
type ChatFeedbackSearchSettings struct {
	SearchSettingsBase
	ContentPlaceholder string `json:"contentPlaceholder"`
}

// NewDocumentSearchSettings returns settings with the defaults applied.
func NewDocumentSearchSettings() *DocumentSearchSettings {
	return &DocumentSearchSettings{
		SearchSettingsBase:         SearchSettingsBase{NumDocuments: 3, MinScore: 0.5},
		DocumentContentPlaceholder: "<<DOCUMENT_CONTENT_HERE>>",
	}
}

// NewChatFeedbackSearchSettings returns settings with the defaults applied.
func NewChatFeedbackSearchSettings() *ChatFeedbackSearchSettings {
	return &ChatFeedbackSearchSettings{
		SearchSettingsBase: SearchSettingsBase{NumDocuments: 10, MinScore: 0.5},
		ContentPlaceholder: "<<FEEDBACK_CONTENT_HERE>>",
	}
}

// Clone returns a copy that can be mutated (e.g. to over-fetch) without
// affecting the template's settings.
func (s *ChatFeedbackSearchSettings) Clone() *ChatFeedbackSearchSettings {
	c := *s
	return &c
}
