package dtos

type StreamResponse struct {
	Event string      `json:"event"` // sse-connected, heartbeat, chat-chunk, chat-complete, response-cancelled, chat-error
	Data  interface{} `json:"data,omitempty"`
}

// StreamChunk is the data of a chat-chunk or chat-complete event.
type StreamChunk struct {
	MessageID    string `json:"messageId"`
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}
