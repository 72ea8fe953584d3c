package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"applens-copilot/config"
	"applens-copilot/internal/apis/dtos"
	"applens-copilot/internal/constants"
	"applens-copilot/internal/models"
	"applens-copilot/internal/services"
	"applens-copilot/internal/utils"
	"applens-copilot/pkg/redis"
)

// cancellationFlagTTL bounds how long an unobserved cancel flag lingers when
// the stream it targets already finished.
const cancellationFlagTTL = 5 * time.Minute

type StreamHandler struct {
	completionService services.ChatCompletionService
	redisRepo         redis.IRedisRepositories
	streamMutex       sync.RWMutex
	streams           map[string]chan dtos.StreamResponse // key: userID:streamID
}

func NewStreamHandler(completionService services.ChatCompletionService, redisRepo redis.IRedisRepositories) *StreamHandler {
	return &StreamHandler{
		completionService: completionService,
		redisRepo:         redisRepo,
		streamMutex:       sync.RWMutex{},
		streams:           make(map[string]chan dtos.StreamResponse),
	}
}

func (h *StreamHandler) sendStreamEvent(streamKey string, event dtos.StreamResponse) {
	h.streamMutex.RLock()
	streamChan, exists := h.streams[streamKey]
	h.streamMutex.RUnlock()
	if !exists {
		log.Printf("No active stream for key: %s, dropping event: %s", streamKey, event.Event)
		return
	}

	select {
	case streamChan <- event:
	default:
		log.Printf("Stream channel full for key: %s, dropping event: %s", streamKey, event.Event)
	}
}

// @Summary Establish the SSE channel
// @Produce text/event-stream
// @Param stream_id query string true "Stream ID"

func (h *StreamHandler) EstablishStream(c *gin.Context) {
	userID := c.GetString("userID")
	streamID := c.Query("stream_id")
	if streamID == "" {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("stream_id is required"),
		})
		return
	}

	streamKey := fmt.Sprintf("%s:%s", userID, streamID)
	log.Printf("Starting stream for key: %s", streamKey)

	// Create buffered channel
	h.streamMutex.Lock()
	streamChan := make(chan dtos.StreamResponse, 100)
	h.streams[streamKey] = streamChan
	h.streamMutex.Unlock()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	ctx := c.Request.Context()
	heartbeatTicker := time.NewTicker(30 * time.Second)
	defer heartbeatTicker.Stop()

	// Cleanup on exit
	defer func() {
		h.streamMutex.Lock()
		if ch, exists := h.streams[streamKey]; exists {
			close(ch)
			delete(h.streams, streamKey)
			log.Printf("Cleaned up stream for key: %s", streamKey)
		}
		h.streamMutex.Unlock()
	}()

	// Send initial connection event
	data, _ := json.Marshal(dtos.StreamResponse{
		Event: "sse-connected",
		Data:  "Stream established",
	})
	c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Client disconnected for stream key: %s", streamKey)
			return

		case <-heartbeatTicker.C:
			data, _ := json.Marshal(dtos.StreamResponse{
				Event: "heartbeat",
				Data:  "ping",
			})
			c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
			c.Writer.Flush()

		case msg, ok := <-streamChan:
			if !ok {
				log.Printf("Stream channel closed for key: %s", streamKey)
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
			c.Writer.Flush()
		}
	}
}

// @Summary Send a message on an established stream
// @Accept json
// @Produce json
// @Param stream_id query string true "Stream ID"
// @Param request body dtos.RequestChatPayload true "Chat completion request"

func (h *StreamHandler) SendMessage(c *gin.Context) {
	userID := c.GetString("userID")
	streamID := c.Query("stream_id")
	if streamID == "" {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("stream_id is required"),
		})
		return
	}

	var req dtos.RequestChatPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	if !config.Copilots.IsUserAllowedAccess(req.MetaData.ChatIdentifier, userID, req.MetaData.Provider(), req.MetaData.ResourceType()) {
		c.JSON(http.StatusUnauthorized, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("copilot access is not allowed for this user"),
		})
		return
	}

	streamKey := fmt.Sprintf("%s:%s", userID, streamID)
	h.streamMutex.RLock()
	_, exists := h.streams[streamKey]
	h.streamMutex.RUnlock()
	if !exists {
		c.JSON(http.StatusNotFound, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("no active stream for stream_id"),
		})
		return
	}

	metadata := req.MetaData
	messages := req.Messages
	go h.runStreamedCompletion(streamKey, &metadata, messages)

	c.JSON(http.StatusAccepted, dtos.Response{
		Success: true,
		Data:    gin.H{"messageId": metadata.MessageID},
	})
}

func (h *StreamHandler) runStreamedCompletion(streamKey string, metadata *models.ChatMetaData, messages []models.ChatMessage) {
	err := h.completionService.StreamChatCompletion(context.Background(), metadata, messages, func(chunk models.ChatStreamResponse) error {
		event := "chat-chunk"
		if chunk.FinishReason != "" {
			event = "chat-complete"
		}
		h.sendStreamEvent(streamKey, dtos.StreamResponse{
			Event: event,
			Data: dtos.StreamChunk{
				MessageID:    metadata.MessageID,
				Content:      chunk.Content,
				FinishReason: chunk.FinishReason,
			},
		})
		return nil
	})
	if err == nil {
		return
	}

	if errors.Is(err, services.ErrStreamCancelled) {
		h.sendStreamEvent(streamKey, dtos.StreamResponse{
			Event: "response-cancelled",
			Data: dtos.StreamChunk{
				MessageID:    metadata.MessageID,
				FinishReason: constants.MessageStateCancelled,
			},
		})
		return
	}

	log.Printf("StreamChatCompletion -> err: %v", err)
	// Partial output already sent stands; the failure terminates the message
	// the same way a cancellation does.
	h.sendStreamEvent(streamKey, dtos.StreamResponse{
		Event: "chat-error",
		Data: dtos.StreamChunk{
			MessageID:    metadata.MessageID,
			FinishReason: constants.MessageStateCancelled,
		},
	})
}

// @Summary Cancel an in-flight streamed message
// @Produce json
// @Param message_id query string true "Message ID"

func (h *StreamHandler) CancelMessage(c *gin.Context) {
	messageID := c.Query("message_id")
	if messageID == "" {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("message_id is required"),
		})
		return
	}

	key := constants.ChatHubMessageStatePrefix + messageID
	if err := h.redisRepo.Set(key, []byte(constants.MessageStateCancelled), cancellationFlagTTL, c.Request.Context()); err != nil {
		log.Printf("CancelMessage -> err: %v", err)
		c.JSON(http.StatusInternalServerError, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	// Cancelling a message that already finished is a no-op; the flag just
	// expires unobserved.
	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    gin.H{"messageId": messageID},
	})
}
