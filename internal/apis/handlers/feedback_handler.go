package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applens-copilot/config"
	"applens-copilot/internal/apis/dtos"
	"applens-copilot/internal/models"
	"applens-copilot/internal/services"
	"applens-copilot/internal/utils"
)

type FeedbackHandler struct {
	feedbackService  services.FeedbackService
	retrievalService services.RetrievalService
}

func NewFeedbackHandler(feedbackService services.FeedbackService, retrievalService services.RetrievalService) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService:  feedbackService,
		retrievalService: retrievalService,
	}
}

// alias strips the domain from an email-like identifier.
func alias(userID string) string {
	return strings.TrimSpace(strings.SplitN(userID, "@", 2)[0])
}

func (h *FeedbackHandler) allowed(c *gin.Context, chatIdentifier, provider, resourceType string) bool {
	userID := c.GetString("userID")
	if config.Copilots.IsUserAllowedToSubmitFeedback(chatIdentifier, userID, provider, resourceType) {
		return true
	}
	c.JSON(http.StatusUnauthorized, dtos.Response{
		Success: false,
		Error:   utils.ToStringPtr("feedback access is not allowed for this user"),
	})
	return false
}

// @Summary Save a feedback record
// @Accept json
// @Produce json
// @Param feedback body models.ChatFeedback true "Feedback record"

func (h *FeedbackHandler) SaveFeedback(c *gin.Context) {
	var feedback models.ChatFeedback
	if err := c.ShouldBindJSON(&feedback); err != nil {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	if strings.TrimSpace(feedback.UserQuestion) == "" || strings.TrimSpace(feedback.ExpectedResponse) == "" {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("userQuestion and expectedResponse are required"),
		})
		return
	}

	if !h.allowed(c, feedback.ChatIdentifier, feedback.Provider, feedback.ResourceType) {
		return
	}
	userID := c.GetString("userID")
	if feedback.SubmittedBy == "" {
		feedback.SubmittedBy = userID
	} else if !strings.EqualFold(alias(feedback.SubmittedBy), alias(userID)) {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("submittedBy must match the calling user"),
		})
		return
	}

	saved, statusCode, err := h.feedbackService.SaveFeedback(c.Request.Context(), &feedback)
	if err != nil {
		log.Printf("SaveFeedback -> err: %v", err)
		c.JSON(int(statusCode), dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    saved,
	})
}

// @Summary Delete feedback records from the store and the index
// @Accept json
// @Produce json
// @Param request body dtos.ChatFeedbackPurgeRequest true "Purge request"

func (h *FeedbackHandler) PurgeFeedbacks(c *gin.Context) {
	var req dtos.ChatFeedbackPurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	if !h.allowed(c, req.ChatIdentifier, req.Provider, req.ResourceType) {
		return
	}

	allSucceeded, deleted, statusCode, err := h.feedbackService.DeleteFeedbacks(c.Request.Context(), req.FeedbackIDs, req.ChatIdentifier, req.Provider, req.ResourceType)
	if err != nil {
		log.Printf("PurgeFeedbacks -> err: %v", err)
		c.JSON(int(statusCode), dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data: dtos.ChatFeedbackPurgeResponse{
			AllSucceeded: allSucceeded,
			DeletedIDs:   deleted,
		},
	})
}

// @Summary Fetch feedback records related to a chat history
// @Accept json
// @Produce json
// @Param request body dtos.RequestChatPayload true "Chat history"

func (h *FeedbackHandler) GetRelatedFeedbacks(c *gin.Context) {
	var req dtos.RequestChatPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	if !h.allowed(c, req.MetaData.ChatIdentifier, req.MetaData.Provider(), req.MetaData.ResourceType()) {
		return
	}

	records, err := h.retrievalService.GetRelatedFeedbacks(c.Request.Context(), &req.MetaData, req.Messages)
	if err != nil {
		log.Printf("GetRelatedFeedbacks -> err: %v", err)
		c.JSON(http.StatusInternalServerError, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    records,
	})
}
