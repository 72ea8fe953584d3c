package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applens-copilot/config"
	"applens-copilot/internal/apis/dtos"
	"applens-copilot/internal/constants"
	"applens-copilot/internal/services"
	"applens-copilot/internal/utils"
)

type CopilotHandler struct {
	completionService services.ChatCompletionService
}

func NewCopilotHandler(completionService services.ChatCompletionService) *CopilotHandler {
	return &CopilotHandler{
		completionService: completionService,
	}
}

// mapUpstreamStatus folds provider-side failures into the surface this API
// exposes: client mistakes stay 400, everything that leaked from the
// provider's auth or routing shows up as a plain 500.
func mapUpstreamStatus(statusCode uint) int {
	switch {
	case statusCode == http.StatusBadRequest:
		return http.StatusBadRequest
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden,
		statusCode == http.StatusNotFound,
		statusCode >= http.StatusInternalServerError:
		return http.StatusInternalServerError
	default:
		return int(statusCode)
	}
}

// @Summary Check whether the copilot feature is enabled
// @Produce json
// @Success 200 {object} dtos.Response

func (h *CopilotHandler) CheckEnabled(c *gin.Context) {
	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    dtos.EnabledResponse{Enabled: config.Copilots.Enabled},
	})
}

// @Summary Check whether a copilot is enabled for a resource
// @Produce json
// @Param provider path string true "Resource provider"
// @Param resourceType path string true "Resource type"
// @Param chatIdentifier path string true "Chat identifier"

func (h *CopilotHandler) IsCopilotEnabled(c *gin.Context) {
	userID := c.GetString("userID")
	enabled := config.Copilots.IsUserAllowedAccess(
		c.Param("chatIdentifier"),
		userID,
		c.Param("provider"),
		c.Param("resourceType"),
	)
	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    dtos.EnabledResponse{Enabled: enabled},
	})
}

// @Summary Check whether a user may submit feedback for a resource
// @Produce json
// @Param provider path string true "Resource provider"
// @Param resourceType path string true "Resource type"
// @Param chatIdentifier path string true "Chat identifier"

func (h *CopilotHandler) IsFeedbackSubmissionEnabled(c *gin.Context) {
	userID := c.GetString("userID")
	enabled := config.Copilots.IsUserAllowedToSubmitFeedback(
		c.Param("chatIdentifier"),
		userID,
		c.Param("provider"),
		c.Param("resourceType"),
	)
	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    dtos.EnabledResponse{Enabled: enabled},
	})
}

// @Summary Run a blocking text completion
// @Accept json
// @Produce json
// @Param request body dtos.TextCompletionRequest true "Text completion request"

func (h *CopilotHandler) RunTextCompletion(c *gin.Context) {
	var req dtos.TextCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	if !config.Copilots.Enabled {
		c.JSON(http.StatusUnprocessableEntity, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("chat completion feature is disabled"),
		})
		return
	}

	// The cache is opt-out per request via header.
	useCache := !strings.EqualFold(c.GetHeader(constants.OpenAICacheHeader), "false")

	resp, statusCode, err := h.completionService.RunTextCompletion(c.Request.Context(), req.Payload, useCache)
	if err != nil {
		log.Printf("RunTextCompletion -> err: %v", err)
		c.JSON(mapUpstreamStatus(statusCode), dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    dtos.NewChatCompletionResponse(resp),
	})
}

// @Summary Run a blocking chat completion
// @Accept json
// @Produce json
// @Param request body dtos.RequestChatPayload true "Chat completion request"

func (h *CopilotHandler) RunChatCompletion(c *gin.Context) {
	var req dtos.RequestChatPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	userID := c.GetString("userID")
	if !config.Copilots.IsUserAllowedAccess(req.MetaData.ChatIdentifier, userID, req.MetaData.Provider(), req.MetaData.ResourceType()) {
		c.JSON(http.StatusUnauthorized, dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr("copilot access is not allowed for this user"),
		})
		return
	}

	resp, statusCode, err := h.completionService.RunChatCompletion(c.Request.Context(), &req.MetaData, req.Messages)
	if err != nil {
		log.Printf("RunChatCompletion -> err: %v", err)
		c.JSON(mapUpstreamStatus(statusCode), dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, dtos.Response{
		Success: true,
		Data:    dtos.NewChatCompletionResponse(resp),
	})
}
