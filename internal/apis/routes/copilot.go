package routes

import (
	"log"

	"github.com/gin-gonic/gin"

	"applens-copilot/internal/apis/middlewares"
	"applens-copilot/internal/di"
)

func SetupCopilotRoutes(router *gin.Engine) {
	copilotHandler, err := di.GetCopilotHandler()
	if err != nil {
		log.Fatalf("Failed to get copilot handler: %v", err)
	}
	feedbackHandler, err := di.GetFeedbackHandler()
	if err != nil {
		log.Fatalf("Failed to get feedback handler: %v", err)
	}
	streamHandler, err := di.GetStreamHandler()
	if err != nil {
		log.Fatalf("Failed to get stream handler: %v", err)
	}

	protected := router.Group("/api/copilot")
	protected.Use(middlewares.AuthMiddleware())
	{
		// Availability checks
		protected.GET("/enabled", copilotHandler.CheckEnabled)
		protected.GET("/isCopilotEnabled/:provider/:resourceType/:chatIdentifier", copilotHandler.IsCopilotEnabled)
		protected.GET("/isFeedbackSubmissionEnabled/:provider/:resourceType/:chatIdentifier", copilotHandler.IsFeedbackSubmissionEnabled)

		// Blocking completions
		protected.POST("/runTextCompletion", copilotHandler.RunTextCompletion)
		protected.POST("/runChatCompletion", copilotHandler.RunChatCompletion)

		// Streaming channel
		protected.GET("/chat/stream", streamHandler.EstablishStream)
		protected.POST("/chat/stream/send", streamHandler.SendMessage)
		protected.POST("/chat/stream/cancel", streamHandler.CancelMessage)

		// Feedback
		protected.POST("/feedback", feedbackHandler.SaveFeedback)
		protected.POST("/feedback/related", feedbackHandler.GetRelatedFeedbacks)
		protected.POST("/feedback/purge", feedbackHandler.PurgeFeedbacks)
	}
}
