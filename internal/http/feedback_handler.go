package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcase/internal/service"
)

type FeedbackHandler struct {
	logger   *zap.Logger
	feedback *service.FeedbackService
}

func NewFeedbackHandler(logger *zap.Logger, feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{logger: logger, feedback: feedback}
}

// Get maneja GET /api/feedback/:chatId.
func (h *FeedbackHandler) Get(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	fb, err := h.feedback.Build(c.Request.Context(), chatID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatNotFound):
			respondNotFound(c, "Chat not found")
		case errors.Is(err, service.ErrCaseNotFound):
			respondNotFound(c, "Case not found")
		case errors.Is(err, service.ErrNotCompleted):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Case not completed"})
		default:
			respondInternal(c, h.logger, "build feedback failed", err)
		}
		return
	}
	c.JSON(http.StatusOK, fb)
}
