package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcase/internal/service"
)

// CompletionHandler expone diagnosticos, reintentos y estadisticas.
type CompletionHandler struct {
	logger      *zap.Logger
	completions *service.CompletionService
	stats       *service.StatsService
}

func NewCompletionHandler(logger *zap.Logger, completions *service.CompletionService, stats *service.StatsService) *CompletionHandler {
	return &CompletionHandler{logger: logger, completions: completions, stats: stats}
}

type completeRequest struct {
	CaseID    int64  `json:"caseId" binding:"required"`
	ChatID    int64  `json:"chatId" binding:"required"`
	Diagnosis string `json:"diagnosis" binding:"required"`
}

// Complete maneja POST /api/completions.
func (h *CompletionHandler) Complete(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid completion request", zap.Error(err))
		respondBindError(c, err)
		return
	}

	res, err := h.completions.Complete(c.Request.Context(), user.UserID, req.CaseID, req.ChatID, req.Diagnosis)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaseNotFound):
			respondNotFound(c, "Case not found")
		case errors.Is(err, service.ErrChatNotFound):
			respondNotFound(c, "Chat not found")
		default:
			respondInternal(c, h.logger, "complete case failed", err)
		}
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Retry maneja DELETE /api/completions/retry/:chatId.
func (h *CompletionHandler) Retry(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	if err := h.completions.Retry(c.Request.Context(), chatID); err != nil {
		respondInternal(c, h.logger, "retry completion failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats maneja GET /api/completions/stats.
func (h *CompletionHandler) Stats(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	stats, err := h.stats.GetUserStats(c.Request.Context(), user.UserID)
	if err != nil {
		respondInternal(c, h.logger, "get stats failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CompletedCases maneja GET /api/completions/completed-cases.
func (h *CompletionHandler) CompletedCases(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	ids, err := h.stats.GetCompletedCaseIDs(c.Request.Context(), user.UserID)
	if err != nil {
		respondInternal(c, h.logger, "get completed cases failed", err)
		return
	}
	c.JSON(http.StatusOK, ids)
}
