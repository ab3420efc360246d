package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcase/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de chats y mensajes.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chatServ: chatServ}
}

type createChatRequest struct {
	CaseID int64 `json:"caseId" binding:"required"`
}

// CreateChat maneja POST /api/chats.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create chat request", zap.Error(err))
		respondBindError(c, err)
		return
	}

	chat, err := h.chatServ.CreateChat(c.Request.Context(), user.UserID, req.CaseID)
	if err != nil {
		h.chatError(c, "create chat failed", err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

// GetChat maneja GET /api/chats/:id; devuelve el chat con sus mensajes.
func (h *ChatHandler) GetChat(c *gin.Context) {
	id, ok := lookupID(c, "id", "Chat not found")
	if !ok {
		return
	}
	chat, err := h.chatServ.GetChatWithMessages(c.Request.Context(), id)
	if err != nil {
		h.chatError(c, "get chat failed", err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

type postMessageRequest struct {
	Sender  string `json:"sender" binding:"required,oneof=user ai"`
	Content string `json:"content" binding:"required"`
}

// PostMessage maneja POST /api/chats/:id/messages. La respuesta del paciente llega
// despues, de forma asincrona.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Int64("chat_id", id), zap.Error(err))
		respondBindError(c, err)
		return
	}

	msg, err := h.chatServ.AddMessage(c.Request.Context(), id, req.Sender, req.Content)
	if err != nil {
		h.chatError(c, "add message failed", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// DeleteLastUserMessage maneja DELETE /api/messages/:id/last-user; :id es el chat.
func (h *ChatHandler) DeleteLastUserMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.chatServ.DeleteLastUserMessage(c.Request.Context(), id); err != nil {
		respondInternal(c, h.logger, "delete last user message failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) chatError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrCaseNotFound):
		respondNotFound(c, "Case not found")
	case errors.Is(err, service.ErrChatNotFound):
		respondNotFound(c, "Chat not found")
	case errors.Is(err, service.ErrInvalidInput):
		var fe *service.FieldError
		field := ""
		if errors.As(err, &fe) {
			field = fe.Field
		}
		respondValidation(c, err.Error(), field)
	default:
		respondInternal(c, h.logger, msg, err)
	}
}
