package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcase/internal/service"
)

// UserHandler expone la identidad actual y la emision de tokens.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *UserHandler {
	return &UserHandler{logger: logger, userServ: userServ, jwtServ: jwtServ}
}

// Me maneja GET /api/me.
func (h *UserHandler) Me(c *gin.Context) {
	uc, ok := requireUser(c)
	if !ok {
		return
	}
	user, err := h.userServ.GetByID(c.Request.Context(), uc.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondNotFound(c, "User not found")
			return
		}
		respondInternal(c, h.logger, "get current user failed", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type issueTokenRequest struct {
	Username string `json:"username" binding:"required"`
}

// IssueToken maneja POST /api/auth/token para un usuario existente.
func (h *UserHandler) IssueToken(c *gin.Context) {
	if !h.requireJWT(c) {
		return
	}
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userServ.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondNotFound(c, "User not found")
		case errors.Is(err, service.ErrInvalidInput):
			respondValidation(c, "username is required", "username")
		default:
			respondInternal(c, h.logger, "lookup user failed", err)
		}
		return
	}

	tokens, err := h.jwtServ.GeneratePair(c.Request.Context(), user)
	if err != nil {
		respondInternal(c, h.logger, "issue tokens failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": tokens})
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh maneja POST /api/auth/refresh. El refresh token usado queda revocado.
func (h *UserHandler) Refresh(c *gin.Context) {
	if !h.requireJWT(c) {
		return
	}
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tokens, err := h.jwtServ.RefreshPair(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Warn("refresh rejected", zap.Error(err))
		respondUnauthorized(c, "invalid token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /api/auth/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	if !h.requireJWT(c) {
		return
	}
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.jwtServ.RevokeRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		h.logger.Debug("logout with unusable token", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UserHandler) requireJWT(c *gin.Context) bool {
	if h.jwtServ.Enabled() {
		return true
	}
	c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"message": "token auth is not configured"})
	return false
}
