package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/service"
)

// CaseHandler expone el catalogo de casos.
type CaseHandler struct {
	logger *zap.Logger
	cases  *service.CaseService
}

func NewCaseHandler(logger *zap.Logger, cases *service.CaseService) *CaseHandler {
	return &CaseHandler{logger: logger, cases: cases}
}

// List maneja GET /api/cases.
func (h *CaseHandler) List(c *gin.Context) {
	list, err := h.cases.List(c.Request.Context())
	if err != nil {
		respondInternal(c, h.logger, "list cases failed", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get maneja GET /api/cases/:id.
func (h *CaseHandler) Get(c *gin.Context) {
	id, ok := lookupID(c, "id", "Case not found")
	if !ok {
		return
	}
	found, err := h.cases.Get(c.Request.Context(), id)
	if err != nil {
		h.caseError(c, "get case failed", err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// ListByDifficulty maneja GET /api/cases/difficulty/:difficulty. El filtro es exacto.
func (h *CaseHandler) ListByDifficulty(c *gin.Context) {
	list, err := h.cases.ListByDifficulty(c.Request.Context(), c.Param("difficulty"))
	if err != nil {
		respondInternal(c, h.logger, "list cases by difficulty failed", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Similar maneja GET /api/cases/:id/similar.
func (h *CaseHandler) Similar(c *gin.Context) {
	id, ok := lookupID(c, "id", "Case not found")
	if !ok {
		return
	}
	list, err := h.cases.Similar(c.Request.Context(), id)
	if err != nil {
		h.caseError(c, "similar cases failed", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Next maneja GET /api/cases/next?current=:id.
func (h *CaseHandler) Next(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var current int64
	if raw := c.Query("current"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondValidation(c, "current must be an integer", "current")
			return
		}
		current = v
	}
	next, err := h.cases.Next(c.Request.Context(), user.UserID, current)
	if err != nil {
		h.caseError(c, "next case failed", err)
		return
	}
	c.JSON(http.StatusOK, next)
}

func (h *CaseHandler) caseError(c *gin.Context, msg string, err error) {
	if errors.Is(err, service.ErrCaseNotFound) {
		respondNotFound(c, "Case not found")
		return
	}
	respondInternal(c, h.logger, msg, err)
}

// requireUser obtiene la identidad; responde 401 si el middleware no corrio.
func requireUser(c *gin.Context) (domain.UserContext, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		respondUnauthorized(c, "unauthenticated")
	}
	return user, ok
}
