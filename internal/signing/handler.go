package signing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the token-scoped signing flow. The group must run
// behind auth.OptionalAuth so signed-in sessions are visible to the auth
// rules without being required.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:token", h.View)
	rg.POST("/:token/fields/:fieldID", h.SignField)
	rg.POST("/:token/complete", h.Complete)
	rg.GET("/:token/completed", h.Completed)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document is not available"})
	case errors.Is(err, documents.ErrInvalidState), errors.Is(err, ErrFieldAlreadySigned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrActionAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "challenge": true})
	case errors.Is(err, ErrFieldsIncomplete), errors.Is(err, ErrSignatureValueMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) View(c *gin.Context) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("token"), auth.OptionalActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	if session.Challenge {
		c.JSON(http.StatusUnauthorized, session)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) SignField(c *gin.Context) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field id"})
		return
	}

	var req SignFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	field, err := h.service.SignField(c.Request.Context(), c.Param("token"), fieldID, req, auth.OptionalActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (h *Handler) Complete(c *gin.Context) {
	result, err := h.service.Complete(c.Request.Context(), c.Param("token"), auth.OptionalActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Completed(c *gin.Context) {
	summary, err := h.service.GetCompletedSummary(c.Request.Context(), c.Param("token"), auth.OptionalActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	if summary.Challenge {
		c.JSON(http.StatusUnauthorized, summary)
		return
	}
	c.JSON(http.StatusOK, summary)
}
