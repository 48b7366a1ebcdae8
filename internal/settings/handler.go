package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.GetProfile)
	rg.PUT("/profile", h.UpdateProfile)
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName    string `json:"display_name" binding:"required"`
	ProfileURL     string `json:"profile_url"`
	TypedSignature string `json:"typed_signature"`
	Timezone       string `json:"timezone"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := &UserProfile{
		UserID:         auth.CurrentUserID(c),
		DisplayName:    req.DisplayName,
		ProfileURL:     req.ProfileURL,
		TypedSignature: req.TypedSignature,
		Timezone:       req.Timezone,
	}

	if err := h.service.UpdateProfile(c.Request.Context(), profile); err != nil {
		if errors.Is(err, ErrProfileURLTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "profile URL is already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}
