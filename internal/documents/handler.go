package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.POST("/upload", h.Upload)
		docs.GET("", h.List)
		docs.GET("/export", h.Export)
		docs.GET("/:id", h.Get)
		docs.GET("/:id/edit", h.Edit)
		docs.GET("/:id/download", h.Download)
		docs.DELETE("/:id", h.Cancel)
		docs.POST("/:id/settings", h.UpdateSettings)
		docs.PUT("/:id/recipients", h.SetRecipients)
		docs.PUT("/:id/fields", h.SetFields)
		docs.POST("/:id/send", h.Send)
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have access to this document"})
	case errors.Is(err, ErrInvalidDocumentFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document file"})
	case errors.Is(err, ErrNoRecipients):
		c.JSON(http.StatusBadRequest, gin.H{"error": "add at least one recipient first"})
	case errors.Is(err, ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) Upload(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	doc, err := h.service.UploadDocument(c.Request.Context(), UploadRequest{
		UserID:      userID,
		Title:       file.Filename,
		FileSize:    file.Size,
		FileContent: f,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	details, err := h.service.GetDocumentWithDetails(c.Request.Context(), auth.CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Edit resolves the requested flow step against its preconditions and
// returns fresh document state, so navigating back to the editor always
// reflects concurrent changes.
func (h *Handler) Edit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	details, err := h.service.GetDocumentWithDetails(c.Request.Context(), auth.CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	step := ResolveStep(c.Query("step"), len(details.Recipients))

	c.JSON(http.StatusOK, gin.H{
		"step":       step,
		"steps":      EditSteps,
		"document":   details.Document,
		"recipients": details.Recipients,
		"fields":     details.Fields,
	})
}

func (h *Handler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	reader, err := h.service.DownloadDocument(c.Request.Context(), auth.CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.CancelDocument(c.Request.Context(), auth.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.service.UpdateSettings(c.Request.Context(), auth.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc, "next_step": StepSigners})
}

func (h *Handler) SetRecipients(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req struct {
		Signers []RecipientInput `json:"signers" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipients, err := h.service.SetRecipients(c.Request.Context(), auth.CurrentUserID(c), id, req.Signers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": recipients, "next_step": StepFields})
}

func (h *Handler) SetFields(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req struct {
		Fields []FieldInput `json:"fields" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields, err := h.service.SetFields(c.Request.Context(), auth.CurrentUserID(c), id, req.Fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields, "next_step": StepSubject})
}

func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.service.SendDocument(c.Request.Context(), auth.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Export(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	file, err := ExportDocuments(docs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="documents.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
