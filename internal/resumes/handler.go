package resumes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to the router group. Uploading into
// a session goes through the pipeline routes so the stage advances with it.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	res, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, 0)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

type textRequest struct {
	Text string `json:"text"`
}

// Intake creates a resume from a multipart "file" field or a JSON
// {"text": ...} body.
func (h *Handler) Intake(c *gin.Context) (Resume, bool) {
	userID := middleware.UserIDFromContext(c)
	if c.ContentType() == "multipart/form-data" {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return Resume{}, false
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return Resume{}, false
		}
		defer file.Close()
		res, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, file)
		if err != nil {
			WriteError(c, err)
			return Resume{}, false
		}
		return res, true
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return Resume{}, false
	}
	res, err := h.Svc.CreateFromText(c.Request.Context(), userID, req.Text)
	if err != nil {
		WriteError(c, err)
		return Resume{}, false
	}
	return res, true
}

// WriteError maps resume errors to responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid resume", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process resume", nil)
	}
}
