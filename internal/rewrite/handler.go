package rewrite

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches rewrite lookups and the factuality check.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rewrites/:id", h.get)
	rg.POST("/factuality", h.factuality)
}

func (h *Handler) get(c *gin.Context) {
	r, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "rewrite not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch rewrite", nil)
		return
	}
	respond.OK(c, r)
}

type factualityRequest struct {
	Original  string `json:"original"`
	Optimized string `json:"optimized"`
}

func (h *Handler) factuality(c *gin.Context) {
	var req factualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Original) == "" || strings.TrimSpace(req.Optimized) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "original and optimized are required", nil)
		return
	}
	respond.OK(c, ValidateFactuality(req.Original, req.Optimized))
}
