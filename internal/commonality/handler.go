package commonality

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
)

// Handler exposes stored analyses. Creating and locking analyses is
// session-scoped and lives with the pipeline routes.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches commonality routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/commonality", h.list)
	rg.GET("/commonality/:id", h.get)
	rg.PATCH("/commonality/:id/dimensions/:dimensionId", h.updateDimension)
}

func (h *Handler) get(c *gin.Context) {
	a, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, a)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := 20, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) updateDimension(c *gin.Context) {
	var p Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	dim, err := h.Svc.UpdateDimension(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), c.Param("dimensionId"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, dim)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis or dimension not found", nil)
	case errors.Is(err, ErrLocked):
		respond.Error(c, http.StatusConflict, "locked", "dimensions are locked", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "analysis is being updated, retry", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process analysis", nil)
	}
}
