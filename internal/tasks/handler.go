package tasks

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
)

type Handler struct {
	Orch *Orchestrator
}

func NewHandler(o *Orchestrator) *Handler {
	return &Handler{Orch: o}
}

// RegisterRoutes attaches task polling routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks", h.list)
	rg.GET("/tasks/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	c.Set("taskId", c.Param("id"))
	t, err := h.Orch.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, t)
}

func (h *Handler) list(c *gin.Context) {
	f := Filter{Kind: c.Query("kind"), Status: Status(c.Query("status"))}
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		f.Limit = parsed
	}
	items, err := h.Orch.List(c.Request.Context(), middleware.UserIDFromContext(c), f)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

// WriteError maps task errors to responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "task not found", nil)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownKind):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid task request", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process task", nil)
	}
}
