package journey

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
)

// Stages a caller may move to directly. The others are entered by the
// operation that produces their data (parsing, target confirmation, job
// collection, dimension lock).
var manualStages = map[Stage]bool{
	StageIntentCollecting: true,
	StageOptimizing:       true,
	StagePrepGenerating:   true,
	StageComplete:         true,
}

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.start)
	rg.GET("/sessions", h.list)
	rg.GET("/sessions/:id", h.get)
	rg.POST("/sessions/:id/advance", h.advance)
}

// View is a session plus what the caller can do next.
type View struct {
	Session
	NextStages       []Stage  `json:"nextStages"`
	AvailableActions []string `json:"availableActions"`
}

// NewView decorates s with its next stages and actions.
func NewView(s Session) View {
	return View{Session: s, NextStages: NextStages(s.Stage), AvailableActions: AvailableActions(s.Stage)}
}

func (h *Handler) start(c *gin.Context) {
	sess, err := h.Svc.Start(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.Set("sessionId", sess.ID)
	respond.JSON(c, http.StatusCreated, NewView(sess))
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
	items, err := h.Svc.ListByUser(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		WriteError(c, err)
		return
	}
	views := make([]View, 0, len(items))
	for _, s := range items {
		views = append(views, NewView(s))
	}
	respond.OK(c, gin.H{"items": views})
}

func (h *Handler) get(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	sess, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, NewView(sess))
}

type advanceRequest struct {
	To     Stage  `json:"to"`
	Action string `json:"action"`
}

func (h *Handler) advance(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "target stage is required", nil)
		return
	}
	if !req.To.Valid() {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown stage", nil)
		return
	}
	if !manualStages[req.To] {
		respond.Error(c, http.StatusConflict, "invalid_transition", "stage is entered by its operation", nil)
		return
	}
	sess, err := h.Svc.Advance(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.To, req.Action)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, NewView(sess))
}

// WriteError maps session errors to responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", "operation not allowed at the current stage", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid session request", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "session is being updated, retry", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process session", nil)
	}
}
