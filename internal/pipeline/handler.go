package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/journey"
	"github.com/Azee177/jianli/internal/resumes"
	"github.com/Azee177/jianli/internal/rewrite"
	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
	"github.com/Azee177/jianli/internal/tasks"
)

// Handler exposes the stage-gated session operations.
type Handler struct {
	P       *Pipeline
	Resumes *resumes.Handler
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{P: p, Resumes: resumes.NewHandler(p.Resumes)}
}

// RegisterRoutes attaches pipeline routes under /sessions/:id.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/resume", h.uploadResume)
	rg.POST("/sessions/:id/parse", h.parse)
	rg.POST("/sessions/:id/target", h.confirmTarget)
	rg.POST("/sessions/:id/collect", h.collect)
	rg.POST("/sessions/:id/commonality", h.commonality)
	rg.POST("/sessions/:id/lock", h.lock)
	rg.POST("/sessions/:id/gap", h.gap)
	rg.POST("/sessions/:id/rewrite", h.rewrite)
}

type accepted struct {
	Session journey.View `json:"session"`
	Task    tasks.Task   `json:"task"`
}

func (h *Handler) respondAccepted(c *gin.Context, sess journey.Session, t tasks.Task, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("taskId", t.ID)
	respond.JSON(c, http.StatusAccepted, accepted{Session: journey.NewView(sess), Task: t})
}

func (h *Handler) uploadResume(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")
	c.Set("sessionId", sessionID)
	if _, err := h.P.Sessions.Guard(ctx, userID, sessionID, journey.StageParsing); err != nil {
		writeError(c, err)
		return
	}
	res, ok := h.Resumes.Intake(c)
	if !ok {
		return
	}
	sess, t, err := h.P.SubmitResume(requestContext(c), userID, sessionID, res)
	h.respondAccepted(c, sess, t, err)
}

func (h *Handler) parse(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	sess, t, err := h.P.SubmitParse(requestContext(c), middleware.UserIDFromContext(c), c.Param("id"))
	h.respondAccepted(c, sess, t, err)
}

func (h *Handler) confirmTarget(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	var target jds.Query
	if err := c.ShouldBindJSON(&target); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, err := h.P.ConfirmTarget(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), target)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, journey.NewView(sess))
}

type collectRequest struct {
	Count int `json:"count"`
}

func (h *Handler) collect(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	var req collectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	sess, t, err := h.P.SubmitCollect(requestContext(c), middleware.UserIDFromContext(c), c.Param("id"), req.Count)
	h.respondAccepted(c, sess, t, err)
}

type commonalityRequest struct {
	JDIDs []string `json:"jdIds"`
}

func (h *Handler) commonality(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	var req commonalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, t, err := h.P.SubmitCommonality(requestContext(c), middleware.UserIDFromContext(c), c.Param("id"), req.JDIDs)
	h.respondAccepted(c, sess, t, err)
}

func (h *Handler) lock(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	res, err := h.P.LockDimensions(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"lockedCount": res.LockedCount,
		"lockedAt":    res.LockedAt,
		"session":     journey.NewView(res.Session),
	})
}

func (h *Handler) gap(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	sess, t, err := h.P.SubmitGap(requestContext(c), middleware.UserIDFromContext(c), c.Param("id"))
	h.respondAccepted(c, sess, t, err)
}

func (h *Handler) rewrite(c *gin.Context) {
	c.Set("sessionId", c.Param("id"))
	var req rewrite.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess, t, err := h.P.SubmitRewrite(requestContext(c), middleware.UserIDFromContext(c), c.Param("id"), req)
	h.respondAccepted(c, sess, t, err)
}

func requestContext(c *gin.Context) context.Context {
	return tasks.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, journey.ErrNotFound), errors.Is(err, journey.ErrInvalidTransition), errors.Is(err, journey.ErrValidation), errors.Is(err, journey.ErrConflict):
		journey.WriteError(c, err)
	case errors.Is(err, resumes.ErrNotFound), errors.Is(err, resumes.ErrValidation):
		resumes.WriteError(c, err)
	case errors.Is(err, jds.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job posting not found", nil)
	case errors.Is(err, jds.ErrValidation), errors.Is(err, rewrite.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request", nil)
	case errors.Is(err, commonality.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, commonality.ErrLocked):
		respond.Error(c, http.StatusConflict, "locked", "dimensions are locked", nil)
	case errors.Is(err, commonality.ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "analysis is being updated, retry", nil)
	case errors.Is(err, commonality.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request", nil)
	case errors.Is(err, tasks.ErrValidation), errors.Is(err, tasks.ErrUnknownKind):
		tasks.WriteError(c, err)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process request", nil)
	}
}
