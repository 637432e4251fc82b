package jds

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
)

// Handler exposes cached postings.
type Handler struct {
	Repo      Repo
	Collector *Collector
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo, collector *Collector) *Handler {
	return &Handler{Repo: repo, Collector: collector}
}

// RegisterRoutes attaches posting routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jds", h.search)
	rg.GET("/jds/:id", h.get)
	rg.POST("/jds/lookup", h.lookup)
}

func (h *Handler) get(c *gin.Context) {
	it, err := OwnedItem(c.Request.Context(), h.Repo, middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job posting not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job posting", nil)
		return
	}
	respond.OK(c, it)
}

func (h *Handler) search(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	items, err := h.Repo.Search(c.Request.Context(), middleware.UserIDFromContext(c), SearchFilter{
		Company: c.Query("company"),
		Title:   c.Query("title"),
		City:    c.Query("city"),
		Limit:   limit,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to search job postings", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

type lookupRequest struct {
	URL string `json:"url"`
}

func (h *Handler) lookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "url is required", nil)
		return
	}
	it, err := h.Collector.FetchByURL(c.Request.Context(), middleware.UserIDFromContext(c), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job posting not found", nil)
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, "validation_error", "url is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job posting", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, it)
}

// OwnedItem returns an item only when it belongs to userID.
func OwnedItem(ctx context.Context, repo Repo, userID, id string) (Item, error) {
	it, err := repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if it.UserID != userID {
		return Item{}, ErrNotFound
	}
	return it, nil
}

// OwnedItems returns items in ids order, all of which must belong to userID.
func OwnedItems(ctx context.Context, repo Repo, userID string, ids []string) ([]Item, error) {
	items, err := repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.UserID != userID {
			return nil, ErrNotFound
		}
	}
	return items, nil
}
