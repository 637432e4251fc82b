package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/server/middleware"
)

func setupRewriteRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepo(), Engine{})
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(svc).RegisterRoutes(api)
	return r, svc
}

func TestFactualityEndpoint(t *testing.T) {
	router, _ := setupRewriteRouter(t)
	body, _ := json.Marshal(factualityRequest{Original: "Built APIs", Optimized: "Built APIs"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/factuality", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.GuestIDHeader, "me")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var f Factuality
	if err := json.NewDecoder(w.Body).Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !f.IsSafe || f.NewWordsCount != 0 {
		t.Fatalf("unexpected result %+v", f)
	}
}

func TestGetRewriteScopedToOwner(t *testing.T) {
	router, svc := setupRewriteRouter(t)
	res, err := svc.Rewrite(context.Background(), "guest:me", Request{Text: "Developed APIs", Intent: "quantify"})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	for _, tc := range []struct {
		guest string
		want  int
	}{{"me", http.StatusOK}, {"other", http.StatusNotFound}} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rewrites/"+res.ID, nil)
		req.Header.Set(middleware.GuestIDHeader, tc.guest)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("guest %s: expected %d, got %d", tc.guest, tc.want, w.Code)
		}
	}
}
