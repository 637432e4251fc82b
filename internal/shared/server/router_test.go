package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/journey"
	"github.com/Azee177/jianli/internal/shared/config"
	"github.com/Azee177/jianli/internal/shared/server/middleware"
)

func testRouter(ready func() error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Config:  config.Config{Env: "dev", RateLimitRPS: 100, RateLimitBurst: 100},
		Journey: journey.NewHandler(journey.NewService(journey.NewMemoryRepo())),
		Ready:   ready,
	})
}

func TestHealthEndpointsAndMetrics(t *testing.T) {
	r := testRouter(nil)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestReadyzReportsDependencyFailure(t *testing.T) {
	r := testRouter(func() error { return errors.New("db down") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	r := testRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set(middleware.GuestIDHeader, "g1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestTaskRoutesGetTighterLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var groups []string
	r := gin.New()
	capture := func(c *gin.Context) { groups = append(groups, groupFor(c)) }
	r.POST("/api/v1/sessions/:id/collect", capture)
	r.POST("/api/v1/sessions/:id/advance", capture)
	r.GET("/api/v1/sessions/:id", capture)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/collect", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/advance", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	want := []string{groupTasks, groupDefault, groupDefault}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("request %d: expected %s, got %s", i, want[i], groups[i])
		}
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
