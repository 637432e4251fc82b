package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/journey"
	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/tasks"
)

func setupPipelineRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(f.p).RegisterRoutes(api)
	return r, f
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.GuestIDHeader, "me")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadResumeAcceptsTask(t *testing.T) {
	router, f := setupPipelineRouter(t)
	sess, err := f.p.Sessions.Start(context.Background(), "guest:me")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w := doJSON(router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/resume", map[string]string{"text": resumeText})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Session journey.View `json:"session"`
		Task    tasks.Task   `json:"task"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Session.Stage != journey.StageParsing || body.Task.Kind != KindParseResume || body.Task.Status != tasks.StatusQueued {
		t.Fatalf("unexpected response %+v", body)
	}
	if len(f.queue.sent) != 1 || f.queue.sent[0].TaskID != body.Task.ID {
		t.Fatalf("expected task id on the queue, got %+v", f.queue.sent)
	}
}

func TestOutOfOrderStepIsConflict(t *testing.T) {
	router, f := setupPipelineRouter(t)
	sess, err := f.p.Sessions.Start(context.Background(), "guest:me")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, path := range []string{"/gap", "/lock", "/collect"} {
		w := doJSON(router, http.MethodPost, "/api/v1/sessions/"+sess.ID+path, nil)
		if w.Code != http.StatusConflict {
			t.Fatalf("%s: expected 409, got %d", path, w.Code)
		}
	}
	w := doJSON(router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/target", map[string]string{"title": "Backend"})
	if w.Code != http.StatusConflict {
		t.Fatalf("target: expected 409, got %d", w.Code)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	router, _ := setupPipelineRouter(t)
	w := doJSON(router, http.MethodPost, "/api/v1/sessions/missing/parse", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRewriteRejectsUnknownIntent(t *testing.T) {
	router, f := setupPipelineRouter(t)
	sess, err := f.p.Sessions.Start(context.Background(), "guest:me")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	w := doJSON(router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/rewrite", map[string]string{"intent": "poetry", "text": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
