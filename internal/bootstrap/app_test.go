package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/shared/config"
	"github.com/Azee177/jianli/internal/shared/server/middleware"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:                  "dev",
		ObjectStoreType:      "local",
		LocalStoreDir:        t.TempDir(),
		LLMProvider:          "none",
		JDSourceTimeout:      time.Second,
		JDBoardRPS:           2,
		JDCollectionCount:    5,
		TaskWorkers:          2,
		TaskTimeout:          5 * time.Second,
		GapCoverageThreshold: 0.3,
		RateLimitRPS:         100,
		RateLimitBurst:       100,
	}
}

func call(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.GuestIDHeader, "g1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBuildInMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	if app.DB != nil || app.Redis != nil {
		t.Fatalf("expected no external connections")
	}
	if !app.LocalQueue() {
		t.Fatalf("expected in-process task queue without an SQS url")
	}
	w := call(app.Router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
	w = call(app.Router, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", w.Code)
	}
}

func TestBuildRejectsMissingDatabaseInProduction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestResumeUploadRunsInProcess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunLocalWorkers(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	w := call(app.Router, http.MethodPost, "/api/v1/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d", w.Code)
	}
	var sess struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil || sess.ID == "" {
		t.Fatalf("decode session: %v %s", err, w.Body.String())
	}

	w = call(app.Router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/resume", map[string]string{
		"text": "Experience\n- Built Go services\n\nSkills\nGo, Redis",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload: expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var accepted struct {
		Task struct {
			ID string `json:"id"`
		} `json:"task"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		w = call(app.Router, http.MethodGet, "/api/v1/tasks/"+accepted.Task.ID, nil)
		var task struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &task)
		if task.Status == "done" {
			break
		}
		if task.Status == "error" || time.Now().After(deadline) {
			t.Fatalf("task did not finish: %s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	w = call(app.Router, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	var view struct {
		Stage string `json:"stage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil || view.Stage != "parse_complete" {
		t.Fatalf("expected parse_complete, got %q (%v)", view.Stage, err)
	}
}
