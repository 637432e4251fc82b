package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHandlerRendersTaskMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncTaskStarted("rewrite")
	IncTaskFinished("rewrite", "done")
	ObserveTaskDuration("rewrite", 1500*time.Millisecond)
	IncSourceFailure("board")

	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`jianli_tasks_started_total{kind="rewrite"}`,
		`jianli_tasks_finished_total{kind="rewrite",status="done"}`,
		`jianli_task_duration_ms_bucket{kind="rewrite",le="2000"} 1`,
		`jianli_jd_source_failures_total{source="board"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in output", want)
		}
	}
}
