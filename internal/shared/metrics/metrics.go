package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	tasksStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jianli",
		Name:      "tasks_started_total",
		Help:      "Total tasks picked up by a worker",
	}, []string{"kind"})

	tasksFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jianli",
		Name:      "tasks_finished_total",
		Help:      "Total tasks reaching a terminal status",
	}, []string{"kind", "status"})

	taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jianli",
		Name:      "task_duration_ms",
		Help:      "Task execution duration in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	}, []string{"kind"})

	sourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jianli",
		Name:      "jd_source_failures_total",
		Help:      "Job posting source fetches that failed and were skipped",
	}, []string{"source"})

	llmFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jianli",
		Name:      "llm_fallbacks_total",
		Help:      "Generation calls that fell back to rule-based output",
	}, []string{"component"})

	journeyTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jianli",
		Name:      "journey_transitions_total",
		Help:      "Journey stage transitions by outcome",
	}, []string{"to", "outcome"})

	workerMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jianli",
		Name:      "worker_messages_total",
		Help:      "Queue messages handled by the worker by outcome",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(
		tasksStarted,
		tasksFinished,
		taskDuration,
		sourceFailures,
		llmFallbacks,
		journeyTransitions,
		workerMessages,
		prometheus.NewGoCollector(),
	)
}

// IncTaskStarted increments the started counter for a task kind.
func IncTaskStarted(kind string) {
	tasksStarted.WithLabelValues(kind).Inc()
}

// IncTaskFinished increments the terminal counter for a task kind.
func IncTaskFinished(kind, status string) {
	tasksFinished.WithLabelValues(kind, status).Inc()
}

// ObserveTaskDuration records how long a task ran.
func ObserveTaskDuration(kind string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	taskDuration.WithLabelValues(kind).Observe(ms)
}

// IncSourceFailure counts a skipped source fetch.
func IncSourceFailure(source string) {
	sourceFailures.WithLabelValues(source).Inc()
}

// IncLLMFallback counts a rule-based fallback.
func IncLLMFallback(component string) {
	llmFallbacks.WithLabelValues(component).Inc()
}

// IncJourneyTransition counts an attempted stage transition.
func IncJourneyTransition(to string, ok bool) {
	outcome := "applied"
	if !ok {
		outcome = "rejected"
	}
	journeyTransitions.WithLabelValues(to, outcome).Inc()
}

// IncWorkerMessage counts a queue message by outcome: received, completed,
// failed or deleted_unrecoverable.
func IncWorkerMessage(outcome string) {
	workerMessages.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// Gatherer exposes the registry for tests.
func Gatherer() prometheus.Gatherer {
	return registry
}
