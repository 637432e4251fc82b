package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/gaps"
	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/journey"
	"github.com/Azee177/jianli/internal/pipeline"
	"github.com/Azee177/jianli/internal/resumes"
	"github.com/Azee177/jianli/internal/rewrite"
	"github.com/Azee177/jianli/internal/shared/config"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/server/middleware"
	"github.com/Azee177/jianli/internal/shared/server/respond"
	"github.com/Azee177/jianli/internal/tasks"
)

// Rate limit groups.
const (
	groupDefault = "DEFAULT"
	groupTasks   = "TASKS"
)

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config      config.Config
	Journey     *journey.Handler
	Pipeline    *pipeline.Handler
	Resumes     *resumes.Handler
	JDs         *jds.Handler
	Commonality *commonality.Handler
	Gaps        *gaps.Handler
	Rewrite     *rewrite.Handler
	Tasks       *tasks.Handler
	// Ready reports dependency health for /readyz.
	Ready func() error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable", nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)

	if deps.Journey != nil {
		deps.Journey.RegisterRoutes(api)
	}
	if deps.Pipeline != nil {
		deps.Pipeline.RegisterRoutes(api)
	}
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(api)
	}
	if deps.JDs != nil {
		deps.JDs.RegisterRoutes(api)
	}
	if deps.Commonality != nil {
		deps.Commonality.RegisterRoutes(api)
	}
	if deps.Gaps != nil {
		deps.Gaps.RegisterRoutes(api)
	}
	if deps.Rewrite != nil {
		deps.Rewrite.RegisterRoutes(api)
	}
	if deps.Tasks != nil {
		deps.Tasks.RegisterRoutes(api)
	}

	return r
}

// rateLimitConfig gives task-creating requests a tighter bucket than reads.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	base := middleware.RateLimitRule{Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}
	heavy := middleware.RateLimitRule{Rate: cfg.RateLimitRPS / 5, Burst: max(cfg.RateLimitBurst/5, 1)}
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			groupDefault: base,
			groupTasks:   heavy,
		},
		DefaultGroup: groupDefault,
		GroupFor:     groupFor,
	}
}

func groupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return groupDefault
	}
	path := c.FullPath()
	for _, suffix := range []string{"/resume", "/parse", "/collect", "/commonality", "/gap", "/rewrite"} {
		if strings.HasPrefix(path, "/api/v1/sessions/:id") && strings.HasSuffix(path, suffix) {
			return groupTasks
		}
	}
	if path == "/api/v1/jds/lookup" {
		return groupTasks
	}
	return groupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
