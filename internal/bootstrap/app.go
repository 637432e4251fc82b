package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/gaps"
	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/journey"
	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/llm/gemini"
	"github.com/Azee177/jianli/internal/llm/openai"
	"github.com/Azee177/jianli/internal/pipeline"
	"github.com/Azee177/jianli/internal/queue"
	"github.com/Azee177/jianli/internal/requirements"
	"github.com/Azee177/jianli/internal/resumes"
	"github.com/Azee177/jianli/internal/rewrite"
	"github.com/Azee177/jianli/internal/shared/config"
	"github.com/Azee177/jianli/internal/shared/server"
	"github.com/Azee177/jianli/internal/shared/storage/db"
	"github.com/Azee177/jianli/internal/shared/storage/object"
	localstore "github.com/Azee177/jianli/internal/shared/storage/object/local"
	s3store "github.com/Azee177/jianli/internal/shared/storage/object/s3"
	"github.com/Azee177/jianli/internal/shared/telemetry"
	"github.com/Azee177/jianli/internal/tasks"
)

const jdCacheTTL = 24 * time.Hour

// App holds shared dependencies for the api, the worker and the CLI.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore
	Queue  queue.Client
	LLM    llm.Client

	Sessions    *journey.Service
	Resumes     *resumes.Service
	JDRepo      jds.Repo
	Collector   *jds.Collector
	Commonality *commonality.Service
	Gaps        *gaps.Service
	Rewrites    *rewrite.Service
	Tasks       *tasks.Orchestrator
	Pipeline    *pipeline.Pipeline

	// local is set when tasks run in-process instead of through SQS.
	local *queue.ChannelQueue
}

// Option adjusts how Build connects to its dependencies.
type Option func(*options)

type options struct {
	db *db.Options
}

// WithDBOptions overrides the database pool settings.
func WithDBOptions(o db.Options) Option {
	return func(opts *options) { opts.db = &o }
}

// Build wires repositories, services, the task orchestrator and the router.
// Without DATABASE_URL in dev-like environments every repository is in memory.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: sqlDB}
	if sqlDB != nil && isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			app.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if app.Redis, err = buildRedis(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.LLM, err = NewLLM(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if err := buildQueue(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Journey:     journey.NewHandler(app.Sessions),
		Pipeline:    pipeline.NewHandler(app.Pipeline),
		Resumes:     resumes.NewHandler(app.Resumes),
		JDs:         jds.NewHandler(app.JDRepo, app.Collector),
		Commonality: commonality.NewHandler(app.Commonality),
		Gaps:        gaps.NewHandler(app.Gaps),
		Rewrite:     rewrite.NewHandler(app.Rewrites),
		Tasks:       tasks.NewHandler(app.Tasks),
		Ready:       app.ready,
	})
	return app, nil
}

// RunLocalWorkers executes in-process tasks until ctx ends. It returns at
// once when tasks go through SQS.
func (a *App) RunLocalWorkers(ctx context.Context) error {
	if a.local == nil {
		return nil
	}
	pool := tasks.Pool{Exec: a.Tasks, Workers: a.Config.TaskWorkers}
	return pool.Run(ctx, a.local.Messages())
}

// LocalQueue reports whether tasks run in-process.
func (a *App) LocalQueue() bool {
	return a.local != nil
}

// Close releases connections. Safe to call on a partially built App.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.local != nil {
		a.local.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("bootstrap: close redis: %v", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("bootstrap: close database: %v", err)
		}
	}
}

func (a *App) ready() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config, o options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	dbOpts := db.OptionsFromEnv(db.DefaultServerOptions())
	if o.db != nil {
		dbOpts = db.OptionsFromEnv(*o.db)
	}
	sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, dbOpts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis unavailable; posting cache disabled: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// NewLLM returns the configured provider wrapped with retries and a
// circuit breaker, or a placeholder that makes every component use rules.
func NewLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		base llm.Client
		err  error
	)
	switch cfg.LLMProvider {
	case "openai":
		base, err = openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBase,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
	case "gemini":
		base, err = gemini.NewClient(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
	default:
		return llm.PlaceholderClient{}, nil
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: %s client unavailable; using rule-based generation: %v", cfg.LLMProvider, err)
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return llm.WithBreaker(cfg.LLMProvider, llm.WithRetry(base), llm.DefaultBreakerSettings()), nil
}

func buildQueue(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.TaskQueueURL) == "" {
		app.local = queue.NewChannelQueue(0)
		app.Queue = app.local
		return nil
	}
	client, err := queue.NewSQSClient(ctx, app.Config.TaskQueueURL, app.Config.AWSRegion)
	if err != nil {
		return err
	}
	app.Queue = client
	return nil
}

func buildServices(app *App) error {
	cfg := app.Config

	var (
		sessionRepo     journey.Repo
		resumeRepo      resumes.Repo
		jdRepo          jds.Repo
		commonalityRepo commonality.Repo
		gapRepo         gaps.Repo
		rewriteRepo     rewrite.Repo
		taskRepo        tasks.Repo
	)
	if app.DB != nil {
		sessionRepo = &journey.PGRepo{DB: app.DB}
		resumeRepo = &resumes.PGRepo{DB: app.DB}
		jdRepo = &jds.PGRepo{DB: app.DB}
		commonalityRepo = &commonality.PGRepo{DB: app.DB}
		gapRepo = &gaps.PGRepo{DB: app.DB}
		rewriteRepo = &rewrite.PGRepo{DB: app.DB}
		taskRepo = &tasks.PGRepo{DB: app.DB}
	} else {
		sessionRepo = journey.NewMemoryRepo()
		resumeRepo = resumes.NewMemoryRepo()
		jdRepo = jds.NewMemoryRepo()
		commonalityRepo = commonality.NewMemoryRepo()
		gapRepo = gaps.NewMemoryRepo()
		rewriteRepo = rewrite.NewMemoryRepo()
		taskRepo = tasks.NewMemoryRepo()
	}
	if app.Redis != nil {
		jdRepo = &jds.CachedRepo{Primary: jdRepo, Cache: &jds.RedisRepo{Client: app.Redis, TTL: jdCacheTTL}}
	}

	catalog, err := jds.LoadCatalog(cfg.JDSourcesFile)
	if err != nil {
		return err
	}
	direct, boards, err := catalog.BuildSources(cfg.JDBoardURL, cfg.JDBoardRPS, cfg.JDSourceTimeout)
	if err != nil {
		return err
	}

	app.JDRepo = jdRepo
	app.Sessions = journey.NewService(sessionRepo)
	app.Resumes = resumes.NewService(resumeRepo, app.Store, resumes.Parser{Client: app.LLM})
	app.Collector = &jds.Collector{
		Direct:        direct,
		Boards:        boards,
		Extractor:     requirements.Extractor{Classifier: requirements.LLMClassifier{Client: app.LLM}},
		Repo:          jdRepo,
		SourceTimeout: cfg.JDSourceTimeout,
		DefaultCount:  cfg.JDCollectionCount,
	}
	app.Commonality = commonality.NewService(commonalityRepo)
	app.Gaps = gaps.NewService(gapRepo, cfg.GapCoverageThreshold)
	app.Rewrites = rewrite.NewService(rewriteRepo, rewrite.Engine{Client: app.LLM})
	app.Tasks = tasks.NewOrchestrator(taskRepo, app.Queue, cfg.TaskTimeout)
	app.Pipeline = &pipeline.Pipeline{
		Sessions:    app.Sessions,
		Resumes:     app.Resumes,
		Collector:   app.Collector,
		JDRepo:      jdRepo,
		Commonality: app.Commonality,
		Gaps:        app.Gaps,
		Rewrites:    app.Rewrites,
		Tasks:       app.Tasks,
	}
	app.Pipeline.Register(app.Tasks)

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"database":     app.DB != nil,
		"redis":        app.Redis != nil,
		"object_store": cfg.ObjectStoreType,
		"llm_provider": cfg.LLMProvider,
		"task_queue":   queueKind(app),
		"jd_boards":    len(boards),
	})
	return nil
}

func queueKind(app *App) string {
	if app.local != nil {
		return "in_process"
	}
	return "sqs"
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
