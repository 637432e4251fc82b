package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	TaskQueueURL    string

	LLMProvider  string
	LLMModel     string
	LLMTimeout   time.Duration
	OpenAIAPIKey string
	OpenAIBase   string
	GeminiAPIKey string

	JDSourcesFile     string
	JDBoardURL        string
	JDBoardRPS        float64
	JDSourceTimeout   time.Duration
	JDCollectionCount int

	TaskWorkers int
	TaskTimeout time.Duration

	GapCoverageThreshold float64
	RateLimitRPS         float64
	RateLimitBurst       int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		RedisURL:        getEnv("REDIS_URL", ""),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		TaskQueueURL:    getEnv("JIANLI_SQS_QUEUE_URL", ""),

		LLMProvider:  normalizeProvider(getEnv("LLM_PROVIDER", "none")),
		LLMModel:     getEnv("LLM_MODEL", ""),
		LLMTimeout:   getSeconds("LLM_TIMEOUT_SECONDS", 60*time.Second),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIBase:   getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		JDSourcesFile:     getEnv("JD_SOURCES_FILE", ""),
		JDBoardURL:        getEnv("JD_BOARD_URL", ""),
		JDBoardRPS:        getFloat("JD_BOARD_RPS", 2),
		JDSourceTimeout:   getSeconds("JD_SOURCE_TIMEOUT_SECONDS", 15*time.Second),
		JDCollectionCount: getInt("JD_COLLECTION_COUNT", 10),

		TaskWorkers: getInt("TASK_WORKERS", 4),
		TaskTimeout: getSeconds("TASK_TIMEOUT_SECONDS", 180*time.Second),

		GapCoverageThreshold: getRatio("GAP_COVERAGE_THRESHOLD", 0.3),
		RateLimitRPS:         getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:       getInt("RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.Printf("invalid %s=%q, using %g", key, raw, def)
		return def
	}
	return v
}

// getRatio reads a value in [0, 1]. Zero is a valid setting.
func getRatio(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
		log.Printf("invalid %s=%q, using %g", key, raw, def)
		return def
	}
	return v
}

func getSeconds(key string, def time.Duration) time.Duration {
	secs := getInt(key, int(def/time.Second))
	return time.Duration(secs) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "none"
	}
}
