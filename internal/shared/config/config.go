package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"exportdocs-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string

	BlobStoreType string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string
	GCSBucket     string
	GCSPrefix     string

	ExtractionProvider     string
	ExtractionModel        string
	OpenAIAPIKey           string
	OpenAIBaseURL          string
	ExtractionTimeout      time.Duration
	ExtractionProbeTimeout time.Duration
	VertexProjectID        string
	VertexRegion           string

	JWTSecret           string
	TokenTTL            time.Duration
	UploadRatePerSecond float64
	UploadRateBurst     int

	RegenLayoutFile string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL", "env": env})
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		DatabaseURL:     dbURL,

		BlobStoreType: normalizeStoreType(getEnv("BLOB_STORE", "local")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:   getEnv("SSE_KMS_KEY_ID", ""),
		GCSBucket:     getEnv("GCS_BUCKET", ""),
		GCSPrefix:     getEnv("GCS_PREFIX", ""),

		ExtractionProvider:     normalizeProvider(getEnv("EXTRACTION_PROVIDER", "openai")),
		ExtractionModel:        getEnv("EXTRACTION_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ExtractionTimeout:      getSeconds("EXTRACTION_TIMEOUT_SECONDS", 60),
		ExtractionProbeTimeout: getSeconds("EXTRACTION_PROBE_TIMEOUT_SECONDS", 5),
		VertexProjectID:        getEnv("VERTEX_PROJECT_ID", ""),
		VertexRegion:           getEnv("VERTEX_REGION", "us-central1"),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenTTL:            getSeconds("TOKEN_TTL_SECONDS", 12*60*60),
		UploadRatePerSecond: getFloat("UPLOAD_RATE_PER_SECOND", 2),
		UploadRateBurst:     getInt("UPLOAD_RATE_BURST", 10),

		RegenLayoutFile: getEnv("REGEN_LAYOUT_FILE", ""),
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
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
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return val
}

func getSeconds(key string, def int) time.Duration {
	n := getInt(key, def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
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
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vertex", "gemini":
		return "vertex"
	case "none", "off":
		return "none"
	default:
		return "openai"
	}
}
