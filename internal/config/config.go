package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds shared runtime configuration for the API and worker services.
type Config struct {
	Env         string
	HTTPPort    string
	MetricsAddr string
	APIKey      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LibraryURL    string
	LibraryAPIKey string
	CacheURL      string
	CacheAPIKey   string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3PathStyle bool

	JobTTL             time.Duration
	ResultTTL          time.Duration
	PresignTTL         time.Duration
	CheckDelay         time.Duration
	WorkerPollInterval time.Duration
	HTTPTimeout        time.Duration
	SpoolThreshold     int
	CatalogPageSize    int

	RateLimitCapacity int
	RateLimitRefill   float64
}

// Load reads configuration from environment variables with sane defaults for local development.
func Load() Config {
	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		APIKey:      getEnv("API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LibraryURL:    getEnv("LIBRARY_URL", "http://localhost:8081"),
		LibraryAPIKey: getEnv("LIBRARY_API_KEY", ""),
		CacheURL:      getEnv("CACHE_URL", "http://localhost:8082"),
		CacheAPIKey:   getEnv("CACHE_API_KEY", ""),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "batch-downloader"),
		S3PathStyle: getEnvBool("S3_PATH_STYLE", true),

		JobTTL:             getEnvDuration("JOB_TTL", time.Hour),
		ResultTTL:          getEnvDuration("RESULT_TTL", 5*time.Minute),
		PresignTTL:         getEnvDuration("PRESIGN_TTL", time.Hour),
		CheckDelay:         getEnvDuration("CHECK_DELAY", time.Second),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", time.Second),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 2*time.Minute),
		SpoolThreshold:     getEnvInt("SPOOL_THRESHOLD", 5*1024*1024),
		CatalogPageSize:    getEnvInt("CATALOG_PAGE_SIZE", 50),

		RateLimitCapacity: getEnvInt("RATE_LIMIT_CAPACITY", 50),
		RateLimitRefill:   getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 20),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
