package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application-level settings.
type Config struct {
	// Server
	ServerAddr string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PostgreSQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Object store
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	SlotBucket      string // normalized role-tagged inputs
	PublishedBucket string // synthesized artifacts

	// Pipeline
	FrameSize      int           // canonical frame edge in pixels (frames are square)
	FrameDelay     int           // per-frame delay in 1/100 s
	MaxUploadBytes int64         // intake size cap
	UploadTimeout  time.Duration // max time an upload may spend in decode + storage

	// Admission
	RatePerMinute int
	RatePerHour   int
	RatePerDay    int

	// Gallery
	GalleryLimit int // default page size for /gallery

	// Admin Authentication
	AdminToken string // Bearer token for admin API access
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file is honoured when present (local development).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:      envOr("SERVER_ADDR", ":8080"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   envOr("REDIS_PASSWORD", ""),
		RedisDB:         envIntOr("REDIS_DB", 0),
		DBHost:          envOr("DB_HOST", "localhost"),
		DBPort:          envOr("DB_PORT", "5432"),
		DBUser:          envOr("DB_USER", "postgres"),
		DBPassword:      envOr("DB_PASSWORD", "postgres"),
		DBName:          envOr("DB_NAME", "frameloop"),
		DBSSLMode:       envOr("DB_SSLMODE", "disable"),
		MinioEndpoint:   envOr("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  envOr("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:  envOr("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:     envBoolOr("MINIO_USE_SSL", false),
		SlotBucket:      envOr("SLOT_BUCKET", "frameloop-slots"),
		PublishedBucket: envOr("PUBLISHED_BUCKET", "frameloop-published"),
		FrameSize:       envIntOr("FRAME_SIZE", 250),
		FrameDelay:      envIntOr("FRAME_DELAY", 200),
		MaxUploadBytes:  int64(envIntOr("MAX_UPLOAD_BYTES", 1<<20)),
		UploadTimeout:   envDurationOr("UPLOAD_TIMEOUT", 30*time.Second),
		RatePerMinute:   envIntOr("RATE_PER_MINUTE", 10),
		RatePerHour:     envIntOr("RATE_PER_HOUR", 30),
		RatePerDay:      envIntOr("RATE_PER_DAY", 100),
		GalleryLimit:    envIntOr("GALLERY_LIMIT", 10),
		AdminToken:      envOr("ADMIN_TOKEN", ""),
	}
}

// ─── helpers ───

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
