package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of key as understood by strconv.ParseBool,
// or fallback if the variable is unset or unparsable.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// GetEnvDuration returns the duration value of key (e.g. "15m", "30s"), or
// fallback if the variable is unset, unparsable or not positive.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// Storage backends accepted in STORAGE_BACKEND.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Config is the process configuration of the compositor.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	StorageBackend string
	StorageRoot    string
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool

	ScratchDir       string
	FFmpegPath       string
	ProbeTimeout     time.Duration
	TranscodeTimeout time.Duration
	ProgressInterval time.Duration
	CanvasWidth      int
	CanvasHeight     int

	WorkerConcurrency int
	QueueSize         int
	OutputPrefix      string
}

// FromEnv builds a Config from the environment, applying defaults for
// anything unset. Call Load first to pick up a .env file.
func FromEnv() Config {
	return Config{
		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),

		StorageBackend: strings.ToLower(GetEnv("STORAGE_BACKEND", StorageFS)),
		StorageRoot:    GetEnv("STORAGE_ROOT", "./data"),
		S3Endpoint:     GetEnv("S3_ENDPOINT", "s3.amazonaws.com"),
		S3Region:       GetEnv("S3_REGION", "us-east-1"),
		S3Bucket:       GetEnv("S3_BUCKET", ""),
		S3AccessKey:    GetEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    GetEnv("S3_SECRET_KEY", ""),
		S3UseSSL:       GetEnvBool("S3_USE_SSL", true),

		ScratchDir:       GetEnv("SCRATCH_DIR", os.TempDir()),
		FFmpegPath:       GetEnv("FFMPEG_PATH", "ffmpeg"),
		ProbeTimeout:     GetEnvDuration("FFPROBE_TIMEOUT", 30*time.Second),
		TranscodeTimeout: GetEnvDuration("TRANSCODE_TIMEOUT", 15*time.Minute),
		ProgressInterval: GetEnvDuration("PROGRESS_INTERVAL", 10*time.Second),
		CanvasWidth:      GetEnvInt("CANVAS_WIDTH", 1080),
		CanvasHeight:     GetEnvInt("CANVAS_HEIGHT", 1920),

		WorkerConcurrency: GetEnvInt("WORKER_CONCURRENCY", 1),
		QueueSize:         GetEnvInt("QUEUE_SIZE", 16),
		OutputPrefix:      GetEnv("OUTPUT_PREFIX", "compositions"),
	}
}
