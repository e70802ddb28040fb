package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	StoreRedis    = "redis"
	StoreFile     = "file"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Blob backends.
const (
	BlobLocal = "local"
	BlobGCS   = "gcs"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Blob   BlobConfig
	Trim   TrimConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               int           `envconfig:"PORT" default:"8080"`
	PublicBaseURL      string        `envconfig:"PUBLIC_BASE_URL"`
	AllowedOrigins     []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"200"`
	MaxUploadBytes     int64         `envconfig:"MAX_UPLOAD_BYTES" default:"536870912"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// StoreConfig selects and configures the metadata/analytics backend
type StoreConfig struct {
	Backend  string `envconfig:"STORE_BACKEND" default:"file"`
	RedisURL string `envconfig:"REDIS_URL"`
	FilePath string `envconfig:"STORE_FILE_PATH" default:"data/db.json"`
	BoltPath string `envconfig:"STORE_BOLT_PATH" default:"data/videos.bolt"`
	DBURL    string `envconfig:"DB_URL"`
}

// BlobConfig selects where uploaded recordings are written
type BlobConfig struct {
	Backend          string `envconfig:"BLOB_BACKEND" default:"local"`
	UploadDir        string `envconfig:"UPLOAD_DIR" default:"public/uploads"`
	UploadURLPrefix  string `envconfig:"UPLOAD_URL_PREFIX" default:"/uploads"`
	GCSBucket        string `envconfig:"GCS_BUCKET"`
	GCSPublicBaseURL string `envconfig:"GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type TrimConfig struct {
	FFmpegPath string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	var cfg Config

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Store); err != nil {
		return nil, fmt.Errorf("failed to load store config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Blob); err != nil {
		return nil, fmt.Errorf("failed to load blob config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Trim); err != nil {
		return nil, fmt.Errorf("failed to load trim config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	switch c.Store.Backend {
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case StorePostgres:
		if c.Store.DBURL == "" {
			return fmt.Errorf("DB_URL is required for the postgres store")
		}
	case StoreFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("STORE_FILE_PATH is required for the file store")
		}
	case StoreBolt:
		if c.Store.BoltPath == "" {
			return fmt.Errorf("STORE_BOLT_PATH is required for the bolt store")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Blob.Backend {
	case BlobLocal:
		if c.Blob.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the local blob store")
		}
		if !strings.HasPrefix(c.Blob.UploadURLPrefix, "/") {
			return fmt.Errorf("UPLOAD_URL_PREFIX must start with /")
		}
	case BlobGCS:
		if c.Blob.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the gcs blob store")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.Blob.Backend)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}

	return nil
}

// ShareURL returns the public share page link for a recording.
func (c *ServerConfig) ShareURL(id string) string {
	return strings.TrimSuffix(c.PublicBaseURL, "/") + "/share/" + id
}
