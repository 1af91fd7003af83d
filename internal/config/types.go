// Package config manages application configuration from a YAML file,
// FOODLENS_* environment variables (optionally loaded from .env) and defaults.
package config

import (
	"time"

	"github.com/edgard/foodlens/internal/resilience"
)

// Config is the root configuration for every foodlens component.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// HTTPConfig configures the REST API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	// PublicBaseURL prefixes the URLs of locally stored images.
	PublicBaseURL      string        `mapstructure:"public_base_url"      validate:"required,url"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout"  validate:"gt=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"     validate:"gt=0"`
	Version            string        `mapstructure:"version"`
}

// TelegramConfig configures the chat front door. An empty token disables it;
// a non-empty webhook URL selects push delivery instead of long polling.
type TelegramConfig struct {
	Token              string        `mapstructure:"token"                validate:"required_with=WebhookURL"`
	WebhookURL         string        `mapstructure:"webhook_url"          validate:"omitempty,url"`
	WebhookSecret      string        `mapstructure:"webhook_secret"`
	ServerURL          string        `mapstructure:"server_url"           validate:"omitempty,url"`
	PollTimeout        time.Duration `mapstructure:"poll_timeout"         validate:"gt=0"`
	Workers            int           `mapstructure:"workers"              validate:"min=1,max=256"`
	QueueSize          int           `mapstructure:"queue_size"           validate:"min=1"`
	DropPendingUpdates bool          `mapstructure:"drop_pending_updates"`
	MaxDownloadMB      int           `mapstructure:"max_download_mb"      validate:"min=1,max=50"`
}

// GeminiConfig configures the vision model client.
type GeminiConfig struct {
	Backend     string  `mapstructure:"backend"     validate:"oneof=gemini vertex"`
	APIKey      string  `mapstructure:"api_key"     validate:"required_if=Backend gemini"`
	Project     string  `mapstructure:"project"     validate:"required_if=Backend vertex"`
	Location    string  `mapstructure:"location"    validate:"required_if=Backend vertex"`
	ModelName   string  `mapstructure:"model_name"  validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
}

// StorageConfig selects where normalized images are kept.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"          validate:"oneof=local gcs"`
	Bucket          string `mapstructure:"bucket"           validate:"required"`
	LocalDir        string `mapstructure:"local_dir"        validate:"required_if=Backend local"`
	CredentialsFile string `mapstructure:"credentials_file" validate:"omitempty,file"`
	// Project is used to create a missing GCS bucket.
	Project string `mapstructure:"project"`
	// PublicURL overrides the URL prefix of GCS objects.
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"            validate:"oneof=sqlite mysql"`
	DSN             string        `mapstructure:"dsn"               validate:"required"`
	Table           string        `mapstructure:"table"             validate:"required,sqlident"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
}

// CacheConfig configures the read-through cache in front of record lookups.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"        validate:"oneof=none memory redis"`
	TTL           time.Duration `mapstructure:"ttl"            validate:"gt=0"`
	RedisAddr     string        `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"       validate:"min=0"`
}

type AnalysisConfig struct {
	MaxUploadMB  int               `mapstructure:"max_upload_mb" validate:"min=1,max=50"`
	MaxDimension int               `mapstructure:"max_dimension" validate:"min=0"`
	JPEGQuality  int               `mapstructure:"jpeg_quality"  validate:"min=1,max=100"`
	Retry        resilience.Policy `mapstructure:"retry"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (a AnalysisConfig) MaxUploadBytes() int {
	return a.MaxUploadMB * 1024 * 1024
}

// TaskConfig defines configuration for a specific scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// SchedulerConfig holds configuration for all scheduled tasks, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// MessagesConfig holds every user-facing chat reply.
type MessagesConfig struct {
	Welcome           string `mapstructure:"welcome"            validate:"required"`
	Help              string `mapstructure:"help"               validate:"required"`
	SendPhoto         string `mapstructure:"send_photo"         validate:"required"`
	Analyzing         string `mapstructure:"analyzing"          validate:"required"`
	DownloadFailed    string `mapstructure:"download_failed"    validate:"required"`
	ValidationFailed  string `mapstructure:"validation_failed"  validate:"required"`
	AnalysisFailed    string `mapstructure:"analysis_failed"    validate:"required"`
	StorageFailed     string `mapstructure:"storage_failed"     validate:"required"`
	PersistenceFailed string `mapstructure:"persistence_failed" validate:"required"`
	GeneralError      string `mapstructure:"general_error"      validate:"required"`
	HistoryEmpty      string `mapstructure:"history_empty"      validate:"required"`
}
