package config

import "time"

// EnvPrefix is the prefix of every environment variable override,
// e.g. FOODLENS_TELEGRAM_TOKEN for telegram.token.
const EnvPrefix = "FOODLENS"

var defaults = map[string]any{
	"log.level": "info",
	"log.json":  false,

	"http.addr":                 ":8000",
	"http.public_base_url":      "http://localhost:8000",
	"http.cors_allowed_origins": []string{"*"},
	"http.read_header_timeout":  10 * time.Second,
	"http.shutdown_timeout":     15 * time.Second,
	"http.version":              "1.0.0",

	"telegram.token":                "",
	"telegram.webhook_url":          "",
	"telegram.webhook_secret":       "",
	"telegram.server_url":           "",
	"telegram.poll_timeout":         25 * time.Second,
	"telegram.workers":              8,
	"telegram.queue_size":           64,
	"telegram.drop_pending_updates": false,
	"telegram.max_download_mb":      20,

	"gemini.backend":     "gemini",
	"gemini.api_key":     "",
	"gemini.project":     "",
	"gemini.location":    "",
	"gemini.model_name":  "gemini-2.5-flash",
	"gemini.temperature": 0.2,

	"storage.backend":          "local",
	"storage.bucket":           "food-images",
	"storage.local_dir":        "./data/images",
	"storage.credentials_file": "",
	"storage.project":          "",
	"storage.public_url":       "",

	"database.driver":            "sqlite",
	"database.dsn":               "foodlens.db",
	"database.table":             "food_analyses",
	"database.max_open_conns":    1,
	"database.conn_max_lifetime": 5 * time.Minute,

	"cache.backend":        "memory",
	"cache.ttl":            10 * time.Minute,
	"cache.redis_addr":     "",
	"cache.redis_password": "",
	"cache.redis_db":       0,

	"analysis.max_upload_mb":          10,
	"analysis.max_dimension":          2048,
	"analysis.jpeg_quality":           90,
	"analysis.retry.max_attempts":     3,
	"analysis.retry.initial_interval": 200 * time.Millisecond,
	"analysis.retry.max_interval":     2 * time.Second,

	"scheduler.tasks": map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 3 * * *"},
		"daily_summary":   map[string]any{"enabled": false, "schedule": "0 0 21 * * *"},
	},

	"messages.welcome":            "👋 Welcome! Send me a photo of your meal and I'll estimate its nutrition facts.",
	"messages.help":               "📸 Send a food photo to analyze it.\n/history - your latest analyses\n/stats - totals for the last 7 days\n/help - this message",
	"messages.send_photo":         "📷 Please send a photo of your food.",
	"messages.analyzing":          "🔍 Analyzing your food image...",
	"messages.download_failed":    "❌ I couldn't download your photo. Please try sending it again.",
	"messages.validation_failed":  "⚠️ I couldn't read nutrition facts from that image. Please check your image and try again.",
	"messages.analysis_failed":    "🤖 The food analysis service failed. Please try again later.",
	"messages.storage_failed":     "🗄️ I couldn't store your image. Please try again later.",
	"messages.persistence_failed": "💾 I couldn't save your analysis. Please try again later.",
	"messages.general_error":      "❌ An error occurred. Please try again later.",
	"messages.history_empty":      "No analyses yet. Send a food photo to get started.",
}
