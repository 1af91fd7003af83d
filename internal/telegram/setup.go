// Package telegram builds the Telegram bot client and the transports that
// deliver updates to it: long polling or a webhook.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/foodlens/internal/config"
)

// DefaultServerURL is the public Bot API endpoint.
const DefaultServerURL = "https://api.telegram.org"

// NewTelegramBot creates a bot whose every update is handled by handler
// wrapped in mw. The same wrapped handler is used by both transports.
func NewTelegramBot(cfg config.TelegramConfig, handler bot.HandlerFunc, logger *slog.Logger, mw ...bot.Middleware) (*bot.Bot, bot.HandlerFunc, error) {
	if cfg.Token == "" {
		return nil, nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	wrapped := applyMiddleware(handler, mw)

	opts := []bot.Option{
		bot.WithDefaultHandler(wrapped),
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(cfg.PollTimeout, &http.Client{Timeout: cfg.PollTimeout + 10*time.Second}),
		bot.WithErrorsHandler(func(err error) {
			log.Error("Telegram API error", "error", err)
		}),
	}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(cfg.Token))
	return b, wrapped, nil
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}

// UpdateSource delivers updates to the bot's handler until its context ends.
type UpdateSource interface {
	Name() string
	Run(ctx context.Context) error
}

// NewSource picks the transport: a configured webhook URL selects push
// delivery, otherwise updates are long-polled. Only one is ever active.
func NewSource(b *bot.Bot, handler bot.HandlerFunc, cfg config.TelegramConfig, logger *slog.Logger) UpdateSource {
	if cfg.WebhookURL != "" {
		return NewWebhookSource(b, handler, cfg, logger)
	}
	return NewPollingSource(b, cfg, logger)
}

// handle runs the handler on one update, containing panics so a bad update
// cannot take a worker down.
func handle(ctx context.Context, log *slog.Logger, b *bot.Bot, handler bot.HandlerFunc, update *models.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "Panic while handling update", "update_id", update.ID, "panic", rec)
		}
	}()
	handler(ctx, b, update)
}
