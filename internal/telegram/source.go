package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sourcegraph/conc/pool"

	"github.com/edgard/foodlens/internal/config"
)

// SecretTokenHeader carries the webhook secret on every push request.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBytes = 1 << 20

// PollingSource long-polls getUpdates. The library keeps the offset.
type PollingSource struct {
	bot         *bot.Bot
	dropPending bool
	log         *slog.Logger
}

func NewPollingSource(b *bot.Bot, cfg config.TelegramConfig, logger *slog.Logger) *PollingSource {
	return &PollingSource{
		bot:         b,
		dropPending: cfg.DropPendingUpdates,
		log:         logger.With("component", "telegram_polling"),
	}
}

func (s *PollingSource) Name() string { return "polling" }

// Run removes any registered webhook, since Telegram refuses getUpdates while
// one is set, then polls until ctx is done.
func (s *PollingSource) Run(ctx context.Context) error {
	if _, err := s.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: s.dropPending}); err != nil {
		return fmt.Errorf("failed to delete webhook before polling: %w", err)
	}

	s.log.Info("Starting Telegram long polling")
	s.bot.Start(ctx)
	s.log.Info("Telegram long polling stopped")

	if ctx.Err() == nil {
		return fmt.Errorf("telegram polling stopped unexpectedly")
	}
	return nil
}

// WebhookSource receives pushed updates over HTTP. The handler acknowledges
// every request immediately; updates are processed by a bounded worker pool.
type WebhookSource struct {
	bot     *bot.Bot
	handler bot.HandlerFunc
	url     string
	secret  string
	workers int
	drop    bool
	queue   chan *models.Update
	log     *slog.Logger
}

func NewWebhookSource(b *bot.Bot, handler bot.HandlerFunc, cfg config.TelegramConfig, logger *slog.Logger) *WebhookSource {
	return &WebhookSource{
		bot:     b,
		handler: handler,
		url:     cfg.WebhookURL,
		secret:  cfg.WebhookSecret,
		workers: max(cfg.Workers, 1),
		drop:    cfg.DropPendingUpdates,
		queue:   make(chan *models.Update, max(cfg.QueueSize, 1)),
		log:     logger.With("component", "telegram_webhook"),
	}
}

func (s *WebhookSource) Name() string { return "webhook" }

// Run registers the webhook with Telegram and processes queued updates until
// ctx is done. In-flight updates are allowed to finish; queued ones are dropped.
func (s *WebhookSource) Run(ctx context.Context) error {
	_, err := s.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:                s.url,
		SecretToken:        s.secret,
		DropPendingUpdates: s.drop,
	})
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	s.log.Info("Webhook registered", "url", s.url, "secret", s.secret != "")

	s.process(ctx)
	return nil
}

func (s *WebhookSource) process(ctx context.Context) {
	s.log.Info("Starting webhook workers", "workers", s.workers)
	p := pool.New().WithMaxGoroutines(s.workers)
	// Shutdown stops intake, not the updates already being handled.
	workCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Wait()
			s.log.Info("Webhook workers stopped")
			return
		case update := <-s.queue:
			p.Go(func() {
				handle(workCtx, s.log, s.bot, s.handler, update)
			})
		}
	}
}

// Handler serves POST /telegram/webhook. It always answers 200 so Telegram
// does not redeliver and never waits for queue space: rejected requests and
// updates arriving at a full queue are only logged.
func (s *WebhookSource) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer acknowledge(w)

		if s.secret != "" && r.Header.Get(SecretTokenHeader) != s.secret {
			s.log.WarnContext(r.Context(), "Webhook request with invalid secret token", "remote_addr", r.RemoteAddr)
			return
		}

		var update models.Update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
			s.log.WarnContext(r.Context(), "Failed to decode webhook update", "error", err)
			return
		}

		select {
		case s.queue <- &update:
			s.log.DebugContext(r.Context(), "Queued webhook update", "update_id", update.ID)
		default:
			s.log.WarnContext(r.Context(), "Webhook queue full, dropping update", "update_id", update.ID, "queue_size", cap(s.queue))
		}
	})
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"ok":true}`)
}
