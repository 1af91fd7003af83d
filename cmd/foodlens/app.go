package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/foodlens/internal/analysis"
	"github.com/edgard/foodlens/internal/api"
	"github.com/edgard/foodlens/internal/bot"
	"github.com/edgard/foodlens/internal/bot/handlers"
	"github.com/edgard/foodlens/internal/bot/tasks"
	"github.com/edgard/foodlens/internal/cache"
	"github.com/edgard/foodlens/internal/config"
	"github.com/edgard/foodlens/internal/database"
	"github.com/edgard/foodlens/internal/feed"
	"github.com/edgard/foodlens/internal/gemini"
	"github.com/edgard/foodlens/internal/imaging"
	"github.com/edgard/foodlens/internal/logger"
	"github.com/edgard/foodlens/internal/storage"
	"github.com/edgard/foodlens/internal/telegram"
)

// core holds the pieces every command needs to run an analysis.
type core struct {
	log     *slog.Logger
	db      *sqlx.DB
	store   database.Store
	images  storage.Store
	cache   cache.Cache
	service *analysis.Service
}

func newCore(ctx context.Context, cfg *config.Config, log *slog.Logger, notifier analysis.Notifier) (*core, error) {
	db, err := database.NewDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c := &core{log: log, db: db, store: database.NewStore(db, cfg.Database.Table, log)}

	extractor, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	c.images, err = storage.New(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}
	if err := c.images.EnsureBucket(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to prepare storage bucket: %w", err)
	}

	c.cache, err = cache.New(ctx, cfg.Cache)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	deps := analysis.ServiceDeps{
		Logger:    log,
		Extractor: extractor,
		Store:     c.images,
		Repo:      c.store,
		Cache:     c.cache,
		Notifier:  notifier,
	}
	c.service = analysis.NewService(deps, analysis.Options{
		Image: imaging.Options{
			MaxBytes:     cfg.Analysis.MaxUploadBytes(),
			MaxDimension: cfg.Analysis.MaxDimension,
			Quality:      cfg.Analysis.JPEGQuality,
		},
		Retry:    cfg.Analysis.Retry,
		CacheTTL: cfg.Cache.TTL,
	})
	return c, nil
}

// Close releases everything newCore opened, in reverse order.
func (c *core) Close() {
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.log.Error("Error closing cache", "error", err)
		}
	}
	if closer, ok := c.images.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.log.Error("Error closing image storage", "error", err)
		}
	}
	database.CloseDB(c.db)
}

// app is the long-running service: core plus every front door.
type app struct {
	*core
	bot *bot.Bot
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	hub := feed.NewHub(log, cfg.HTTP.CORSAllowedOrigins)

	c, err := newCore(ctx, cfg, log, hub)
	if err != nil {
		return nil, err
	}

	routerDeps := api.RouterDeps{
		Logger:         log,
		Analyzer:       c.service,
		Feed:           hub,
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes(),
		Version:        cfg.HTTP.Version,
	}
	if local, ok := c.images.(*storage.LocalStore); ok {
		routerDeps.Images = local.Handler()
	}

	components := bot.Components{Feed: hub}

	if cfg.Telegram.Token != "" {
		source, client, err := newTelegram(cfg, log, c.service)
		if err != nil {
			c.Close()
			return nil, err
		}
		routerDeps.Downloader = client
		if webhook, ok := source.(*telegram.WebhookSource); ok {
			routerDeps.Webhook = webhook.Handler()
		}
		components.Source = source
	} else {
		log.Warn("Telegram token not configured, chat front door disabled")
	}

	components.Server = api.NewServer(cfg.HTTP, api.NewRouter(routerDeps), log)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Store: c.store}))
	if err != nil {
		c.Close()
		return nil, err
	}
	components.Scheduler = sched

	return &app{core: c, bot: bot.NewBot(log, components)}, nil
}

func (a *app) Run(ctx context.Context) error {
	return a.bot.Run(ctx)
}

func newTelegram(cfg *config.Config, log *slog.Logger, service *analysis.Service) (telegram.UpdateSource, *telegram.Client, error) {
	// The dispatcher replies through a client built from the bot, so the bot
	// routes to it lazily.
	var dispatcher *handlers.Dispatcher
	route := func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		dispatcher.BotHandler()(ctx, b, update)
	}

	tg, handler, err := telegram.NewTelegramBot(cfg.Telegram, route, log, logger.Middleware(log))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	client := telegram.NewClient(tg, cfg.Telegram, log)
	dispatcher = handlers.NewDispatcher(handlers.HandlerDeps{
		Logger:    log,
		Messages:  cfg.Messages,
		Messenger: client,
		Analyzer:  service,
	})

	return telegram.NewSource(tg, handler, cfg.Telegram, log), client, nil
}
