// Package bot manages the lifecycle of every long-running foodlens component:
// the Telegram update source, the HTTP server, the scheduler and the live feed.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Component is a long-running part of the application. Run blocks until ctx
// is done or the component fails.
type Component interface {
	Run(ctx context.Context) error
}

// Components lists what the bot runs. Source is nil when no Telegram token
// is configured; the HTTP API still runs in that case.
type Components struct {
	Source    Component
	Server    Component
	Scheduler Component
	Feed      Component
}

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	components Components
}

func NewBot(logger *slog.Logger, components Components) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		components: components,
	}
}

// Run starts every component and waits. The first failure cancels the rest;
// a cancelled ctx shuts everything down gracefully.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	b.start(g, gCtx, "telegram_source", b.components.Source)
	b.start(g, gCtx, "http_server", b.components.Server)
	b.start(g, gCtx, "scheduler", b.components.Scheduler)
	b.start(g, gCtx, "feed", b.components.Feed)

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) start(g *errgroup.Group, ctx context.Context, name string, c Component) {
	if c == nil {
		b.logger.Info("Component disabled", "name", name)
		return
	}
	g.Go(func() error {
		b.logger.Info("Starting component", "name", name)
		err := c.Run(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if ctx.Err() == nil {
			b.logger.Warn("Component stopped unexpectedly without context cancellation", "name", name)
			return fmt.Errorf("%s stopped unexpectedly", name)
		}
		b.logger.Info("Component stopped", "name", name)
		return nil
	})
}
