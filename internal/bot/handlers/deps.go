// Package handlers turns inbound chat messages into command replies or food
// analyses. It is transport agnostic: polling and webhook delivery both end
// up in Dispatcher.
package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/foodlens/internal/analysis"
	"github.com/edgard/foodlens/internal/config"
	"github.com/edgard/foodlens/internal/nutrition"
)

// Messenger talks back to the messaging platform.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

// Analyzer is the subset of the analysis service used from chat.
type Analyzer interface {
	AnalyzeAndStore(ctx context.Context, raw []byte, filename string) (*nutrition.Record, error)
	History(ctx context.Context, limit, offset int) (*analysis.HistoryPage, error)
	Statistics(ctx context.Context, days int) (*nutrition.Statistics, error)
}

// HandlerDeps provides dependencies for chat handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Messages  config.MessagesConfig
	Messenger Messenger
	Analyzer  Analyzer
}

// Inbound is the transport-independent view of one update.
type Inbound struct {
	UpdateID    int64
	ChatID      int64
	UserID      int64
	Text        string
	PhotoFileID string
}

// reply sends text and logs, but does not return, a send failure.
func reply(ctx context.Context, deps HandlerDeps, log *slog.Logger, chatID int64, text string) {
	if err := deps.Messenger.SendMessage(ctx, chatID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
	}
}
