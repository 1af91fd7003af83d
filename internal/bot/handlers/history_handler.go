package handlers

import (
	"context"

	"github.com/edgard/foodlens/internal/analysis"
)

const historyCommandLimit = 5

// NewHistoryHandler returns a handler for the /history command.
func NewHistoryHandler(deps HandlerDeps) CommandFunc {
	return historyHandler{deps}.Handle
}

type historyHandler struct {
	deps HandlerDeps
}

func (h historyHandler) Handle(ctx context.Context, in Inbound) {
	log := h.deps.Logger.With("handler", "history")
	log.InfoContext(ctx, "Handling /history command", "chat_id", in.ChatID, "user_id", in.UserID)

	page, err := h.deps.Analyzer.History(ctx, min(historyCommandLimit, analysis.MaxHistoryLimit), 0)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load history", "error", err)
		reply(ctx, h.deps, log, in.ChatID, h.deps.Messages.GeneralError)
		return
	}
	if len(page.Data) == 0 {
		reply(ctx, h.deps, log, in.ChatID, h.deps.Messages.HistoryEmpty)
		return
	}

	reply(ctx, h.deps, log, in.ChatID, FormatHistory(page.Data))
}
