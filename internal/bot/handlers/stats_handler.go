package handlers

import (
	"context"

	"github.com/edgard/foodlens/internal/analysis"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) CommandFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, in Inbound) {
	log := h.deps.Logger.With("handler", "stats")
	log.InfoContext(ctx, "Handling /stats command", "chat_id", in.ChatID, "user_id", in.UserID)

	stats, err := h.deps.Analyzer.Statistics(ctx, analysis.DefaultStatsDays)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load statistics", "error", err)
		reply(ctx, h.deps, log, in.ChatID, h.deps.Messages.GeneralError)
		return
	}

	reply(ctx, h.deps, log, in.ChatID, FormatStatistics(stats))
}
