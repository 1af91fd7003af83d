package handlers

import (
	"context"
)

// NewHelpHandler returns a handler for the /help command. Unknown commands
// are answered with the same text.
func NewHelpHandler(deps HandlerDeps) CommandFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, in Inbound) {
	log := h.deps.Logger.With("handler", "help")
	log.InfoContext(ctx, "Handling /help command", "chat_id", in.ChatID, "user_id", in.UserID)

	reply(ctx, h.deps, log, in.ChatID, h.deps.Messages.Help)
}
