package handlers

import (
	"context"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) CommandFunc {
	return startHandler{deps}.Handle
}

// startHandler processes the /start command using injected dependencies.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, in Inbound) {
	log := h.deps.Logger.With("handler", "start")
	log.InfoContext(ctx, "Handling /start command", "chat_id", in.ChatID, "user_id", in.UserID)

	reply(ctx, h.deps, log, in.ChatID, h.deps.Messages.Welcome)
}
