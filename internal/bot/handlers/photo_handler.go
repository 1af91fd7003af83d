package handlers

import (
	"context"
	"time"

	errs "github.com/edgard/foodlens/internal/errors"
)

// NewPhotoHandler returns the handler that downloads a photo, runs the
// analysis and replies with the summary or a failure class message.
func NewPhotoHandler(deps HandlerDeps) CommandFunc {
	return photoHandler{deps}.Handle
}

type photoHandler struct {
	deps HandlerDeps
}

func (h photoHandler) Handle(ctx context.Context, in Inbound) {
	log := h.deps.Logger.With("handler", "photo", "chat_id", in.ChatID, "update_id", in.UpdateID)
	startTime := time.Now()

	raw, filename, err := h.deps.Messenger.DownloadFile(ctx, in.PhotoFileID)
	if err != nil {
		log.WarnContext(ctx, "Failed to download photo", "file_id", in.PhotoFileID, "error", err)
		reply(ctx, h.deps, log, in.ChatID, h.deps.Messages.DownloadFailed)
		return
	}

	// The notice is best effort; analysis proceeds even if it cannot be sent.
	if err := h.deps.Messenger.SendMessage(ctx, in.ChatID, h.deps.Messages.Analyzing); err != nil {
		log.WarnContext(ctx, "Failed to send analyzing notice", "error", err)
	}

	record, err := h.deps.Analyzer.AnalyzeAndStore(ctx, raw, filename)
	if err != nil {
		log.WarnContext(ctx, "Photo analysis failed", "code", errs.Code(err), "error", err, "duration", time.Since(startTime))
		reply(ctx, h.deps, log, in.ChatID, h.failureMessage(err))
		return
	}

	log.InfoContext(ctx, "Photo analyzed successfully", "analysis_id", record.ID, "duration", time.Since(startTime))
	reply(ctx, h.deps, log, in.ChatID, FormatSummary(record))
}

// failureMessage picks the reply naming the failed stage. Internal error
// text never reaches the chat.
func (h photoHandler) failureMessage(err error) string {
	m := h.deps.Messages
	switch errs.Code(err) {
	case errs.CodeValidation:
		return m.ValidationFailed
	case errs.CodeAnalysis:
		return m.AnalysisFailed
	case errs.CodeStorage:
		return m.StorageFailed
	case errs.CodePersistence:
		return m.PersistenceFailed
	default:
		return m.GeneralError
	}
}
