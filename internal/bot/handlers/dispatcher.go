package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Dispatcher routes each inbound update: commands go to the command table,
// photos to the analysis flow, anything else gets the photo prompt. It keeps
// no state between updates and does not deduplicate redeliveries.
type Dispatcher struct {
	deps     HandlerDeps
	commands map[string]RegisteredCommand
	photo    CommandFunc
}

func NewDispatcher(deps HandlerDeps) *Dispatcher {
	return &Dispatcher{
		deps:     deps,
		commands: RegisterAllCommands(deps),
		photo:    NewPhotoHandler(deps),
	}
}

// Handle processes one inbound update to completion.
func (d *Dispatcher) Handle(ctx context.Context, in Inbound) {
	log := d.deps.Logger.With("handler", "dispatcher")

	if name, ok := commandName(in.Text); ok {
		cmd, found := d.commands[name]
		if !found {
			log.DebugContext(ctx, "Unknown command, answering with help", "command", name, "chat_id", in.ChatID)
			cmd = d.commands["/help"]
		}
		cmd.Handler(ctx, in)
		return
	}

	if in.PhotoFileID != "" {
		d.photo(ctx, in)
		return
	}

	reply(ctx, d.deps, log, in.ChatID, d.deps.Messages.SendPhoto)
}

// HandleUpdate converts a Telegram update and handles it. Updates without a
// message are ignored.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update *models.Update) {
	in, ok := FromUpdate(update)
	if !ok {
		d.deps.Logger.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}
	d.Handle(ctx, in)
}

// BotHandler adapts the dispatcher to the bot library's handler type.
func (d *Dispatcher) BotHandler() bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		d.HandleUpdate(ctx, update)
	}
}

// FromUpdate extracts the fields the dispatcher needs. The largest photo size
// is used; an image sent as a document counts as a photo.
func FromUpdate(update *models.Update) (Inbound, bool) {
	if update == nil || update.Message == nil {
		return Inbound{}, false
	}
	msg := update.Message

	in := Inbound{
		UpdateID: update.ID,
		ChatID:   msg.Chat.ID,
		Text:     strings.TrimSpace(msg.Text),
	}
	if msg.From != nil {
		in.UserID = msg.From.ID
	}

	switch {
	case len(msg.Photo) > 0:
		in.PhotoFileID = largestPhoto(msg.Photo).FileID
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		in.PhotoFileID = msg.Document.FileID
	}
	return in, true
}

func largestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}

// commandName returns "/name" for text like "/name@botname args".
func commandName(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0]
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), true
}
