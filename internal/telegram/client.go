package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-telegram/bot"

	"github.com/edgard/foodlens/internal/config"
	errs "github.com/edgard/foodlens/internal/errors"
)

const downloadTimeout = 30 * time.Second

// Client sends replies and downloads files on behalf of the bot.
type Client struct {
	bot        *bot.Bot
	fileURL    string
	httpClient *http.Client
	maxBytes   int64
	log        *slog.Logger
}

func NewClient(b *bot.Bot, cfg config.TelegramConfig, logger *slog.Logger) *Client {
	serverURL := cfg.ServerURL
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	maxMB := cfg.MaxDownloadMB
	if maxMB <= 0 {
		maxMB = 20
	}
	return &Client{
		bot:        b,
		fileURL:    strings.TrimRight(serverURL, "/") + "/file/bot" + cfg.Token + "/",
		httpClient: &http.Client{Timeout: downloadTimeout},
		maxBytes:   int64(maxMB) * 1024 * 1024,
		log:        logger.With("component", "telegram_client"),
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// DownloadFile resolves fileID with getFile and fetches its bytes. It returns
// the file's base name alongside the data. Every failure is a DownloadError.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := c.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", errs.NewDownloadError("failed to resolve telegram file", err)
	}
	if file.FilePath == "" {
		return nil, "", errs.NewDownloadError("telegram file has no download path", nil)
	}
	if size := int64(file.FileSize); size > c.maxBytes {
		return nil, "", errs.NewDownloadError(fmt.Sprintf("telegram file is too large (%d bytes)", size), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+file.FilePath, nil)
	if err != nil {
		return nil, "", errs.NewDownloadError("failed to build download request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errs.NewDownloadError("failed to download telegram file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errs.NewDownloadError(fmt.Sprintf("telegram file download returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, "", errs.NewDownloadError("failed to read telegram file", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, "", errs.NewDownloadError("telegram file is too large", nil)
	}

	c.log.DebugContext(ctx, "Downloaded telegram file", "file_id", fileID, "size", len(data))
	return data, path.Base(file.FilePath), nil
}
