package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/foodlens/internal/analysis"
	"github.com/edgard/foodlens/internal/bot/handlers"
	"github.com/edgard/foodlens/internal/config"
	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/nutrition"
)

var messages = config.MessagesConfig{
	Welcome:           "welcome",
	Help:              "help",
	SendPhoto:         "send a photo",
	Analyzing:         "analyzing",
	DownloadFailed:    "download failed",
	ValidationFailed:  "check your image",
	AnalysisFailed:    "analysis failed",
	StorageFailed:     "storage failed",
	PersistenceFailed: "saving failed",
	GeneralError:      "general error",
	HistoryEmpty:      "no history",
}

type sent struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	sent         []sent
	failSends    int
	downloadErr  error
	downloadedID string
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	if m.failSends > 0 {
		m.failSends--
		return errors.New("telegram unavailable")
	}
	m.sent = append(m.sent, sent{chatID, text})
	return nil
}

func (m *fakeMessenger) DownloadFile(_ context.Context, fileID string) ([]byte, string, error) {
	m.downloadedID = fileID
	if m.downloadErr != nil {
		return nil, "", m.downloadErr
	}
	return []byte("photo-bytes"), "file_3.jpg", nil
}

func (m *fakeMessenger) texts() []string {
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.text)
	}
	return out
}

type fakeAnalyzer struct {
	err      error
	calls    int
	raw      []byte
	filename string
	history  []*nutrition.Record
}

func (a *fakeAnalyzer) AnalyzeAndStore(_ context.Context, raw []byte, filename string) (*nutrition.Record, error) {
	a.calls++
	a.raw, a.filename = raw, filename
	if a.err != nil {
		return nil, a.err
	}
	score := 70
	return &nutrition.Record{
		ID: "rec-1",
		Facts: nutrition.Facts{
			FoodName: "Pasta", Calories: 540, Sugar: 6, Protein: 18.5, Carbs: 80, Fat: 14, Fiber: 5,
			HealthScore: &score,
		},
	}, nil
}

func (a *fakeAnalyzer) History(_ context.Context, limit, offset int) (*analysis.HistoryPage, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &analysis.HistoryPage{Total: int64(len(a.history)), Limit: limit, Offset: offset, Data: a.history}, nil
}

func (a *fakeAnalyzer) Statistics(_ context.Context, days int) (*nutrition.Statistics, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &nutrition.Statistics{Days: days, TotalMeals: 3, TotalCalories: 1500, AvgCalories: 500}, nil
}

func newDispatcher(m *fakeMessenger, a *fakeAnalyzer) *handlers.Dispatcher {
	return handlers.NewDispatcher(handlers.HandlerDeps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Messages:  messages,
		Messenger: m,
		Analyzer:  a,
	})
}

func TestCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"/start", "welcome"},
		{"/START@foodlens_bot", "welcome"},
		{"/help", "help"},
		{"/unknown arg", "help"},
		{"hello there", "send a photo"},
		{"", "send a photo"},
	}

	for _, tc := range tests {
		m := &fakeMessenger{}
		a := &fakeAnalyzer{}
		newDispatcher(m, a).Handle(context.Background(), handlers.Inbound{ChatID: 5, Text: tc.text})

		require.Len(t, m.sent, 1, tc.text)
		assert.Equal(t, int64(5), m.sent[0].chatID)
		assert.Equal(t, tc.want, m.sent[0].text, tc.text)
		assert.Zero(t, a.calls, tc.text)
	}
}

func TestPhotoSuccess(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	a := &fakeAnalyzer{}
	newDispatcher(m, a).Handle(context.Background(), handlers.Inbound{ChatID: 8, PhotoFileID: "file-big"})

	assert.Equal(t, "file-big", m.downloadedID)
	assert.Equal(t, []byte("photo-bytes"), a.raw)
	assert.Equal(t, "file_3.jpg", a.filename)

	texts := m.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "analyzing", texts[0])
	assert.Contains(t, texts[1], "Pasta")
	assert.Contains(t, texts[1], "540 kcal")
	assert.Contains(t, texts[1], "18.5 g")
	assert.Contains(t, texts[1], "70/100")
}

func TestPhotoDownloadFailure(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{downloadErr: errs.NewDownloadError("boom", nil)}
	a := &fakeAnalyzer{}
	newDispatcher(m, a).Handle(context.Background(), handlers.Inbound{ChatID: 8, PhotoFileID: "f"})

	assert.Equal(t, []string{"download failed"}, m.texts())
	assert.Zero(t, a.calls)
}

func TestAnalyzingNoticeFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{failSends: 1}
	a := &fakeAnalyzer{}
	newDispatcher(m, a).Handle(context.Background(), handlers.Inbound{ChatID: 8, PhotoFileID: "f"})

	assert.Equal(t, 1, a.calls)
	texts := m.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Pasta")
}

func TestPhotoFailureReplies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{errs.NewValidationError("Calories must be greater than 0", nil), "check your image"},
		{errs.NewAnalysisError("model said no", errors.New("internal detail")), "analysis failed"},
		{errs.NewStorageError("upload failed", errors.New("internal detail")), "storage failed"},
		{errs.NewPersistenceError("save failed", errors.New("internal detail")), "saving failed"},
		{errors.New("internal detail"), "general error"},
	}

	for _, tc := range tests {
		m := &fakeMessenger{}
		newDispatcher(m, &fakeAnalyzer{err: tc.err}).Handle(context.Background(), handlers.Inbound{ChatID: 1, PhotoFileID: "f"})

		assert.Equal(t, []string{"analyzing", tc.want}, m.texts())
		for _, text := range m.texts() {
			assert.NotContains(t, text, "internal detail")
		}
	}
}

func TestRedeliveredUpdateIsProcessedTwice(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	a := &fakeAnalyzer{}
	d := newDispatcher(m, a)
	update := &models.Update{ID: 77, Message: &models.Message{
		ID:    1,
		Chat:  models.Chat{ID: 4},
		Photo: []models.PhotoSize{{FileID: "p", Width: 90, Height: 90}},
	}}

	d.HandleUpdate(context.Background(), update)
	d.HandleUpdate(context.Background(), update)
	assert.Equal(t, 2, a.calls)
}

func TestHistoryAndStatsCommands(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	newDispatcher(m, &fakeAnalyzer{}).Handle(context.Background(), handlers.Inbound{ChatID: 1, Text: "/history"})
	assert.Equal(t, []string{"no history"}, m.texts())

	m = &fakeMessenger{}
	a := &fakeAnalyzer{history: []*nutrition.Record{
		{Facts: nutrition.Facts{FoodName: "Soup", Calories: 150}, CreatedAt: time.Date(2026, 1, 2, 13, 4, 0, 0, time.UTC)},
	}}
	newDispatcher(m, a).Handle(context.Background(), handlers.Inbound{ChatID: 1, Text: "/history"})
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].text, "2026-01-02 13:04 Soup (150 kcal)")

	m = &fakeMessenger{}
	newDispatcher(m, &fakeAnalyzer{}).Handle(context.Background(), handlers.Inbound{ChatID: 1, Text: "/stats"})
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].text, "Last 7 days: 3 meals")
	assert.Contains(t, m.sent[0].text, "1500 kcal (avg 500)")

	m = &fakeMessenger{}
	newDispatcher(m, &fakeAnalyzer{err: errs.NewPersistenceError("db down", nil)}).Handle(context.Background(), handlers.Inbound{ChatID: 1, Text: "/stats"})
	assert.Equal(t, []string{"general error"}, m.texts())
}

func TestFromUpdate(t *testing.T) {
	t.Parallel()

	_, ok := handlers.FromUpdate(&models.Update{ID: 1})
	assert.False(t, ok)

	in, ok := handlers.FromUpdate(&models.Update{ID: 2, Message: &models.Message{
		Chat: models.Chat{ID: 10},
		From: &models.User{ID: 20},
		Photo: []models.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 1280, Height: 960},
			{FileID: "medium", Width: 320, Height: 240},
		},
	}})
	require.True(t, ok)
	assert.Equal(t, handlers.Inbound{UpdateID: 2, ChatID: 10, UserID: 20, PhotoFileID: "large"}, in)

	in, ok = handlers.FromUpdate(&models.Update{ID: 3, Message: &models.Message{
		Chat:     models.Chat{ID: 10},
		Document: &models.Document{FileID: "doc", MimeType: "image/png"},
	}})
	require.True(t, ok)
	assert.Equal(t, "doc", in.PhotoFileID)

	in, ok = handlers.FromUpdate(&models.Update{ID: 4, Message: &models.Message{
		Chat:     models.Chat{ID: 10},
		Document: &models.Document{FileID: "pdf", MimeType: "application/pdf"},
	}})
	require.True(t, ok)
	assert.Empty(t, in.PhotoFileID)
}

func TestFormatSummaryWithoutHealthScore(t *testing.T) {
	t.Parallel()

	text := handlers.FormatSummary(&nutrition.Record{Facts: nutrition.Facts{
		FoodName: "Toast", Calories: 90, Sugar: 1, Protein: 3, Carbs: 15, Fat: 1, Fiber: 1, Notes: "Whole grain",
	}})
	assert.Contains(t, text, "Toast")
	assert.Contains(t, text, "Whole grain")
	assert.NotContains(t, text, "Health score")
}
