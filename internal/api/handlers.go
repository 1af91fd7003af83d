package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/foodlens/internal/analysis"
	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/imaging"
	"github.com/edgard/foodlens/internal/nutrition"
)

// Analyzer is the analysis service as seen by the HTTP layer.
type Analyzer interface {
	AnalyzeAndStore(ctx context.Context, raw []byte, filename string) (*nutrition.Record, error)
	Get(ctx context.Context, id string) (*nutrition.Record, error)
	History(ctx context.Context, limit, offset int) (*analysis.HistoryPage, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context, days int) (*nutrition.Statistics, error)
}

// FileDownloader fetches a file from the messaging platform by its file id.
type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

// AnalysisResponse is returned by every analyze endpoint.
type AnalysisResponse struct {
	AnalysisID string          `json:"analysisId"`
	Nutrition  nutrition.Facts `json:"nutrition"`
	ImageURL   string          `json:"imageUrl"`
	Timestamp  time.Time       `json:"timestamp"`
}

type base64Request struct {
	ImageData string `json:"imageData"`
	Filename  string `json:"filename"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type handlers struct {
	log            *slog.Logger
	analyzer       Analyzer
	downloader     FileDownloader
	maxUploadBytes int
	version        string
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: ServiceName, Version: h.version})
}

func (h *handlers) analyzeUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, int64(2*h.maxUploadBytes+1<<20))
	if err := r.ParseMultipartForm(int64(h.maxUploadBytes) + 1<<20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.log, errs.NewValidationError("upload exceeds the maximum allowed size", err))
			return
		}
		writeError(w, r, h.log, errs.NewValidationError("expected a multipart form with a file field", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.log, errs.NewValidationError("missing file field", err))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, int64(h.maxUploadBytes)+1))
	if err != nil {
		writeError(w, r, h.log, errs.NewValidationError("failed to read uploaded file", err))
		return
	}

	h.analyze(w, r, raw, header.Filename)
}

func (h *handlers) analyzeBase64(w http.ResponseWriter, r *http.Request) {
	// Base64 inflates by 4/3; allow room for the JSON wrapper.
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxUploadBytes/3*4+1<<20))

	var req base64Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.log, errs.NewValidationError("upload exceeds the maximum allowed size", err))
			return
		}
		writeError(w, r, h.log, errs.NewValidationError("invalid JSON body", err))
		return
	}
	if req.ImageData == "" {
		writeError(w, r, h.log, errs.NewValidationError("imageData is required", nil))
		return
	}

	raw, err := imaging.DecodeBase64(req.ImageData)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	filename := req.Filename
	if filename == "" {
		filename = "image.jpg"
	}

	h.analyze(w, r, raw, filename)
}

func (h *handlers) analyzeTelegram(w http.ResponseWriter, r *http.Request) {
	if h.downloader == nil {
		writeError(w, r, h.log, errs.NewValidationError("telegram bot is not configured", nil))
		return
	}
	fileID := r.URL.Query().Get("file_id")
	if fileID == "" {
		writeError(w, r, h.log, errs.NewValidationError("file_id is required", nil))
		return
	}

	raw, filename, err := h.downloader.DownloadFile(r.Context(), fileID)
	if err != nil {
		if !errs.IsDownload(err) {
			err = errs.NewDownloadError("failed to download telegram file", err)
		}
		writeError(w, r, h.log, err)
		return
	}

	h.analyze(w, r, raw, filename)
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request, raw []byte, filename string) {
	record, err := h.analyzer.AnalyzeAndStore(r.Context(), raw, filename)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{
		AnalysisID: record.ID,
		Nutrition:  record.Facts,
		ImageURL:   record.ImageURL,
		Timestamp:  record.CreatedAt,
	})
}

func (h *handlers) getAnalysis(w http.ResponseWriter, r *http.Request) {
	record, err := h.analyzer.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *handlers) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := h.analyzer.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Analysis deleted successfully"})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", analysis.DefaultHistoryLimit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	page, err := h.analyzer.History(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) statistics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", analysis.DefaultStatsDays)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	stats, err := h.analyzer.Statistics(r.Context(), days)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewValidationError(name+" must be an integer", err)
	}
	return v, nil
}
