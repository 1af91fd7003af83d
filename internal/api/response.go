package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errs "github.com/edgard/foodlens/internal/errors"
)

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusFor maps an error class to its HTTP status.
func StatusFor(err error) int {
	switch errs.Code(err) {
	case errs.CodeValidation:
		return http.StatusBadRequest
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeDownload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends the error envelope. Only the classified message reaches
// the client; wrapped causes are logged.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := StatusFor(err)
	code := errs.Code(err)
	message := errs.Message(err)
	if message == "" {
		code = errs.CodeUnknown
		message = "an unexpected error occurred"
	}

	attrs := []any{"status", status, "code", code, "error", err, "request_id", RequestIDFrom(r.Context())}
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		log.WarnContext(r.Context(), "Request rejected", attrs...)
	}

	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}
