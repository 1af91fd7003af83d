package logger

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/go-co-op/gocron/v2"

	errs "github.com/edgard/foodlens/internal/errors"
)

// gocronLogger routes gocron's internal logging through slog.
type gocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger returns a gocron.Logger backed by log. Scheduler errors
// are classified before logging so they carry an error code.
//
//nolint:ireturn // Interface return is required by gocron's API contract
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	return &gocronLogger{log: log.With("component", "gocron")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debug(msg, schedulerArgs(args)...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Info(msg, schedulerArgs(args)...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, schedulerArgs(args)...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Error(msg, schedulerArgs(args)...) }

// schedulerArgs wraps error values and appends their code.
func schedulerArgs(args []any) []any {
	out := make([]any, 0, len(args)+2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, args[i])
			break
		}

		key, val := args[i], args[i+1]
		err, isErr := val.(error)
		if !isErr || key != "error" {
			out = append(out, key, val)
			continue
		}

		wrapped := classifySchedulerError(err)
		out = append(out, key, wrapped, "error_code", errs.Code(wrapped))
	}
	return out
}

func classifySchedulerError(err error) error {
	switch {
	case errors.Is(err, gocron.ErrJobNotFound):
		return errs.NewValidationError("scheduled job not found", err)
	case strings.Contains(err.Error(), "duplicate job"):
		return errs.NewValidationError("duplicate job name", err)
	case strings.Contains(err.Error(), "shutdown"):
		return errs.NewConfigError("scheduler is shut down", err)
	default:
		return errs.NewConfigError("scheduler error", err)
	}
}
