package logger

import (
	"io"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger forwards gocron's internal logging to slog.
type gocronLogger struct {
	logger *slog.Logger
}

// NewGocron returns a gocron.Logger backed by the given slog logger.
//
//nolint:ireturn // Interface return is required by gocron's API contract
func NewGocron(logger *slog.Logger) gocron.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &gocronLogger{logger: logger.With("component", "scheduler")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
