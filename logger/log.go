// Package logger sends slog records to Cloud Logging through the logging
// client instead of stdout.
package logger

import (
	"context"
	"log/slog"

	"cloud.google.com/go/logging"
	"github.com/Bilz97/UConnectChat/log"
)

// Handler is a slog.Handler backed by a Cloud Logging logger.
type Handler struct {
	logger *logging.Logger
	level  slog.Leveler
	attrs  []slog.Attr
}

// New opens a logging client for projectID and returns a handler writing to
// logID together with the client so the caller can flush and close it.
func New(ctx context.Context, projectID, logID string, level slog.Leveler) (*Handler, *logging.Client, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return NewHandler(client.Logger(logID), level), client, nil
}

func NewHandler(l *logging.Logger, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{logger: l, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.logger.Log(entry(ctx, r, h.attrs))
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &Handler{logger: h.logger, level: h.level, attrs: newAttrs}
}

// Flush sends buffered entries. Call it before the instance can be frozen.
func (h *Handler) Flush() error {
	return h.logger.Flush()
}

func (h *Handler) WithGroup(_ string) slog.Handler {
	return h
}

func entry(ctx context.Context, r slog.Record, attrs []slog.Attr) logging.Entry {
	payload := map[string]any{"message": r.Message}
	for _, attr := range attrs {
		payload[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(attr slog.Attr) bool {
		payload[attr.Key] = attr.Value.Any()
		return true
	})
	return logging.Entry{
		Timestamp: r.Time,
		Severity:  severity(r.Level),
		Payload:   payload,
		Trace:     log.TraceFromContext(ctx),
	}
}

func severity(level slog.Level) logging.Severity {
	return logging.ParseSeverity(log.Severity(level))
}
