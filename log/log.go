package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// TraceHeader carries the Cloud Trace context on incoming requests.
	TraceHeader = "X-Cloud-Trace-Context"

	// ErrorMsgLogField is the attribute key for error details.
	ErrorMsgLogField = "errorMsg"

	traceKey = "logging.googleapis.com/trace"
)

type ctxKey struct{}

type traceCtxKey struct{}

// CloudLoggingHandler is a slog.Handler writing Google Cloud structured JSON
// lines, one entry per record.
type CloudLoggingHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

// NewCloudLoggingHandler creates a handler writing to w. A nil w writes to
// stdout and a nil level enables everything from Info up.
func NewCloudLoggingHandler(w io.Writer, level slog.Leveler) *CloudLoggingHandler {
	if w == nil {
		w = os.Stdout
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &CloudLoggingHandler{mu: &sync.Mutex{}, w: w, level: level}
}

// Handle processes log records.
func (h *CloudLoggingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := map[string]any{
		"severity": Severity(r.Level),
		"time":     r.Time.Format(time.RFC3339Nano),
		"message":  r.Message,
	}
	if r.Time.IsZero() {
		entry["time"] = time.Now().Format(time.RFC3339Nano)
	}

	if trace := TraceFromContext(ctx); trace != "" {
		entry[traceKey] = trace
	}

	for _, attr := range h.attrs {
		entry[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(attr slog.Attr) bool {
		entry[attr.Key] = attr.Value.Any()
		return true
	})

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(jsonData, '\n'))
	return err
}

func (h *CloudLoggingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CloudLoggingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &CloudLoggingHandler{mu: h.mu, w: h.w, level: h.level, attrs: newAttrs}
}

// WithGroup returns the same handler, as grouping is not implemented.
func (h *CloudLoggingHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Severity maps a slog level onto a Cloud Logging severity name.
func Severity(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// WithTrace stores the trace resource name derived from an
// X-Cloud-Trace-Context header value ("TRACE_ID/SPAN_ID;o=1").
func WithTrace(ctx context.Context, projectID, header string) context.Context {
	traceID, _, _ := strings.Cut(header, "/")
	if traceID == "" || projectID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceCtxKey{}, "projects/"+projectID+"/traces/"+traceID)
}

func TraceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	trace, _ := ctx.Value(traceCtxKey{}).(string)
	return trace
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(NewCloudLoggingHandler(nil, nil))
}
