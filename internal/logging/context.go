package logging

import (
	"context"
	"log/slog"
)

// Correlation IDs travel on the context so that any layer can log them
// without threading them through call signatures.
type ctxKey int

const (
	flowchartIDKey ctxKey = iota
	nodeIDKey
	sessionIDKey
)

// WithFlowchartID tags ctx with the flowchart being operated on.
func WithFlowchartID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowchartIDKey, id)
}

// WithNodeID tags ctx with the node an operation targets.
func WithNodeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, nodeIDKey, id)
}

// WithSessionID tags ctx with the owning editor session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// FlowchartID returns the flowchart ID carried by ctx, or "".
func FlowchartID(ctx context.Context) string {
	v, _ := ctx.Value(flowchartIDKey).(string)
	return v
}

// NodeID returns the node ID carried by ctx, or "".
func NodeID(ctx context.Context) string {
	v, _ := ctx.Value(nodeIDKey).(string)
	return v
}

// SessionID returns the editor session ID carried by ctx, or "".
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// LogWith copies whichever correlation IDs are present on ctx onto the
// logger as attributes. IDs that were never set add nothing.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := FlowchartID(ctx); id != "" {
		logger = logger.With(slog.String("flowchart_id", id))
	}
	if id := NodeID(ctx); id != "" {
		logger = logger.With(slog.String("node_id", id))
	}
	if id := SessionID(ctx); id != "" {
		logger = logger.With(slog.String("session_id", id))
	}
	return logger
}

// CorrelationHandler decorates every record with the correlation IDs found
// on the log call's context. Wrap the real handler once at logger
// construction; from then on logger.InfoContext(ctx, ...) carries the IDs
// without callers mentioning them.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps inner with correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := FlowchartID(ctx); id != "" {
		r.AddAttrs(slog.String("flowchart_id", id))
	}
	if id := NodeID(ctx); id != "" {
		r.AddAttrs(slog.String("node_id", id))
	}
	if id := SessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
