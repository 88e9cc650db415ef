package logger

import (
	"context"
	log "log/slog"
)

// TraceIDKey 请求链路 id 在 Context 中的键
const TraceIDKey = "trace_id"

// ContextHandler 从 ctx 取链路 id 附到每条日志上
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		r.AddAttrs(log.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, r)
}
