package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nomina-core/internal/shared/contextutil"
)

// StdoutAuditLogger writes lifecycle audit entries through the global zap
// logger. Good enough for local runs; deployments can swap in a sink that
// ships entries elsewhere.
type StdoutAuditLogger struct{}

func NewStdoutAuditLogger() *StdoutAuditLogger {
	return &StdoutAuditLogger{}
}

func (l *StdoutAuditLogger) Log(ctx context.Context, entry AuditLog) {
	fields := []zap.Field{
		zap.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		zap.String("action", entry.Action),
		zap.String("message", entry.Message),
		zap.Any("meta", entry.Meta),
	}
	if requestID := contextutil.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	zap.L().Named("audit").Info("audit event", fields...)
}
