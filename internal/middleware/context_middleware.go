package middleware

import (
	"nomina-core/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextLogger attaches a request-scoped logger carrying the request id
// and acting principal, and propagates both into the standard context so
// the service and repository layers stay Gin-agnostic.
func ContextLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Header("X-Request-ID", rid)

		// The upstream gateway authenticates and forwards the principal.
		// Authentication itself is out of scope here.
		actor := c.GetHeader("X-Actor-ID")
		c.Set("actor_id", actor)

		reqLogger := logger.With(
			zap.String("request_id", rid),
			zap.String("actor_id", actor),
		)

		ctx := c.Request.Context()
		ctx = contextutil.WithRequestID(ctx, rid)
		ctx = contextutil.WithActorID(ctx, actor)
		ctx = contextutil.WithLogger(ctx, reqLogger)

		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
