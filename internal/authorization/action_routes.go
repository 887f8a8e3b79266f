package authorization

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"nomina-core/internal/middleware"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rdb ...*redis.Client,
) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	actions := r.Group("/actions")
	{
		if redisClient != nil {
			actions.POST("", middleware.Idempotency(redisClient), handler.RequestAction)
		} else {
			actions.POST("", handler.RequestAction)
		}
		actions.GET("", handler.GetActionLog)
	}

	r.GET("/periods/:id/stamping-eligibility", handler.GetStampingEligibility)
}
