package receipt

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

	receipts := r.Group("/receipts")
	{
		receipts.GET("/:id/versions", handler.GetVersions)
		receipts.GET("/:id/versions/:version", handler.GetVersion)
		receipts.GET("/:id/diff", handler.Compare)
		receipts.GET("/:id/can-modify", handler.CanModify)

		if redisClient != nil {
			receipts.POST(
				"/:id/versions",
				middleware.Idempotency(redisClient),
				handler.CreateVersion,
			)
			receipts.POST(
				"/:id/calculate",
				middleware.Idempotency(redisClient),
				handler.Calculate,
			)
		} else {
			receipts.POST("/:id/versions", handler.CreateVersion)
			receipts.POST("/:id/calculate", handler.Calculate)
		}

		receipts.POST("/:id/mark-calculating", handler.MarkCalculating)
		receipts.POST("/:id/confirm-calculated", handler.ConfirmCalculated)
		receipts.POST("/:id/approve", handler.Approve)
		receipts.POST("/:id/begin-stamping", handler.BeginStamping)
		receipts.POST("/:id/stamp", handler.Stamp)
		receipts.POST("/:id/mark-paid", handler.MarkPaid)
		receipts.POST("/:id/cancel", handler.Cancel)
	}
}
