package fiscalruleset

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	snapshots := r.Group("/receipts/:id")
	{
		snapshots.GET("/snapshots", handler.GetAll)
		snapshots.GET("/snapshots/:version", handler.GetByVersion)
		snapshots.GET("/snapshots/:version/verify", handler.Verify)
		snapshots.GET("/snapshot-diff", handler.Compare)
	}
}
