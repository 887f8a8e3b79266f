package period

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	periods := r.Group("/periods")
	{
		periods.GET("/:id", handler.GetByID)
		periods.GET("/:id/authorizations", handler.GetAuthorizations)
	}
}
