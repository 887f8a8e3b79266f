package period

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nomina-core/internal/shared/apperror"
	"nomina-core/internal/shared/response"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) GetByID(c *gin.Context) {
	p, err := h.service.GetPeriod(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, p, nil)
}

func (h *Handler) GetAuthorizations(c *gin.Context) {
	if c.Query("active") == "true" {
		auth, err := h.service.ActiveAuthorization(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.writeServiceError(c, err)
			return
		}
		response.Success(c, http.StatusOK, auth, nil)
		return
	}

	auths, err := h.service.AuthorizationHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, auths, nil)
}
