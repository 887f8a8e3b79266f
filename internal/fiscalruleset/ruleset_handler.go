package fiscalruleset

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ruleseterrors "nomina-core/internal/fiscalruleset/errors"
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

func parseVersionParam(c *gin.Context, name string) (int, bool) {
	version, err := strconv.Atoi(c.Param(name))
	if err != nil || version < 1 {
		return 0, false
	}
	return version, true
}

func (h *Handler) GetAll(c *gin.Context) {
	snapshots, err := h.service.GetAllSnapshots(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshots, nil)
}

func (h *Handler) GetByVersion(c *gin.Context) {
	version, ok := parseVersionParam(c, "version")
	if !ok {
		h.writeServiceError(c, ruleseterrors.ErrInvalidVersion)
		return
	}

	snapshot, err := h.service.GetSnapshot(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot, nil)
}

func (h *Handler) Verify(c *gin.Context) {
	version, ok := parseVersionParam(c, "version")
	if !ok {
		h.writeServiceError(c, ruleseterrors.ErrInvalidVersion)
		return
	}

	result, err := h.service.VerifyIntegrity(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapIntegrityResponse(result), nil)
}

func (h *Handler) Compare(c *gin.Context) {
	from, err := strconv.Atoi(c.Query("from"))
	if err != nil || from < 1 {
		h.writeServiceError(c, ruleseterrors.ErrInvalidVersion)
		return
	}
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil || to < 1 {
		h.writeServiceError(c, ruleseterrors.ErrInvalidVersion)
		return
	}

	diff, err := h.service.CompareSnapshots(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, diff, nil)
}
