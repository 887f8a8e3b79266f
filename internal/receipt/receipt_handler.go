package receipt

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	receipterrors "nomina-core/internal/receipt/errors"
	"nomina-core/internal/shared/apperror"
	"nomina-core/internal/shared/response"
)

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func NewHandlerWithRedis(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func getActorID(c *gin.Context) string {
	return c.GetString("actor_id")
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) releaseIdempotencyLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	lockKey, _ := c.Get("idempotency_lock_key")
	if lk, ok := lockKey.(string); ok && lk != "" {
		h.rdb.Del(c.Request.Context(), lk)
	}
}

// cacheIdempotentResponse stores the committed result under the middleware's
// cache key so a client retry replays the original response instead of
// re-executing the write.
func (h *Handler) cacheIdempotentResponse(c *gin.Context, resp any) {
	if h.rdb == nil {
		return
	}
	cacheKey, _ := c.Get("idempotency_cache_key")
	if ck, ok := cacheKey.(string); ok && ck != "" {
		if payload, err := json.Marshal(resp); err == nil {
			h.rdb.Set(c.Request.Context(), ck, payload, 24*time.Hour)
		}
	}
}

func (h *Handler) CreateVersion(c *gin.Context) {
	defer h.releaseIdempotencyLock(c)

	actorID := getActorID(c)

	var req CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, err.Error())
		return
	}

	version, err := h.service.CreateVersion(c.Request.Context(), c.Param("id"), actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResponse(c, version)
	response.Success(c, http.StatusCreated, version, nil)
}

func (h *Handler) Calculate(c *gin.Context) {
	defer h.releaseIdempotencyLock(c)

	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, err.Error())
		return
	}

	version, err := h.service.Calculate(c.Request.Context(), c.Param("id"), getActorID(c), req.Reason)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResponse(c, version)
	response.Success(c, http.StatusCreated, version, nil)
}

func (h *Handler) GetVersions(c *gin.Context) {
	versions, err := h.service.GetVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, versions, nil)
}

func (h *Handler) GetVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		h.writeServiceError(c, receipterrors.ErrInvalidVersion)
		return
	}

	resp, err := h.service.GetVersion(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) CanModify(c *gin.Context) {
	ok, err := h.service.CanModify(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, CanModifyResponse{
		ReceiptID: c.Param("id"),
		CanModify: ok,
	}, nil)
}

func (h *Handler) Compare(c *gin.Context) {
	from, err := strconv.Atoi(c.Query("from"))
	if err != nil || from < 1 {
		h.writeServiceError(c, receipterrors.ErrInvalidVersion)
		return
	}
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil || to < 1 {
		h.writeServiceError(c, receipterrors.ErrInvalidVersion)
		return
	}

	diff, err := h.service.Compare(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, diff, nil)
}

func (h *Handler) MarkCalculating(c *gin.Context) {
	h.runTransition(c, h.service.MarkCalculating)
}

func (h *Handler) ConfirmCalculated(c *gin.Context) {
	h.runTransition(c, h.service.ConfirmCalculated)
}

func (h *Handler) Approve(c *gin.Context) {
	h.runTransition(c, h.service.Approve)
}

func (h *Handler) BeginStamping(c *gin.Context) {
	h.runTransition(c, h.service.BeginStamping)
}

func (h *Handler) Stamp(c *gin.Context) {
	h.runTransition(c, h.service.Stamp)
}

func (h *Handler) MarkPaid(c *gin.Context) {
	h.runTransition(c, h.service.MarkPaid)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.runTransition(c, h.service.Cancel)
}

func (h *Handler) runTransition(c *gin.Context, op func(ctx context.Context, receiptID string) (VersionResponse, error)) {
	version, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, version, nil)
}
