package authorization

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"nomina-core/internal/shared/apperror"
	"nomina-core/internal/shared/response"
)

type Handler struct {
	gate Gate
	rdb  *redis.Client
}

func NewHandler(gate Gate) *Handler {
	return &Handler{gate: gate}
}

func NewHandlerWithRedis(gate Gate, rdb *redis.Client) *Handler {
	return &Handler{gate: gate, rdb: rdb}
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

func (h *Handler) RequestAction(c *gin.Context) {
	defer h.releaseIdempotencyLock(c)

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, err.Error())
		return
	}

	record, err := h.gate.RequestAction(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResponse(c, record)
	response.Success(c, http.StatusCreated, record, nil)
}

func (h *Handler) GetActionLog(c *gin.Context) {
	records, err := h.gate.GetActionLog(c.Request.Context(), c.Query("target_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, records, nil)
}

func (h *Handler) GetStampingEligibility(c *gin.Context) {
	eligibility, err := h.gate.GetStampingEligibility(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, eligibility, nil)
}
