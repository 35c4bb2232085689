package admin

import (
	"errors"

	"github.com/dispatch-next/internal/http/response"
	"github.com/dispatch-next/internal/service"

	"github.com/gin-gonic/gin"
)

// DispatchRequest 单笔发货请求
type DispatchRequest struct {
	CourierID    uint   `json:"courier_id"` // 0 表示使用租户默认账户
	DispatchNote string `json:"dispatch_note"`
}

// AdminDispatchOrder 单笔发货
func (h *Handler) AdminDispatchOrder(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// 请求体可为空（全部走默认值）
	var req DispatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "invalid request", err)
			return
		}
	}

	result, err := h.DispatchService.DispatchSingle(c.Request.Context(), service.DispatchInput{
		OrderID:      orderID,
		CourierID:    req.CourierID,
		DispatchNote: req.DispatchNote,
		ActingUserID: adminID,
		TenantScope:  adminTenantID,
	})
	if err != nil {
		respondDispatchError(c, err)
		return
	}

	response.Success(c, result)
}

// BulkDispatchRequest 批量发货请求
type BulkDispatchRequest struct {
	OrderIDs     []uint `json:"order_ids" binding:"required"`
	CourierID    uint   `json:"courier_id"`
	DispatchNote string `json:"dispatch_note"`
}

// AdminDispatchOrdersBulk 批量发货
func (h *Handler) AdminDispatchOrdersBulk(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	var req BulkDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	result, err := h.DispatchService.DispatchBulk(c.Request.Context(), service.BulkDispatchInput{
		OrderIDs:     req.OrderIDs,
		CourierID:    req.CourierID,
		DispatchNote: req.DispatchNote,
		ActingUserID: adminID,
		TenantScope:  adminTenantID,
	})
	if err != nil {
		if errors.Is(err, service.ErrDispatchFailed) && result != nil {
			// 零成功批次：整体失败但逐单原因返回给调用方
			response.ErrorWithData(c, response.CodeBadRequest, "no order dispatched", result)
			return
		}
		respondDispatchError(c, err)
		return
	}

	response.Success(c, result)
}

func respondDispatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "order not found", nil)
	case errors.Is(err, service.ErrOrderNotDispatchable):
		respondError(c, response.CodeBadRequest, "order is not dispatchable", nil)
	case errors.Is(err, service.ErrOrderConcurrentlyModified):
		respondError(c, response.CodeBadRequest, "order changed concurrently, retry", nil)
	case errors.Is(err, service.ErrCourierInvalid):
		respondError(c, response.CodeBadRequest, "courier account invalid", nil)
	case errors.Is(err, service.ErrCourierInactive):
		respondError(c, response.CodeBadRequest, "courier account inactive", nil)
	case errors.Is(err, service.ErrCourierTenantMismatch):
		respondError(c, response.CodeForbidden, "courier account belongs to another tenant", nil)
	case errors.Is(err, service.ErrNoTrackingAvailable):
		respondError(c, response.CodeBadRequest, "tracking pool exhausted", nil)
	case errors.Is(err, service.ErrInsufficientTracking):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrTrackingRaceLost):
		respondError(c, response.CodeBadRequest, "tracking number already taken, retry", nil)
	case errors.Is(err, service.ErrCityUnresolved):
		respondError(c, response.CodeBadRequest, "destination city unresolved", nil)
	case errors.Is(err, service.ErrGatewayRejected):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrMixedTenantBatch):
		respondError(c, response.CodeBadRequest, "orders in one batch must belong to the same tenant", nil)
	case errors.Is(err, service.ErrEmptyBatch):
		respondError(c, response.CodeBadRequest, "order_ids is empty", nil)
	case errors.Is(err, service.ErrDispatchInvalid):
		respondError(c, response.CodeBadRequest, "invalid dispatch request", nil)
	default:
		respondError(c, response.CodeInternal, "dispatch failed", err)
	}
}
