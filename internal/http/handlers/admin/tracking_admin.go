package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dispatch-next/internal/http/response"
	"github.com/dispatch-next/internal/repository"
	"github.com/dispatch-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ProvisionTrackingRequest 批量导入运单号请求
type ProvisionTrackingRequest struct {
	TenantID         uint   `json:"tenant_id"` // 总管理员代操作时指定，租户操作员忽略
	CourierAccountID uint   `json:"courier_account_id" binding:"required"`
	Text             string `json:"text" binding:"required"` // 每行一个运单号
}

// AdminProvisionTracking 批量导入运单号
func (h *Handler) AdminProvisionTracking(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	var req ProvisionTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenantID := resolveScopedTenantID(adminTenantID, req.TenantID)
	if tenantID == 0 {
		respondError(c, response.CodeBadRequest, "tenant_id is required", nil)
		return
	}

	result, err := h.TrackingPoolService.ProvisionBatch(service.ProvisionInput{
		TenantID:         tenantID,
		CourierAccountID: req.CourierAccountID,
		Text:             req.Text,
		ActingUserID:     adminID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTrackingInputInvalid):
			respondError(c, response.CodeBadRequest, "no valid tracking id in input", nil)
		case errors.Is(err, service.ErrCourierInvalid):
			respondError(c, response.CodeBadRequest, "courier account invalid", nil)
		default:
			respondError(c, response.CodeInternal, "tracking import failed", err)
		}
		return
	}

	response.Success(c, result)
}

// AdminListTracking 运单池列表
func (h *Handler) AdminListTracking(c *gin.Context) {
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.TrackingPoolService.List(repository.TrackingListFilter{
		Page:             page,
		PageSize:         pageSize,
		TenantID:         resolveScopedTenantID(adminTenantID, parseUintQuery(c, "tenant_id")),
		CourierID:        parseUintQuery(c, "courier_id"),
		CourierAccountID: parseUintQuery(c, "courier_account_id"),
		Status:           strings.TrimSpace(c.Query("status")),
		TrackingID:       strings.TrimSpace(c.Query("tracking_id")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "tracking list failed", err)
		return
	}

	response.SuccessWithPage(c, rows, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// AdminTrackingStats 运单池余量统计
func (h *Handler) AdminTrackingStats(c *gin.Context) {
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	tenantID := resolveScopedTenantID(adminTenantID, parseUintQuery(c, "tenant_id"))
	stats, err := h.TrackingPoolService.Stats(tenantID)
	if err != nil {
		respondError(c, response.CodeInternal, "tracking stats failed", err)
		return
	}

	response.Success(c, stats)
}
