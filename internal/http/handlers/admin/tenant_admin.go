package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dispatch-next/internal/http/response"
	"github.com/dispatch-next/internal/service"

	"github.com/gin-gonic/gin"
)

// TenantRequest 租户写入请求
type TenantRequest struct {
	Name       string `json:"name" binding:"required"`
	WebhookURL string `json:"webhook_url"`
}

// AdminCreateTenant 创建租户（仅总管理员）
func (h *Handler) AdminCreateTenant(c *gin.Context) {
	adminID, ok := h.requireMainAdmin(c)
	if !ok {
		return
	}

	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenant, err := h.TenantService.Create(service.TenantInput{
		Name:         req.Name,
		WebhookURL:   req.WebhookURL,
		ActingUserID: adminID,
	})
	if err != nil {
		respondTenantError(c, err)
		return
	}

	response.Success(c, tenant)
}

// AdminUpdateTenant 更新租户（仅总管理员）
func (h *Handler) AdminUpdateTenant(c *gin.Context) {
	adminID, ok := h.requireMainAdmin(c)
	if !ok {
		return
	}
	tenantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenant, err := h.TenantService.Update(tenantID, service.TenantInput{
		Name:         req.Name,
		WebhookURL:   req.WebhookURL,
		ActingUserID: adminID,
	})
	if err != nil {
		respondTenantError(c, err)
		return
	}

	response.Success(c, tenant)
}

// TenantStatusRequest 租户启停请求
type TenantStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminSetTenantStatus 启用/停用租户（仅总管理员）
func (h *Handler) AdminSetTenantStatus(c *gin.Context) {
	adminID, ok := h.requireMainAdmin(c)
	if !ok {
		return
	}
	tenantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TenantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenant, err := h.TenantService.SetStatus(tenantID, strings.TrimSpace(req.Status), adminID)
	if err != nil {
		respondTenantError(c, err)
		return
	}

	response.Success(c, tenant)
}

// AdminGetTenant 租户详情（仅总管理员）
func (h *Handler) AdminGetTenant(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}
	tenantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tenant, err := h.TenantService.GetByID(tenantID)
	if err != nil {
		respondTenantError(c, err)
		return
	}

	response.Success(c, tenant)
}

// AdminListTenants 租户列表（仅总管理员）
func (h *Handler) AdminListTenants(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	tenants, total, err := h.TenantService.List(page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "tenant list failed", err)
		return
	}

	response.SuccessWithPage(c, tenants, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// requireMainAdmin 校验当前操作者是总管理员
func (h *Handler) requireMainAdmin(c *gin.Context) (uint, bool) {
	adminID, ok := getAdminID(c)
	if !ok {
		return 0, false
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return 0, false
	}
	if adminTenantID != 0 {
		respondError(c, response.CodeForbidden, "main admin only", nil)
		return 0, false
	}
	return adminID, true
}

func respondTenantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTenantNotFound):
		respondError(c, response.CodeNotFound, "tenant not found", nil)
	case errors.Is(err, service.ErrTenantExists):
		respondError(c, response.CodeBadRequest, "tenant name already exists", nil)
	case errors.Is(err, service.ErrTenantInvalid):
		respondError(c, response.CodeBadRequest, "tenant input invalid", nil)
	default:
		respondError(c, response.CodeInternal, "tenant operation failed", err)
	}
}
