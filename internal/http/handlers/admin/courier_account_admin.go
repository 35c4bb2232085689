package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dispatch-next/internal/http/response"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"
	"github.com/dispatch-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CourierAccountRequest 快递账户写入请求
type CourierAccountRequest struct {
	TenantID    uint   `json:"tenant_id"` // 总管理员代操作时指定，租户操作员忽略
	CourierID   uint   `json:"courier_id" binding:"required"`
	Vendor      string `json:"vendor" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Mode        int    `json:"mode" binding:"required"`
	BaseURL     string `json:"base_url"`
	APIKey      string `json:"api_key"`
	ClientID    string `json:"client_id"`
	OriginCity  string `json:"origin_city"`
	OriginState string `json:"origin_state"`
	IsDefault   bool   `json:"is_default"`
}

func (req *CourierAccountRequest) toServiceInput(tenantID, adminID uint) service.CourierAccountInput {
	return service.CourierAccountInput{
		TenantID:     tenantID,
		CourierID:    req.CourierID,
		Vendor:       req.Vendor,
		Name:         req.Name,
		Mode:         models.IntegrationMode(req.Mode),
		BaseURL:      req.BaseURL,
		APIKey:       req.APIKey,
		ClientID:     req.ClientID,
		OriginCity:   req.OriginCity,
		OriginState:  req.OriginState,
		IsDefault:    req.IsDefault,
		ActingUserID: adminID,
	}
}

// AdminCreateCourierAccount 创建快递账户
func (h *Handler) AdminCreateCourierAccount(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	var req CourierAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenantID := resolveScopedTenantID(adminTenantID, req.TenantID)
	if tenantID == 0 {
		respondError(c, response.CodeBadRequest, "tenant_id is required", nil)
		return
	}

	account, err := h.CourierAccountService.Create(req.toServiceInput(tenantID, adminID))
	if err != nil {
		respondCourierAccountError(c, err)
		return
	}

	response.Success(c, account)
}

// AdminUpdateCourierAccount 更新快递账户
func (h *Handler) AdminUpdateCourierAccount(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CourierAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenantID, ok := h.resolveAccountTenant(c, accountID, adminTenantID)
	if !ok {
		return
	}

	account, err := h.CourierAccountService.Update(accountID, req.toServiceInput(tenantID, adminID))
	if err != nil {
		respondCourierAccountError(c, err)
		return
	}

	response.Success(c, account)
}

// CourierAccountStatusRequest 启停请求
type CourierAccountStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminSetCourierAccountStatus 启用/停用快递账户
func (h *Handler) AdminSetCourierAccountStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CourierAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	tenantID, ok := h.resolveAccountTenant(c, accountID, adminTenantID)
	if !ok {
		return
	}

	account, err := h.CourierAccountService.SetStatus(accountID, tenantID, strings.TrimSpace(req.Status), adminID)
	if err != nil {
		respondCourierAccountError(c, err)
		return
	}

	response.Success(c, account)
}

// AdminGetCourierAccount 快递账户详情
func (h *Handler) AdminGetCourierAccount(c *gin.Context) {
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tenantID, ok := h.resolveAccountTenant(c, accountID, adminTenantID)
	if !ok {
		return
	}

	account, err := h.CourierAccountService.GetByID(accountID, tenantID)
	if err != nil {
		respondCourierAccountError(c, err)
		return
	}

	response.Success(c, account)
}

// AdminListCourierAccounts 快递账户列表
func (h *Handler) AdminListCourierAccounts(c *gin.Context) {
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	accounts, total, err := h.CourierAccountService.List(repository.CourierAccountListFilter{
		Page:       page,
		PageSize:   pageSize,
		TenantID:   resolveScopedTenantID(adminTenantID, parseUintQuery(c, "tenant_id")),
		Vendor:     strings.TrimSpace(c.Query("vendor")),
		ActiveOnly: c.Query("active_only") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "courier account list failed", err)
		return
	}

	response.SuccessWithPage(c, accounts, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// resolveAccountTenant 确定目标账户的租户：租户操作员固定为自身租户，
// 总管理员按账户归属解析。越权访问按未找到处理。
func (h *Handler) resolveAccountTenant(c *gin.Context, accountID, adminTenantID uint) (uint, bool) {
	if adminTenantID != 0 {
		return adminTenantID, true
	}
	account, err := h.CourierAccountRepo.GetByID(accountID)
	if err != nil {
		respondError(c, response.CodeInternal, "courier account fetch failed", err)
		return 0, false
	}
	if account == nil {
		respondError(c, response.CodeNotFound, "courier account not found", nil)
		return 0, false
	}
	return account.TenantID, true
}

func respondCourierAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourierInvalid):
		respondError(c, response.CodeBadRequest, "courier account invalid", nil)
	case errors.Is(err, service.ErrCourierAccountExists):
		respondError(c, response.CodeBadRequest, "courier account already exists", nil)
	default:
		respondError(c, response.CodeInternal, "courier account operation failed", err)
	}
}
