package admin

import (
	"strconv"
	"strings"

	"github.com/dispatch-next/internal/http/response"
	"github.com/dispatch-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminListUserLogs 审计日志列表
func (h *Handler) AdminListUserLogs(c *gin.Context) {
	adminTenantID, ok := getAdminTenantID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", err)
		return
	}

	logs, total, err := h.AuditService.List(repository.UserLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		UserID:      parseUintQuery(c, "user_id"),
		TenantID:    resolveScopedTenantID(adminTenantID, parseUintQuery(c, "tenant_id")),
		Action:      strings.TrimSpace(c.Query("action")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		BatchID:     strings.TrimSpace(c.Query("batch_id")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "audit log list failed", err)
		return
	}

	response.SuccessWithPage(c, logs, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
