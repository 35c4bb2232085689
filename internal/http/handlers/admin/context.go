package admin

import (
	handlershared "github.com/dispatch-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

// getAdminTenantID 返回当前管理员的租户范围，0 表示总管理员（不限租户）。
func getAdminTenantID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_tenant_id")
}

func isSuperAdmin(c *gin.Context) bool {
	value, ok := c.Get("admin_is_super")
	if !ok {
		return false
	}
	isSuper, ok := value.(bool)
	return ok && isSuper
}

// resolveScopedTenantID 解析列表查询的租户过滤：租户操作员固定为自身租户，
// 总管理员可通过 requested 指定任意租户（0 表示全部）。
func resolveScopedTenantID(adminTenantID, requested uint) uint {
	if adminTenantID != 0 {
		return adminTenantID
	}
	return requested
}
