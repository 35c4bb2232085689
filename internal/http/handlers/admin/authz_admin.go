package admin

import (
	"strings"

	"github.com/dispatch-next/internal/authz"
	"github.com/dispatch-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RoleRequest 创建角色请求
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// RolePolicyRequest 角色策略授予请求
type RolePolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// AdminRolesRequest 管理员角色覆盖设置请求
type AdminRolesRequest struct {
	Roles []string `json:"roles"`
}

// RoleDetail 角色及其策略
type RoleDetail struct {
	Role     string         `json:"role"`
	Builtin  bool           `json:"builtin"`
	Policies []authz.Policy `json:"policies"`
}

// AdminListRoles 列出全部角色及策略
func (h *Handler) AdminListRoles(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "role list failed", err)
		return
	}
	details := make([]RoleDetail, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			respondError(c, response.CodeInternal, "role policy list failed", err)
			return
		}
		details = append(details, RoleDetail{
			Role:     role,
			Builtin:  authz.IsBuiltinRole(role),
			Policies: policies,
		})
	}
	response.Success(c, details)
}

// AdminCreateRole 创建空角色
func (h *Handler) AdminCreateRole(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "role is required", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "role create failed", err)
		return
	}
	response.Success(c, gin.H{"role": role})
}

// AdminDeleteRole 删除角色及其策略，预置角色不可删除
func (h *Handler) AdminDeleteRole(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	role := strings.TrimSpace(c.Param("role"))
	if authz.IsBuiltinRole(role) {
		respondError(c, response.CodeBadRequest, "builtin role cannot be deleted", nil)
		return
	}
	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, "role delete failed", err)
		return
	}
	response.Success(c, nil)
}

// AdminGrantRolePolicy 给角色授予路由策略
func (h *Handler) AdminGrantRolePolicy(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	role := strings.TrimSpace(c.Param("role"))
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "object and action are required", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "policy grant failed", err)
		return
	}
	response.Success(c, nil)
}

// AdminRevokeRolePolicy 撤销角色的路由策略，object/action 走查询参数
func (h *Handler) AdminRevokeRolePolicy(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	role := strings.TrimSpace(c.Param("role"))
	object := strings.TrimSpace(c.Query("object"))
	action := strings.TrimSpace(c.Query("action"))
	if object == "" || action == "" {
		respondError(c, response.CodeBadRequest, "object and action are required", nil)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(role, object, action); err != nil {
		respondError(c, response.CodeBadRequest, "policy revoke failed", err)
		return
	}
	response.Success(c, nil)
}

// AdminGetAdminRoles 查询管理员角色与生效策略
func (h *Handler) AdminGetAdminRoles(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	adminID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin role list failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin policy list failed", err)
		return
	}
	response.Success(c, gin.H{"roles": roles, "policies": policies})
}

// AdminSetAdminRoles 覆盖设置管理员角色
func (h *Handler) AdminSetAdminRoles(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	adminID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	target, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin lookup failed", err)
		return
	}
	if target == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}

	var req AdminRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "roles are required", err)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "role assignment failed", err)
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin role list failed", err)
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// AdminReloadAuthz 从存储重载授权策略
func (h *Handler) AdminReloadAuthz(c *gin.Context) {
	if _, ok := h.requireMainAdmin(c); !ok {
		return
	}

	if err := h.AuthzService.ReloadPolicy(); err != nil {
		respondError(c, response.CodeInternal, "policy reload failed", err)
		return
	}
	response.Success(c, nil)
}
