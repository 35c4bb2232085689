package router

import (
	"fmt"
	"strings"

	"github.com/dispatch-next/internal/cache"
	"github.com/dispatch-next/internal/config"
	adminhandlers "github.com/dispatch-next/internal/http/handlers/admin"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "dn"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	dispatchRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:dispatch", redisPrefix),
		WindowSeconds: cfg.Security.DispatchRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.DispatchRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 订单与发货
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.POST("/orders/:id/dispatch",
					RateLimitMiddleware(redisClient, dispatchRule, KeyByIP), adminHandler.AdminDispatchOrder)
				authorized.POST("/orders/bulk-dispatch",
					RateLimitMiddleware(redisClient, dispatchRule, KeyByIP), adminHandler.AdminDispatchOrdersBulk)

				// 运单池
				authorized.POST("/tracking-numbers/provision", adminHandler.AdminProvisionTracking)
				authorized.GET("/tracking-numbers", adminHandler.AdminListTracking)
				authorized.GET("/tracking-numbers/stats", adminHandler.AdminTrackingStats)

				// 快递账户
				authorized.POST("/courier-accounts", adminHandler.AdminCreateCourierAccount)
				authorized.GET("/courier-accounts", adminHandler.AdminListCourierAccounts)
				authorized.GET("/courier-accounts/:id", adminHandler.AdminGetCourierAccount)
				authorized.PUT("/courier-accounts/:id", adminHandler.AdminUpdateCourierAccount)
				authorized.PATCH("/courier-accounts/:id/status", adminHandler.AdminSetCourierAccountStatus)

				// 租户管理（仅总管理员）
				authorized.POST("/tenants", adminHandler.AdminCreateTenant)
				authorized.GET("/tenants", adminHandler.AdminListTenants)
				authorized.GET("/tenants/:id", adminHandler.AdminGetTenant)
				authorized.PUT("/tenants/:id", adminHandler.AdminUpdateTenant)
				authorized.PATCH("/tenants/:id/status", adminHandler.AdminSetTenantStatus)

				// 角色与授权管理（仅总管理员）
				authorized.GET("/roles", adminHandler.AdminListRoles)
				authorized.POST("/roles", adminHandler.AdminCreateRole)
				authorized.DELETE("/roles/:role", adminHandler.AdminDeleteRole)
				authorized.POST("/roles/:role/policies", adminHandler.AdminGrantRolePolicy)
				authorized.DELETE("/roles/:role/policies", adminHandler.AdminRevokeRolePolicy)
				authorized.GET("/admins/:id/roles", adminHandler.AdminGetAdminRoles)
				authorized.PUT("/admins/:id/roles", adminHandler.AdminSetAdminRoles)
				authorized.POST("/authz/reload", adminHandler.AdminReloadAuthz)

				// 城市与审计
				authorized.GET("/cities", adminHandler.AdminListCities)
				authorized.GET("/user-logs", adminHandler.AdminListUserLogs)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
