package provider

import (
	"time"

	"github.com/dispatch-next/internal/authz"
	"github.com/dispatch-next/internal/cache"
	"github.com/dispatch-next/internal/config"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/queue"
	"github.com/dispatch-next/internal/repository"
	"github.com/dispatch-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo          repository.AdminRepository
	TenantRepo         repository.TenantRepository
	OrderRepo          repository.OrderRepository
	TrackingRepo       repository.TrackingRepository
	CourierAccountRepo repository.CourierAccountRepository
	CityRepo           repository.CityRepository
	UserLogRepo        repository.UserLogRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	OrderService          *service.OrderService
	DispatchService       *service.DispatchService
	TrackingPoolService   *service.TrackingPoolService
	CourierAccountService *service.CourierAccountService
	TenantService         *service.TenantService
	AuditService          *service.AuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.TenantRepo = repository.NewTenantRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.TrackingRepo = repository.NewTrackingRepository(db)
	c.CourierAccountRepo = repository.NewCourierAccountRepository(db)
	c.CityRepo = repository.NewCityRepository(db)
	c.UserLogRepo = repository.NewUserLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.UserLogRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo)
	c.AuditService = service.NewAuditService(c.UserLogRepo)
	c.TenantService = service.NewTenantService(c.TenantRepo, c.UserLogRepo)
	c.CourierAccountService = service.NewCourierAccountService(c.CourierAccountRepo, c.UserLogRepo)
	c.TrackingPoolService = service.NewTrackingPoolService(c.TrackingRepo, c.CourierAccountRepo, c.UserLogRepo)
	c.DispatchService = service.NewDispatchService(
		c.OrderRepo,
		c.TrackingRepo,
		c.CourierAccountRepo,
		c.CityRepo,
		c.UserLogRepo,
		c.QueueClient,
		service.DispatchOptions{
			RequestTimeout:    time.Duration(c.Config.Courier.RequestTimeoutSeconds) * time.Second,
			DefaultWeight:     c.Config.Courier.DefaultWeight,
			DescriptionMaxLen: c.Config.Courier.DescriptionMaxLen,
		},
	)
}
