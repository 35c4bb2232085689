package main

import (
	"fmt"
	"time"

	"github.com/dispatch-next/internal/authz"
	"github.com/dispatch-next/internal/config"
	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加租户
	tenants := []models.Tenant{
		{Name: "colombo-traders", Status: constants.TenantStatusActive, WebhookURL: "https://colombo-traders.example.com/hooks/dispatch"},
		{Name: "kandy-retail", Status: constants.TenantStatusActive},
	}
	tenantIDs := map[string]uint{}
	for _, t := range tenants {
		var existing models.Tenant
		if err := models.DB.Where("name = ?", t.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&t).Error; err != nil {
				stdLog.Fatalf("Failed to create tenant %s: %v", t.Name, err)
			}
			stdLog.Printf("Created tenant: %s", t.Name)
			tenantIDs[t.Name] = t.ID
		} else {
			stdLog.Printf("Tenant already exists: %s", existing.Name)
			tenantIDs[existing.Name] = existing.ID
		}
	}
	colomboID := tenantIDs["colombo-traders"]
	kandyID := tenantIDs["kandy-retail"]

	// 添加后台账号（总管理员 + 各租户操作员）
	mainAdminID := seedAdmin(stdLog, "admin", "admin123", 0, true)
	colomboOpsID := seedAdmin(stdLog, "colombo-ops", "colombo123", colomboID, false)
	kandyOpsID := seedAdmin(stdLog, "kandy-ops", "kandy123", kandyID, false)

	// 角色分配：非超管账号全靠角色放行，漏配会被 RBAC 中间件整体拒绝
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz service: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap builtin roles: %v", err)
	}
	seedAdminRole(stdLog, authzService, mainAdminID, constants.RoleMainAdmin)
	seedAdminRole(stdLog, authzService, colomboOpsID, constants.RoleTenantAdmin)
	seedAdminRole(stdLog, authzService, kandyOpsID, constants.RoleTenantAdmin)

	// 添加城市（部分供应商要求 district 或 state）
	districtColombo := uint(11)
	districtGampaha := uint(12)
	districtKandy := uint(21)
	cities := []models.City{
		{Name: "Colombo", DistrictID: &districtColombo, StateName: "Western"},
		{Name: "Negombo", DistrictID: &districtGampaha, StateName: "Western"},
		{Name: "Kandy", DistrictID: &districtKandy, StateName: "Central"},
		{Name: "Galle", StateName: "Southern"},
	}
	cityIDs := map[string]uint{}
	for _, city := range cities {
		var existing models.City
		if err := models.DB.Where("name = ?", city.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&city).Error; err != nil {
				stdLog.Printf("Failed to create city %s: %v", city.Name, err)
				continue
			}
			stdLog.Printf("Created city: %s", city.Name)
			cityIDs[city.Name] = city.ID
		} else {
			stdLog.Printf("City already exists: %s", existing.Name)
			cityIDs[existing.Name] = existing.ID
		}
	}

	// 添加快递账户：覆盖三种对接方式与全部供应商
	accounts := []models.CourierAccount{
		{
			TenantID:  colomboID,
			CourierID: 1,
			Vendor:    constants.CourierVendorFardar,
			Name:      "Fardar Internal Pool",
			Mode:      models.ModeInternal,
			Status:    constants.CourierAccountStatusActive,
			IsDefault: true,
		},
		{
			TenantID:  colomboID,
			CourierID: 2,
			Vendor:    constants.CourierVendorKoombiyo,
			Name:      "Koombiyo Main",
			Mode:      models.ModeExistingAPI,
			BaseURL:   "https://application.koombiyodelivery.lk/api",
			APIKey:    "koombiyo-demo-key",
			Status:    constants.CourierAccountStatusActive,
		},
		{
			TenantID:    colomboID,
			CourierID:   3,
			Vendor:      constants.CourierVendorTransExpress,
			Name:        "TransExpress Main",
			Mode:        models.ModeExistingAPI,
			BaseURL:     "https://portal.transexpress.lk/api",
			APIKey:      "transexpress-demo-key",
			OriginCity:  "Colombo",
			OriginState: "Western",
			Status:      constants.CourierAccountStatusActive,
		},
		{
			TenantID:    kandyID,
			CourierID:   4,
			Vendor:      constants.CourierVendorRoyalExpress,
			Name:        "RoyalExpress Kandy",
			Mode:        models.ModeNewAPI,
			BaseURL:     "https://merchant.curfox.com/api",
			APIKey:      "royalexpress-demo-key",
			ClientID:    "kandy-retail",
			OriginCity:  "Kandy",
			OriginState: "Central",
			Status:      constants.CourierAccountStatusActive,
			IsDefault:   true,
		},
	}
	accountIDs := map[string]uint{}
	for _, acc := range accounts {
		var existing models.CourierAccount
		if err := models.DB.Where("tenant_id = ? AND name = ?", acc.TenantID, acc.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&acc).Error; err != nil {
				stdLog.Printf("Failed to create courier account %s: %v", acc.Name, err)
				continue
			}
			stdLog.Printf("Created courier account: %s", acc.Name)
			accountIDs[acc.Name] = acc.ID
		} else {
			stdLog.Printf("Courier account already exists: %s", existing.Name)
			accountIDs[existing.Name] = existing.ID
		}
	}

	// 填充运单池（内部分配与既有包裹登记都从池里取号）
	seedTrackingPool(stdLog, colomboID, 1, accountIDs["Fardar Internal Pool"], "CF", 20)
	seedTrackingPool(stdLog, colomboID, 2, accountIDs["Koombiyo Main"], "KB", 10)
	seedTrackingPool(stdLog, colomboID, 3, accountIDs["TransExpress Main"], "TE", 10)

	// 添加待派单订单
	seedOrders(stdLog, colomboID, kandyID, cityIDs)

	stdLog.Printf("Seed completed")
}

func seedAdmin(stdLog interface{ Printf(string, ...interface{}) }, username, password string, tenantID uint, isSuper bool) uint {
	var existing models.Admin
	if err := models.DB.Where("username = ?", username).First(&existing).Error; err == nil {
		stdLog.Printf("Admin already exists: %s", username)
		return existing.ID
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Printf("Failed to hash password for %s: %v", username, err)
		return 0
	}
	admin := models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		TenantID:     tenantID,
		IsSuper:      isSuper,
		Status:       constants.AdminStatusActive,
	}
	if err := models.DB.Create(&admin).Error; err != nil {
		stdLog.Printf("Failed to create admin %s: %v", username, err)
		return 0
	}
	stdLog.Printf("Created admin: %s (tenant_id=%d)", username, tenantID)
	return admin.ID
}

func seedAdminRole(stdLog interface{ Printf(string, ...interface{}) }, authzService *authz.Service, adminID uint, role string) {
	if adminID == 0 {
		return
	}
	if err := authzService.SetAdminRoles(adminID, []string{role}); err != nil {
		stdLog.Printf("Failed to assign role %s to admin %d: %v", role, adminID, err)
		return
	}
	stdLog.Printf("Assigned role %s to admin %d", role, adminID)
}

func seedTrackingPool(stdLog interface{ Printf(string, ...interface{}) }, tenantID, courierID, accountID uint, prefix string, count int) {
	if accountID == 0 {
		return
	}
	created := 0
	for i := 1; i <= count; i++ {
		trackingID := fmt.Sprintf("%s%08d", prefix, i)
		var existing models.TrackingNumber
		if err := models.DB.Where("tracking_id = ?", trackingID).First(&existing).Error; err == nil {
			continue
		}
		row := models.TrackingNumber{
			TrackingID:       trackingID,
			TenantID:         tenantID,
			CourierID:        courierID,
			CourierAccountID: accountID,
			Status:           constants.TrackingStatusUnused,
		}
		if err := models.DB.Create(&row).Error; err != nil {
			stdLog.Printf("Failed to create tracking number %s: %v", trackingID, err)
			continue
		}
		created++
	}
	stdLog.Printf("Seeded tracking pool: prefix=%s created=%d", prefix, created)
}

func seedOrders(stdLog interface{ Printf(string, ...interface{}) }, colomboID, kandyID uint, cityIDs map[string]uint) {
	colomboCity := cityIDs["Colombo"]
	kandyCity := cityIDs["Kandy"]
	issueDate := time.Now().AddDate(0, 0, -1)
	dueDate := time.Now().AddDate(0, 0, 13)

	orders := []models.Order{
		{
			OrderNo:      "ORD-2026-0001",
			TenantID:     colomboID,
			CustomerName: "Nimal Perera",
			Phone1:       "0771234567",
			AddressLine1: "24 Galle Road",
			AddressLine2: "Kollupitiya",
			CityID:       &colomboCity,
			Status:       constants.OrderStatusPending,
			PayStatus:    constants.PayStatusUnpaid,
			TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(4500)),
			Currency:     "LKR",
			Weight:       1.5,
			IssueDate:    &issueDate,
			DueDate:      &dueDate,
			Items: []models.OrderItem{
				{
					ProductID:   101,
					Description: "Ceylon tea gift box",
					Quantity:    2,
					UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(1500)),
					LineTotal:   models.NewMoneyFromDecimal(decimal.NewFromInt(3000)),
					Status:      constants.OrderStatusPending,
				},
				{
					ProductID:   102,
					Description: "Cinnamon sticks 250g",
					Quantity:    1,
					UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(1500)),
					LineTotal:   models.NewMoneyFromDecimal(decimal.NewFromInt(1500)),
					Status:      constants.OrderStatusPending,
				},
			},
		},
		{
			OrderNo:      "ORD-2026-0002",
			TenantID:     colomboID,
			CustomerName: "Sunil Fernando",
			Phone1:       "0719876543",
			Phone2:       "0112345678",
			AddressLine1: "88 Main Street",
			CityID:       &colomboCity,
			Status:       constants.OrderStatusDone,
			PayStatus:    constants.PayStatusPaid,
			TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(12000)),
			Currency:     "LKR",
			Weight:       3,
			IssueDate:    &issueDate,
			Items: []models.OrderItem{
				{
					ProductID:   103,
					Description: "Handloom sarong set",
					Quantity:    4,
					UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(3000)),
					LineTotal:   models.NewMoneyFromDecimal(decimal.NewFromInt(12000)),
					Status:      constants.OrderStatusDone,
				},
			},
		},
		{
			OrderNo:      "ORD-2026-0003",
			TenantID:     kandyID,
			CustomerName: "Kumari Silva",
			Phone1:       "0755544332",
			AddressLine1: "5 Temple Road",
			CityID:       &kandyCity,
			Status:       constants.OrderStatusPending,
			PayStatus:    constants.PayStatusPartial,
			TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(7800)),
			Currency:     "LKR",
			IssueDate:    &issueDate,
			DueDate:      &dueDate,
			Items: []models.OrderItem{
				{
					ProductID:   201,
					Description: "Brass oil lamp",
					Quantity:    1,
					UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(7800)),
					LineTotal:   models.NewMoneyFromDecimal(decimal.NewFromInt(7800)),
					Status:      constants.OrderStatusPending,
				},
			},
		},
	}

	for _, order := range orders {
		var existing models.Order
		if err := models.DB.Where("order_no = ?", order.OrderNo).First(&existing).Error; err == nil {
			stdLog.Printf("Order already exists: %s", order.OrderNo)
			continue
		}
		if err := models.DB.Create(&order).Error; err != nil {
			stdLog.Printf("Failed to create order %s: %v", order.OrderNo, err)
			continue
		}
		stdLog.Printf("Created order: %s", order.OrderNo)
	}
}
