package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/courier"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDispatchServiceTest(t *testing.T) (*DispatchService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:dispatch_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.Admin{},
		&models.City{},
		&models.CourierAccount{},
		&models.TrackingNumber{},
		&models.Order{},
		&models.OrderItem{},
		&models.UserLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewDispatchService(
		repository.NewOrderRepository(db),
		repository.NewTrackingRepository(db),
		repository.NewCourierAccountRepository(db),
		repository.NewCityRepository(db),
		repository.NewUserLogRepository(db),
		nil,
		DispatchOptions{},
	)
	return svc, db
}

// fakeAdapter 可编程网关替身，记录收到的请求
type fakeAdapter struct {
	vendor  string
	result  courier.Result
	lastReq *courier.Request
	calls   int
}

func (a *fakeAdapter) Vendor() string { return a.vendor }

func (a *fakeAdapter) Dispatch(_ context.Context, req courier.Request) courier.Result {
	a.calls++
	reqCopy := req
	a.lastReq = &reqCopy
	return a.result
}

func installFakeAdapter(svc *DispatchService, adapter *fakeAdapter) {
	svc.SetAdapterFactory(func(account *models.CourierAccount, _ time.Duration) (courier.Adapter, error) {
		return adapter, nil
	})
}

func createTestTenant(t *testing.T, db *gorm.DB, name string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Name: name, Status: constants.TenantStatusActive}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	return tenant
}

func createTestCity(t *testing.T, db *gorm.DB, name string, districtID *uint, stateName string) *models.City {
	t.Helper()
	city := &models.City{Name: name, DistrictID: districtID, StateName: stateName}
	if err := db.Create(city).Error; err != nil {
		t.Fatalf("create city failed: %v", err)
	}
	return city
}

func createTestAccount(t *testing.T, db *gorm.DB, tenantID, courierID uint, vendor string, mode models.IntegrationMode) *models.CourierAccount {
	t.Helper()
	account := &models.CourierAccount{
		TenantID:  tenantID,
		CourierID: courierID,
		Vendor:    vendor,
		Name:      fmt.Sprintf("%s account", vendor),
		Mode:      mode,
		BaseURL:   "https://gateway.example",
		APIKey:    "key",
		ClientID:  "client",
		Status:    constants.CourierAccountStatusActive,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("create courier account failed: %v", err)
	}
	return account
}

func createDispatchableOrder(t *testing.T, db *gorm.DB, tenantID uint, orderNo string, cityID *uint) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:      orderNo,
		TenantID:     tenantID,
		CustomerName: "Test Customer",
		Phone1:       "0770000000",
		AddressLine1: "10 Test Lane",
		CityID:       cityID,
		Status:       constants.OrderStatusPending,
		PayStatus:    constants.PayStatusUnpaid,
		TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(3000)),
		Currency:     "LKR",
		Items: []models.OrderItem{
			{ProductID: 1, Description: "widget", Quantity: 2, Status: constants.OrderStatusPending},
		},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func seedTrackingPool(t *testing.T, db *gorm.DB, tenantID, courierID, accountID uint, ids ...string) {
	t.Helper()
	for i, id := range ids {
		row := models.TrackingNumber{
			TrackingID:       id,
			TenantID:         tenantID,
			CourierID:        courierID,
			CourierAccountID: accountID,
			Status:           constants.TrackingStatusUnused,
			CreatedAt:        time.Now().Add(time.Duration(i) * time.Millisecond),
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed tracking number failed: %v", err)
		}
	}
}

func reloadOrder(t *testing.T, db *gorm.DB, id uint) *models.Order {
	t.Helper()
	var order models.Order
	if err := db.Preload("Items").First(&order, id).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return &order
}

func TestDispatchSingleInternalModeUsesPool(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1001", nil)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001")

	result, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		CourierID:    account.CourierID,
		DispatchNote: "leave at door",
		ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.TrackingNumber != "TRK00000001" {
		t.Fatalf("unexpected tracking number %q", result.TrackingNumber)
	}
	if result.TenantID != tenant.ID || result.CourierAccountID != account.ID {
		t.Fatalf("unexpected result %+v", result)
	}

	reloaded := reloadOrder(t, db, order.ID)
	if reloaded.Status != constants.OrderStatusDispatch {
		t.Fatalf("expected order status dispatch, got %q", reloaded.Status)
	}
	if reloaded.TrackingNumber == nil || *reloaded.TrackingNumber != "TRK00000001" {
		t.Fatalf("tracking number not persisted on order")
	}
	if reloaded.CourierID == nil || *reloaded.CourierID != account.CourierID {
		t.Fatalf("courier id not persisted on order")
	}
	for _, item := range reloaded.Items {
		if item.Status != constants.OrderStatusDispatch {
			t.Fatalf("item status not updated in lockstep, got %q", item.Status)
		}
	}

	var row models.TrackingNumber
	if err := db.Where("tracking_id = ?", "TRK00000001").First(&row).Error; err != nil {
		t.Fatalf("load tracking row failed: %v", err)
	}
	if row.Status != constants.TrackingStatusUsed || row.OrderID == nil || *row.OrderID != order.ID {
		t.Fatalf("tracking row not claimed: %+v", row)
	}

	var auditCount int64
	db.Model(&models.UserLog{}).Where("action = ? AND order_no = ?", constants.AuditActionOrderDispatch, order.OrderNo).Count(&auditCount)
	if auditCount != 1 {
		t.Fatalf("expected one dispatch audit entry, got %d", auditCount)
	}
}

func TestDispatchSingleFailsWhenPoolEmpty(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1002", nil)

	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrNoTrackingAvailable) {
		t.Fatalf("expected ErrNoTrackingAvailable, got %v", err)
	}

	reloaded := reloadOrder(t, db, order.ID)
	if reloaded.Status != constants.OrderStatusPending || reloaded.TrackingNumber != nil {
		t.Fatalf("failed dispatch must leave order unchanged: %+v", reloaded)
	}
}

func TestDispatchSingleRejectsDispatchedOrder(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1003", nil)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	input := DispatchInput{OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9}
	if _, err := svc.DispatchSingle(context.Background(), input); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}

	// 已发货订单重复派单是硬拒绝，不产生任何变更
	_, err := svc.DispatchSingle(context.Background(), input)
	if !errors.Is(err, ErrOrderNotDispatchable) {
		t.Fatalf("expected ErrOrderNotDispatchable, got %v", err)
	}

	var usedCount int64
	db.Model(&models.TrackingNumber{}).Where("status = ?", constants.TrackingStatusUsed).Count(&usedCount)
	if usedCount != 1 {
		t.Fatalf("retry must not consume another tracking number, used=%d", usedCount)
	}
}

func TestDispatchSingleRejectsForeignCourierAccount(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenantA := createTestTenant(t, db, "tenant-a")
	tenantB := createTestTenant(t, db, "tenant-b")
	foreign := createTestAccount(t, db, tenantB.ID, 2, constants.CourierVendorKoombiyo, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenantA.ID, "ORD-1004", nil)

	// 账户按订单租户解析，归属其他租户的供应商是独立的拒绝原因
	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		CourierID:    foreign.CourierID,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrCourierTenantMismatch) {
		t.Fatalf("expected ErrCourierTenantMismatch, got %v", err)
	}

	// 完全不存在的供应商才是无效
	_, err = svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		CourierID:    999,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrCourierInvalid) {
		t.Fatalf("expected ErrCourierInvalid for unknown courier, got %v", err)
	}

	reloaded := reloadOrder(t, db, order.ID)
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("order must be unchanged, got status %q", reloaded.Status)
	}
}

func TestDispatchSingleRejectsInactiveAccount(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	db.Model(account).Update("status", constants.CourierAccountStatusInactive)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1005", nil)

	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrCourierInactive) {
		t.Fatalf("expected ErrCourierInactive, got %v", err)
	}
}

func TestDispatchSingleNewAPIMode(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 3, constants.CourierVendorTransExpress, models.ModeNewAPI)
	city := createTestCity(t, db, "Negombo", nil, "")
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1006", &city.ID)

	adapter := &fakeAdapter{
		vendor: constants.CourierVendorTransExpress,
		result: courier.Accepted("CX777888", "100"),
	}
	installFakeAdapter(svc, adapter)

	result, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.TrackingNumber != "CX777888" {
		t.Fatalf("unexpected tracking number %q", result.TrackingNumber)
	}
	if adapter.lastReq == nil || adapter.lastReq.Existing {
		t.Fatalf("new-api mode must not send a pre-allocated waybill")
	}
	if adapter.lastReq.CityName != "Negombo" {
		t.Fatalf("city not resolved into request: %+v", adapter.lastReq)
	}
	// 未付订单 COD 为订单总额
	if !adapter.lastReq.CODAmount.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected cod amount %s", adapter.lastReq.CODAmount)
	}
	if adapter.lastReq.Weight != 1.0 {
		t.Fatalf("expected default weight 1.0, got %v", adapter.lastReq.Weight)
	}
}

func TestDispatchSingleNewAPIPaidOrderHasZeroCOD(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 3, constants.CourierVendorTransExpress, models.ModeNewAPI)
	city := createTestCity(t, db, "Negombo", nil, "")
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1007", &city.ID)
	db.Model(order).Update("pay_status", constants.PayStatusPaid)

	adapter := &fakeAdapter{vendor: constants.CourierVendorTransExpress, result: courier.Accepted("CX1", "100")}
	installFakeAdapter(svc, adapter)

	if _, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9,
	}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !adapter.lastReq.CODAmount.IsZero() {
		t.Fatalf("paid order must have zero cod, got %s", adapter.lastReq.CODAmount)
	}
}

func TestDispatchSingleGatewayRejectionRollsBack(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 2, constants.CourierVendorKoombiyo, models.ModeExistingAPI)
	district := uint(5)
	city := createTestCity(t, db, "Kadawatha", &district, "")
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1008", &city.ID)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001")

	adapter := &fakeAdapter{
		vendor: constants.CourierVendorKoombiyo,
		result: courier.VendorRejection("error", "invalid address"),
	}
	installFakeAdapter(svc, adapter)

	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9,
	})
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected, got %v", err)
	}

	// 网关拒绝后整体回滚：订单未变，池内运单号仍可用
	reloaded := reloadOrder(t, db, order.ID)
	if reloaded.Status != constants.OrderStatusPending || reloaded.TrackingNumber != nil {
		t.Fatalf("order must be unchanged after rollback: %+v", reloaded)
	}
	var row models.TrackingNumber
	db.Where("tracking_id = ?", "TRK00000001").First(&row)
	if row.Status != constants.TrackingStatusUnused {
		t.Fatalf("pool row must stay unused after rollback, got %q", row.Status)
	}
}

func TestDispatchSingleExistingAPISendsPooledWaybill(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 2, constants.CourierVendorKoombiyo, models.ModeExistingAPI)
	district := uint(5)
	city := createTestCity(t, db, "Kadawatha", &district, "")
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1009", &city.ID)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00012345")

	adapter := &fakeAdapter{
		vendor: constants.CourierVendorKoombiyo,
		result: courier.Accepted("TRK00012345", "success"),
	}
	installFakeAdapter(svc, adapter)

	result, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if adapter.lastReq == nil || !adapter.lastReq.Existing || adapter.lastReq.WaybillID != "TRK00012345" {
		t.Fatalf("existing-api mode must send the pooled waybill: %+v", adapter.lastReq)
	}
	if adapter.lastReq.DistrictID != district {
		t.Fatalf("district not resolved into request")
	}
	if result.TrackingNumber != "TRK00012345" {
		t.Fatalf("unexpected tracking number %q", result.TrackingNumber)
	}

	var row models.TrackingNumber
	db.Where("tracking_id = ?", "TRK00012345").First(&row)
	if row.Status != constants.TrackingStatusUsed {
		t.Fatalf("pool row must be used after commit")
	}
}

func TestDispatchSingleSkipsGatewayWhenCityUnresolved(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 3, constants.CourierVendorTransExpress, models.ModeNewAPI)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1010", nil)

	adapter := &fakeAdapter{vendor: constants.CourierVendorTransExpress, result: courier.Accepted("CX1", "100")}
	installFakeAdapter(svc, adapter)

	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9,
	})
	if !errors.Is(err, ErrCityUnresolved) {
		t.Fatalf("expected ErrCityUnresolved, got %v", err)
	}
	if adapter.calls != 0 {
		t.Fatalf("gateway must not be called when city is unresolved")
	}
}

func TestDispatchSingleUsesDefaultAccountWhenCourierOmitted(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	// 内部池账户对接方式数值最小，应优先于外部接口账户
	internal := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	createTestAccount(t, db, tenant.ID, 3, constants.CourierVendorTransExpress, models.ModeNewAPI)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1011", nil)
	seedTrackingPool(t, db, tenant.ID, internal.CourierID, internal.ID, "TRK00000001")

	result, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID:      order.ID,
		ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.CourierAccountID != internal.ID {
		t.Fatalf("expected default internal account %d, got %d", internal.ID, result.CourierAccountID)
	}
}

func TestDispatchSinglePoolExclusivity(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	// 池容量 2、订单 3：恰好 2 笔成功，无重复分配
	succeeded := 0
	assigned := make(map[string]bool)
	for i := 0; i < 3; i++ {
		order := createDispatchableOrder(t, db, tenant.ID, fmt.Sprintf("ORD-20%02d", i), nil)
		result, err := svc.DispatchSingle(context.Background(), DispatchInput{
			OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9,
		})
		if err != nil {
			if !errors.Is(err, ErrNoTrackingAvailable) {
				t.Fatalf("unexpected failure: %v", err)
			}
			continue
		}
		if assigned[result.TrackingNumber] {
			t.Fatalf("tracking number %q assigned twice", result.TrackingNumber)
		}
		assigned[result.TrackingNumber] = true
		succeeded++
	}
	if succeeded != 2 {
		t.Fatalf("expected exactly 2 successes, got %d", succeeded)
	}
}

func TestDispatchSingleWritesFailureAudit(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1012", nil)

	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 9,
	})
	if !errors.Is(err, ErrNoTrackingAvailable) {
		t.Fatalf("expected ErrNoTrackingAvailable, got %v", err)
	}

	var entry models.UserLog
	if err := db.Where("action = ? AND order_no = ?", constants.AuditActionOrderDispatchFailed, order.OrderNo).First(&entry).Error; err != nil {
		t.Fatalf("failure audit entry missing: %v", err)
	}
}

func TestDispatchSingleTenantScopeHidesForeignOrder(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenantA := createTestTenant(t, db, "tenant-a")
	tenantB := createTestTenant(t, db, "tenant-b")
	account := createTestAccount(t, db, tenantA.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	seedTrackingPool(t, db, tenantA.ID, account.CourierID, account.ID, "TRK00012345")
	order := createDispatchableOrder(t, db, tenantA.ID, "ORD-1020", nil)

	_, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 7, TenantScope: tenantB.ID,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign scope, got %v", err)
	}
	if got := reloadOrder(t, db, order.ID); got.Status != constants.OrderStatusPending {
		t.Fatalf("order must stay pending, got %s", got.Status)
	}
}

func TestDispatchSingleTenantScopeAllowsOwnOrder(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00012345")
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-1021", nil)

	result, err := svc.DispatchSingle(context.Background(), DispatchInput{
		OrderID: order.ID, CourierID: account.CourierID, ActingUserID: 7, TenantScope: tenant.ID,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.TrackingNumber != "TRK00012345" {
		t.Fatalf("unexpected tracking number: %s", result.TrackingNumber)
	}
}
