package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTrackingPoolTest(t *testing.T) (*TrackingPoolService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:tracking_pool_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.CourierAccount{},
		&models.TrackingNumber{},
		&models.UserLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewTrackingPoolService(
		repository.NewTrackingRepository(db),
		repository.NewCourierAccountRepository(db),
		repository.NewUserLogRepository(db),
	)
	return svc, db
}

func TestProvisionBatchImportsAndDeduplicates(t *testing.T) {
	svc, db := setupTrackingPoolTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001")

	// 输入含空行、重复行与库内已有编号
	result, err := svc.ProvisionBatch(ProvisionInput{
		TenantID:         tenant.ID,
		CourierAccountID: account.ID,
		Text:             "TRK00000001\nTRK00000002\n\n  TRK00000003  \nTRK00000002\n",
		ActingUserID:     9,
	})
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if result.Provisioned != 2 || result.Skipped != 1 {
		t.Fatalf("expected 2 provisioned / 1 skipped, got %d / %d", result.Provisioned, result.Skipped)
	}
	if len(result.SkippedIDs) != 1 || result.SkippedIDs[0] != "TRK00000001" {
		t.Fatalf("unexpected skipped ids: %v", result.SkippedIDs)
	}

	var total int64
	db.Model(&models.TrackingNumber{}).Where("tenant_id = ?", tenant.ID).Count(&total)
	if total != 3 {
		t.Fatalf("expected 3 pool rows, got %d", total)
	}

	var auditCount int64
	db.Model(&models.UserLog{}).Where("action = ?", constants.AuditActionTrackingProvision).Count(&auditCount)
	if auditCount != 1 {
		t.Fatalf("expected one provision audit entry, got %d", auditCount)
	}
}

func TestProvisionBatchRejectsForeignAccount(t *testing.T) {
	svc, db := setupTrackingPoolTest(t)
	tenantA := createTestTenant(t, db, "tenant-a")
	tenantB := createTestTenant(t, db, "tenant-b")
	foreign := createTestAccount(t, db, tenantB.ID, 1, constants.CourierVendorFardar, models.ModeInternal)

	_, err := svc.ProvisionBatch(ProvisionInput{
		TenantID:         tenantA.ID,
		CourierAccountID: foreign.ID,
		Text:             "TRK00000001",
		ActingUserID:     9,
	})
	if !errors.Is(err, ErrCourierInvalid) {
		t.Fatalf("expected ErrCourierInvalid, got %v", err)
	}
}

func TestProvisionBatchRejectsEmptyInput(t *testing.T) {
	svc, db := setupTrackingPoolTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)

	_, err := svc.ProvisionBatch(ProvisionInput{
		TenantID:         tenant.ID,
		CourierAccountID: account.ID,
		Text:             "  \n\n  ",
		ActingUserID:     9,
	})
	if !errors.Is(err, ErrTrackingInputInvalid) {
		t.Fatalf("expected ErrTrackingInputInvalid, got %v", err)
	}
}

func TestProvisionBatchAllDuplicatesReturnsZero(t *testing.T) {
	svc, db := setupTrackingPoolTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	result, err := svc.ProvisionBatch(ProvisionInput{
		TenantID:         tenant.ID,
		CourierAccountID: account.ID,
		Text:             "TRK00000001\nTRK00000002",
		ActingUserID:     9,
	})
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if result.Provisioned != 0 || result.Skipped != 2 {
		t.Fatalf("expected 0 provisioned / 2 skipped, got %d / %d", result.Provisioned, result.Skipped)
	}

	// 无新增时不写审计
	var auditCount int64
	db.Model(&models.UserLog{}).Where("action = ?", constants.AuditActionTrackingProvision).Count(&auditCount)
	if auditCount != 0 {
		t.Fatalf("no audit entry expected, got %d", auditCount)
	}
}

func TestPoolStatsGroupsByAccount(t *testing.T) {
	svc, db := setupTrackingPoolTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	first := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	second := createTestAccount(t, db, tenant.ID, 2, constants.CourierVendorKoombiyo, models.ModeExistingAPI)
	seedTrackingPool(t, db, tenant.ID, first.CourierID, first.ID, "TRK00000001", "TRK00000002")
	seedTrackingPool(t, db, tenant.ID, second.CourierID, second.ID, "TRK00000003")

	stats, err := svc.Stats(tenant.ID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	byAccount := make(map[uint]int64)
	for _, stat := range stats {
		if stat.Status == constants.TrackingStatusUnused {
			byAccount[stat.CourierAccountID] += stat.Total
		}
	}
	if byAccount[first.ID] != 2 || byAccount[second.ID] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	unused, err := svc.CountUnused(tenant.ID, first.CourierID)
	if err != nil {
		t.Fatalf("count unused failed: %v", err)
	}
	if unused != 2 {
		t.Fatalf("expected 2 unused for courier %d, got %d", first.CourierID, unused)
	}
}
