package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTrackingRepoTest(t *testing.T) (*GormTrackingRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:tracking_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.TrackingNumber{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewTrackingRepository(db), db
}

func seedPoolRow(t *testing.T, db *gorm.DB, trackingID string, tenantID, courierID uint, createdAt time.Time) *models.TrackingNumber {
	t.Helper()
	row := &models.TrackingNumber{
		TrackingID:       trackingID,
		TenantID:         tenantID,
		CourierID:        courierID,
		CourierAccountID: 1,
		Status:           constants.TrackingStatusUnused,
		CreatedAt:        createdAt,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed pool row failed: %v", err)
	}
	return row
}

func TestAllocateOneReturnsOldestUnused(t *testing.T) {
	repo, db := setupTrackingRepoTest(t)
	base := time.Now().Add(-time.Hour)
	seedPoolRow(t, db, "TRK-NEW", 1, 1, base.Add(time.Minute))
	seedPoolRow(t, db, "TRK-OLD", 1, 1, base)

	row, err := repo.AllocateOne(1, 1)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if row == nil || row.TrackingID != "TRK-OLD" {
		t.Fatalf("expected oldest row first, got %+v", row)
	}
}

func TestAllocateOneScopesByTenantAndCourier(t *testing.T) {
	repo, db := setupTrackingRepoTest(t)
	now := time.Now()
	seedPoolRow(t, db, "TRK-T2", 2, 1, now)
	seedPoolRow(t, db, "TRK-C2", 1, 2, now)

	row, err := repo.AllocateOne(1, 1)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if row != nil {
		t.Fatalf("foreign rows must not be allocated, got %+v", row)
	}

	// courierID=0 时不限定供应商
	row, err = repo.AllocateOne(1, 0)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if row == nil || row.TrackingID != "TRK-C2" {
		t.Fatalf("expected tenant-wide allocation, got %+v", row)
	}
}

func TestMarkUsedIsExclusive(t *testing.T) {
	repo, db := setupTrackingRepoTest(t)
	row := seedPoolRow(t, db, "TRK-X", 1, 1, time.Now())
	now := time.Now()

	claimed, err := repo.MarkUsed(row.TrackingID, 1, 100, now)
	if err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if !claimed {
		t.Fatalf("first claim must succeed")
	}

	// 第二次占用同一行必须失败（竞争失败方）
	claimed, err = repo.MarkUsed(row.TrackingID, 1, 200, now)
	if err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if claimed {
		t.Fatalf("second claim must report lost race")
	}

	var reloaded models.TrackingNumber
	if err := db.First(&reloaded, row.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.TrackingStatusUsed || reloaded.OrderID == nil || *reloaded.OrderID != 100 {
		t.Fatalf("first claimer must own the row: %+v", reloaded)
	}
}

func TestMarkUsedRejectsForeignTenant(t *testing.T) {
	repo, db := setupTrackingRepoTest(t)
	row := seedPoolRow(t, db, "TRK-Y", 1, 1, time.Now())

	claimed, err := repo.MarkUsed(row.TrackingID, 2, 100, time.Now())
	if err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if claimed {
		t.Fatalf("foreign tenant must not claim the row")
	}
}

func TestAllocateManyReturnsAvailableRows(t *testing.T) {
	repo, db := setupTrackingRepoTest(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 2; i++ {
		seedPoolRow(t, db, fmt.Sprintf("TRK-%d", i), 1, 1, base.Add(time.Duration(i)*time.Minute))
	}

	rows, err := repo.AllocateMany(1, 5)
	if err != nil {
		t.Fatalf("allocate many failed: %v", err)
	}
	// 不足时返回实有行数，由调用方决定整批中止
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TrackingID != "TRK-0" {
		t.Fatalf("batch allocation must be oldest-first, got %q", rows[0].TrackingID)
	}
}

func TestExistingIDsDetectsDuplicates(t *testing.T) {
	repo, db := setupTrackingRepoTest(t)
	seedPoolRow(t, db, "TRK-A", 1, 1, time.Now())

	existing, err := repo.ExistingIDs([]string{"TRK-A", "TRK-B"})
	if err != nil {
		t.Fatalf("existing ids failed: %v", err)
	}
	if !existing["TRK-A"] || existing["TRK-B"] {
		t.Fatalf("unexpected existing map: %v", existing)
	}
}
