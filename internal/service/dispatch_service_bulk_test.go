package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"
)

func TestDispatchBulkPartialSuccessCommits(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)

	good1 := createDispatchableOrder(t, db, tenant.ID, "ORD-3001", nil)
	bad := createDispatchableOrder(t, db, tenant.ID, "ORD-3002", nil)
	db.Model(bad).Update("status", constants.OrderStatusDispatch)
	good2 := createDispatchableOrder(t, db, tenant.ID, "ORD-3003", nil)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002", "TRK00000003")

	result, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{
		OrderIDs:     []uint{good1.ID, bad.ID, good2.ID},
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("bulk dispatch failed: %v", err)
	}
	if result.DispatchedCount != 2 || result.FailedCount != 1 {
		t.Fatalf("expected 2 dispatched / 1 failed, got %d / %d", result.DispatchedCount, result.FailedCount)
	}
	if result.BatchID == "" {
		t.Fatalf("batch id must be set")
	}
	if len(result.FailedOrders) != 1 || result.FailedOrders[0].OrderID != bad.ID {
		t.Fatalf("unexpected failures: %+v", result.FailedOrders)
	}

	// 坏订单不拖累同批其余订单
	for _, id := range []uint{good1.ID, good2.ID} {
		reloaded := reloadOrder(t, db, id)
		if reloaded.Status != constants.OrderStatusDispatch || reloaded.TrackingNumber == nil {
			t.Fatalf("order %d not dispatched: %+v", id, reloaded)
		}
	}

	var usedCount int64
	db.Model(&models.TrackingNumber{}).Where("status = ?", constants.TrackingStatusUsed).Count(&usedCount)
	if usedCount != 2 {
		t.Fatalf("expected 2 used tracking numbers, got %d", usedCount)
	}

	var summaryCount int64
	db.Model(&models.UserLog{}).Where("action = ? AND batch_id = ?", constants.AuditActionBulkOrderDispatch, result.BatchID).Count(&summaryCount)
	if summaryCount != 1 {
		t.Fatalf("expected one bulk summary audit entry, got %d", summaryCount)
	}
}

func TestDispatchBulkRejectsMixedTenantBatch(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenantA := createTestTenant(t, db, "tenant-a")
	tenantB := createTestTenant(t, db, "tenant-b")
	account := createTestAccount(t, db, tenantA.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	orderA := createDispatchableOrder(t, db, tenantA.ID, "ORD-3101", nil)
	orderB := createDispatchableOrder(t, db, tenantB.ID, "ORD-3102", nil)
	seedTrackingPool(t, db, tenantA.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	_, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{
		OrderIDs:     []uint{orderA.ID, orderB.ID},
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrMixedTenantBatch) {
		t.Fatalf("expected ErrMixedTenantBatch, got %v", err)
	}

	// 混租户批次在任何变更前被拒绝
	for _, id := range []uint{orderA.ID, orderB.ID} {
		if reloaded := reloadOrder(t, db, id); reloaded.Status != constants.OrderStatusPending {
			t.Fatalf("order %d must be unchanged, got %q", id, reloaded.Status)
		}
	}
	var usedCount int64
	db.Model(&models.TrackingNumber{}).Where("status = ?", constants.TrackingStatusUsed).Count(&usedCount)
	if usedCount != 0 {
		t.Fatalf("no tracking number may be consumed, used=%d", usedCount)
	}
}

func TestDispatchBulkRejectsEmptyBatch(t *testing.T) {
	svc, _ := setupDispatchServiceTest(t)
	_, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{ActingUserID: 9})
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestDispatchBulkInsufficientPoolAborts(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	var ids []uint
	for i := 0; i < 3; i++ {
		order := createDispatchableOrder(t, db, tenant.ID, fmt.Sprintf("ORD-32%02d", i), nil)
		ids = append(ids, order.ID)
	}
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001")

	_, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{
		OrderIDs:     ids,
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrInsufficientTracking) {
		t.Fatalf("expected ErrInsufficientTracking, got %v", err)
	}

	// 预分配不足时全批中止，唯一的池内运单号原样保留
	var row models.TrackingNumber
	db.Where("tracking_id = ?", "TRK00000001").First(&row)
	if row.Status != constants.TrackingStatusUnused {
		t.Fatalf("pool row must stay unused, got %q", row.Status)
	}
	for _, id := range ids {
		if reloaded := reloadOrder(t, db, id); reloaded.Status != constants.OrderStatusPending {
			t.Fatalf("order %d must be unchanged, got %q", id, reloaded.Status)
		}
	}
}

func TestDispatchBulkAllFailedRollsBack(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	var ids []uint
	for i := 0; i < 2; i++ {
		order := createDispatchableOrder(t, db, tenant.ID, fmt.Sprintf("ORD-33%02d", i), nil)
		db.Model(order).Update("status", constants.OrderStatusDispatch)
		ids = append(ids, order.ID)
	}
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	result, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{
		OrderIDs:     ids,
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if result == nil || result.DispatchedCount != 0 || result.FailedCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// 全败批次回滚，不留成功审计，不消耗运单号
	var usedCount int64
	db.Model(&models.TrackingNumber{}).Where("status = ?", constants.TrackingStatusUsed).Count(&usedCount)
	if usedCount != 0 {
		t.Fatalf("no tracking number may be consumed, used=%d", usedCount)
	}
	var summaryCount int64
	db.Model(&models.UserLog{}).Where("action = ?", constants.AuditActionBulkOrderDispatch).Count(&summaryCount)
	if summaryCount != 0 {
		t.Fatalf("rolled back batch must not leave a summary entry, got %d", summaryCount)
	}
}

func TestDispatchBulkReportsMissingOrders(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-3401", nil)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	result, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{
		OrderIDs:     []uint{order.ID, 99999},
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("bulk dispatch failed: %v", err)
	}
	if result.DispatchedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("expected 1 dispatched / 1 failed, got %d / %d", result.DispatchedCount, result.FailedCount)
	}
	if len(result.FailedOrders) != 1 || result.FailedOrders[0].OrderID != 99999 {
		t.Fatalf("missing order must be reported as failed: %+v", result.FailedOrders)
	}
}

func TestDispatchBulkFailedOrderReleasesItsTracking(t *testing.T) {
	svc, db := setupDispatchServiceTest(t)
	tenant := createTestTenant(t, db, "tenant-a")
	account := createTestAccount(t, db, tenant.ID, 1, constants.CourierVendorFardar, models.ModeInternal)
	order := createDispatchableOrder(t, db, tenant.ID, "ORD-3010", nil)
	seedTrackingPool(t, db, tenant.ID, account.CourierID, account.ID, "TRK00000001", "TRK00000002")

	// 同一订单出现两次：第二次已在本批内发出，占用的运单号
	// 必须随该单回滚释放，不能随批次提交
	result, err := svc.DispatchBulk(context.Background(), BulkDispatchInput{
		OrderIDs:     []uint{order.ID, order.ID},
		CourierID:    account.CourierID,
		ActingUserID: 9,
	})
	if err != nil {
		t.Fatalf("bulk dispatch failed: %v", err)
	}
	if result.DispatchedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("expected 1 dispatched / 1 failed, got %d / %d", result.DispatchedCount, result.FailedCount)
	}

	var usedCount int64
	db.Model(&models.TrackingNumber{}).Where("status = ?", constants.TrackingStatusUsed).Count(&usedCount)
	if usedCount != 1 {
		t.Fatalf("expected exactly 1 used tracking row for 1 dispatched order, got %d", usedCount)
	}
	var spare models.TrackingNumber
	if err := db.Where("status = ?", constants.TrackingStatusUnused).First(&spare).Error; err != nil {
		t.Fatalf("expected the failed order's tracking row back in the pool: %v", err)
	}
	if spare.OrderID != nil {
		t.Fatalf("released tracking row must not keep an order id, got %v", *spare.OrderID)
	}
}
