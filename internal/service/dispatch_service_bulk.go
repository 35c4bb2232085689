package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BulkDispatchInput 批量发货输入
type BulkDispatchInput struct {
	OrderIDs     []uint
	CourierID    uint // 0 表示使用租户默认账户
	DispatchNote string
	ActingUserID uint
	TenantScope  uint // 调用方租户范围，0 表示不限（总管理员）
}

// BulkOrderOutcome 批量发货中单笔成功结果
type BulkOrderOutcome struct {
	OrderID        uint   `json:"order_id"`
	OrderNo        string `json:"order_no"`
	TrackingNumber string `json:"tracking_number"`
}

// BulkOrderFailure 批量发货中单笔失败记录
type BulkOrderFailure struct {
	OrderID uint   `json:"order_id"`
	OrderNo string `json:"order_no,omitempty"`
	Reason  string `json:"reason"`
}

// BulkDispatchResult 批量发货结果
type BulkDispatchResult struct {
	BatchID          string             `json:"batch_id"`
	DispatchedCount  int                `json:"dispatched_count"`
	DispatchedOrders []BulkOrderOutcome `json:"dispatched_orders"`
	FailedCount      int                `json:"failed_count"`
	FailedOrders     []BulkOrderFailure `json:"failed_orders,omitempty"`
	CourierID        uint               `json:"courier_id"`
	CourierAccountID uint               `json:"co_id"`
	CourierName      string             `json:"courier_name"`
	TenantID         uint               `json:"tenant_id"`
}

// errBulkAllFailed 批量发货零成功时从事务闭包抛出以触发整体回滚
var errBulkAllFailed = fmt.Errorf("bulk dispatch: no order succeeded")

// DispatchBulk 批量发货。整批必须属于同一租户；运单号一次锁定读出，
// 不足则整批拒绝；随后逐单独立处理，单笔失败不中断其余订单；
// 至少一笔成功才提交，零成功整体回滚。
func (s *DispatchService) DispatchBulk(ctx context.Context, input BulkDispatchInput) (*BulkDispatchResult, error) {
	if input.ActingUserID == 0 {
		return nil, ErrDispatchInvalid
	}
	if len(input.OrderIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	// 事务外预载订单，确定批次租户并预检混租户
	orders := make(map[uint]*models.Order, len(input.OrderIDs))
	var tenantID uint
	failures := make([]BulkOrderFailure, 0)
	for _, orderID := range input.OrderIDs {
		order, err := s.orderRepo.GetByID(orderID)
		if err != nil {
			return nil, ErrOrderFetchFailed
		}
		if order == nil {
			failures = append(failures, BulkOrderFailure{OrderID: orderID, Reason: ErrOrderNotFound.Error()})
			continue
		}
		orders[orderID] = order
		if tenantID == 0 {
			tenantID = order.TenantID
		} else if order.TenantID != tenantID {
			// 混租户批次在任何变更前整体拒绝
			return nil, ErrMixedTenantBatch
		}
	}
	if tenantID == 0 {
		return nil, ErrOrderNotFound
	}
	// 越权批次与不存在同样返回未找到，不暴露他租户订单
	if input.TenantScope != 0 && tenantID != input.TenantScope {
		return nil, ErrOrderNotFound
	}

	account, err := s.resolveAccount(input.CourierID, tenantID)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	now := time.Now()
	result := &BulkDispatchResult{
		BatchID:          batchID,
		DispatchedOrders: make([]BulkOrderOutcome, 0, len(input.OrderIDs)),
		FailedOrders:     failures,
		CourierID:        account.CourierID,
		CourierAccountID: account.ID,
		CourierName:      account.Name,
		TenantID:         tenantID,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		var pool []models.TrackingNumber
		if account.Mode.UsesPool() {
			rows, err := s.trackingRepo.WithTx(tx).AllocateMany(tenantID, len(input.OrderIDs))
			if err != nil {
				return err
			}
			if len(rows) < len(input.OrderIDs) {
				// 不足即整批拒绝，不做部分发货
				return fmt.Errorf("%w: required %d, available %d", ErrInsufficientTracking, len(input.OrderIDs), len(rows))
			}
			pool = rows
		}

		poolIdx := 0
		for _, orderID := range input.OrderIDs {
			order, ok := orders[orderID]
			if !ok {
				continue
			}
			if !isDispatchable(order.Status) {
				result.FailedOrders = append(result.FailedOrders, BulkOrderFailure{
					OrderID: orderID,
					OrderNo: order.OrderNo,
					Reason:  ErrOrderNotDispatchable.Error(),
				})
				continue
			}

			var preallocated *models.TrackingNumber
			if account.Mode.UsesPool() {
				preallocated = &pool[poolIdx]
				poolIdx++
			}

			// 嵌套事务产生 SAVEPOINT：单笔失败只回滚该单已写入的
			// 运单占用与状态变更，不波及批内其他订单
			var outcome *DispatchResult
			dispatchErr := tx.Transaction(func(orderTx *gorm.DB) error {
				res, txErr := s.dispatchOrderTx(ctx, orderTx, order, account, input.DispatchNote, input.ActingUserID, now, preallocated)
				if txErr != nil {
					return txErr
				}
				outcome = res
				return nil
			})
			if dispatchErr != nil {
				result.FailedOrders = append(result.FailedOrders, BulkOrderFailure{
					OrderID: orderID,
					OrderNo: order.OrderNo,
					Reason:  dispatchErr.Error(),
				})
				continue
			}
			result.DispatchedOrders = append(result.DispatchedOrders, BulkOrderOutcome{
				OrderID:        outcome.OrderID,
				OrderNo:        outcome.OrderNo,
				TrackingNumber: outcome.TrackingNumber,
			})
		}

		if len(result.DispatchedOrders) == 0 {
			return errBulkAllFailed
		}

		// 汇总审计与逐单成功审计同事务提交
		if err := s.userLogRepo.WithTx(tx).Create(&models.UserLog{
			UserID:   input.ActingUserID,
			TenantID: tenantID,
			Action:   constants.AuditActionBulkOrderDispatch,
			BatchID:  batchID,
			Details:  bulkAuditSummary(result),
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if err == errBulkAllFailed {
			// 零成功：事务已回滚，失败清单仍返回给调用方
			result.FailedCount = len(result.FailedOrders)
			s.recordBulkFailure(input.ActingUserID, tenantID, batchID, result)
			s.recordPerOrderFailures(input.ActingUserID, tenantID, batchID, result.FailedOrders)
			return result, ErrDispatchFailed
		}
		s.recordBulkFailure(input.ActingUserID, tenantID, batchID, result)
		return nil, err
	}

	result.DispatchedCount = len(result.DispatchedOrders)
	result.FailedCount = len(result.FailedOrders)
	s.recordPerOrderFailures(input.ActingUserID, tenantID, batchID, result.FailedOrders)

	for i := range result.DispatchedOrders {
		outcome := result.DispatchedOrders[i]
		s.notifyDispatched(tenantID, &DispatchResult{
			OrderID:          outcome.OrderID,
			OrderNo:          outcome.OrderNo,
			TrackingNumber:   outcome.TrackingNumber,
			CourierID:        account.CourierID,
			CourierAccountID: account.ID,
			CourierName:      account.Name,
			TenantID:         tenantID,
		})
	}
	return result, nil
}

// recordPerOrderFailures 逐单失败审计，尽力写入
func (s *DispatchService) recordPerOrderFailures(actingUserID, tenantID uint, batchID string, failures []BulkOrderFailure) {
	for _, failure := range failures {
		entry := &models.UserLog{
			UserID:   actingUserID,
			TenantID: tenantID,
			Action:   constants.AuditActionOrderDispatchFailed,
			BatchID:  batchID,
			Details:  failure.Reason,
		}
		if failure.OrderNo != "" {
			orderNo := failure.OrderNo
			entry.OrderNo = &orderNo
		}
		if err := s.userLogRepo.Create(entry); err != nil {
			logger.Warnw("dispatch_failure_audit_write_failed",
				"batch_id", batchID,
				"order_id", failure.OrderID,
				"error", err,
			)
		}
	}
}

// recordBulkFailure 批量失败审计在回滚后尽力写入
func (s *DispatchService) recordBulkFailure(actingUserID, tenantID uint, batchID string, result *BulkDispatchResult) {
	entry := &models.UserLog{
		UserID:   actingUserID,
		TenantID: tenantID,
		Action:   constants.AuditActionBulkOrderDispatchFailed,
		BatchID:  batchID,
		Details:  bulkAuditSummary(result),
	}
	if err := s.userLogRepo.Create(entry); err != nil {
		logger.Warnw("bulk_dispatch_failure_audit_write_failed",
			"batch_id", batchID,
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

// bulkAuditSummary 汇总审计明细：成功运单与失败原因各一段
func bulkAuditSummary(result *BulkDispatchResult) string {
	var sb strings.Builder
	if len(result.DispatchedOrders) > 0 {
		tracking := make([]string, 0, len(result.DispatchedOrders))
		for _, outcome := range result.DispatchedOrders {
			tracking = append(tracking, fmt.Sprintf("%s=%s", outcome.OrderNo, outcome.TrackingNumber))
		}
		sb.WriteString("dispatched: ")
		sb.WriteString(strings.Join(tracking, ", "))
	}
	if len(result.FailedOrders) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		reasons := make([]string, 0, len(result.FailedOrders))
		for _, failure := range result.FailedOrders {
			label := failure.OrderNo
			if label == "" {
				label = fmt.Sprintf("#%d", failure.OrderID)
			}
			reasons = append(reasons, fmt.Sprintf("%s: %s", label, failure.Reason))
		}
		sb.WriteString("failed: ")
		sb.WriteString(strings.Join(reasons, ", "))
	}
	return sb.String()
}
