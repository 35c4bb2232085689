package service

import (
	"fmt"
	"strings"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"

	"gorm.io/gorm"
)

// TrackingPoolService 运单池服务
type TrackingPoolService struct {
	trackingRepo repository.TrackingRepository
	accountRepo  repository.CourierAccountRepository
	userLogRepo  repository.UserLogRepository
}

// NewTrackingPoolService 创建运单池服务
func NewTrackingPoolService(trackingRepo repository.TrackingRepository, accountRepo repository.CourierAccountRepository, userLogRepo repository.UserLogRepository) *TrackingPoolService {
	return &TrackingPoolService{
		trackingRepo: trackingRepo,
		accountRepo:  accountRepo,
		userLogRepo:  userLogRepo,
	}
}

// ProvisionInput 批量导入运单号输入，Text 为每行一个运单号的文本
type ProvisionInput struct {
	TenantID         uint
	CourierAccountID uint
	Text             string
	ActingUserID     uint
}

// ProvisionResult 批量导入结果
type ProvisionResult struct {
	Provisioned int      `json:"provisioned"`
	Skipped     int      `json:"skipped"`
	SkippedIDs  []string `json:"skipped_ids,omitempty"`
}

// ProvisionBatch 批量导入运单号。输入内部去重，库内已存在的编号跳过，
// 导入与审计写入同事务提交。
func (s *TrackingPoolService) ProvisionBatch(input ProvisionInput) (*ProvisionResult, error) {
	if input.TenantID == 0 || input.CourierAccountID == 0 || input.ActingUserID == 0 {
		return nil, ErrTrackingInputInvalid
	}

	account, err := s.accountRepo.GetByIDForTenant(input.CourierAccountID, input.TenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrCourierInvalid
	}

	ids := parseTrackingIDs(input.Text)
	if len(ids) == 0 {
		return nil, ErrTrackingInputInvalid
	}

	existing, err := s.trackingRepo.ExistingIDs(ids)
	if err != nil {
		return nil, ErrTrackingImportFailed
	}

	result := &ProvisionResult{}
	rows := make([]models.TrackingNumber, 0, len(ids))
	for _, id := range ids {
		if existing[id] {
			result.Skipped++
			result.SkippedIDs = append(result.SkippedIDs, id)
			continue
		}
		rows = append(rows, models.TrackingNumber{
			TrackingID:       id,
			TenantID:         input.TenantID,
			CourierID:        account.CourierID,
			CourierAccountID: account.ID,
			Status:           constants.TrackingStatusUnused,
		})
	}
	if len(rows) == 0 {
		return result, nil
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.trackingRepo.WithTx(tx).CreateBatch(rows); err != nil {
			return err
		}
		return s.userLogRepo.WithTx(tx).Create(&models.UserLog{
			UserID:   input.ActingUserID,
			TenantID: input.TenantID,
			Action:   constants.AuditActionTrackingProvision,
			Details:  fmt.Sprintf("co_id=%d provisioned=%d skipped=%d", account.ID, len(rows), result.Skipped),
		})
	})
	if err != nil {
		return nil, ErrTrackingImportFailed
	}

	result.Provisioned = len(rows)
	return result, nil
}

// List 查询运单池列表
func (s *TrackingPoolService) List(filter repository.TrackingListFilter) ([]models.TrackingNumber, int64, error) {
	return s.trackingRepo.List(filter)
}

// Stats 按快递账户统计运单池余量
func (s *TrackingPoolService) Stats(tenantID uint) ([]repository.TrackingPoolStat, error) {
	return s.trackingRepo.Stats(tenantID)
}

// CountUnused 统计可用运单号数量
func (s *TrackingPoolService) CountUnused(tenantID, courierID uint) (int64, error) {
	return s.trackingRepo.CountUnused(tenantID, courierID)
}

// parseTrackingIDs 解析导入文本：按行切分、裁剪空白、输入内去重
func parseTrackingIDs(text string) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		id := strings.TrimSpace(line)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
