package service

import (
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"
)

// AuditService 审计日志服务
type AuditService struct {
	userLogRepo repository.UserLogRepository
}

// NewAuditService 创建审计日志服务
func NewAuditService(userLogRepo repository.UserLogRepository) *AuditService {
	return &AuditService{userLogRepo: userLogRepo}
}

// Record 写入一条审计日志。写入失败只告警，不影响主流程。
func (s *AuditService) Record(userID, tenantID uint, action string, orderNo *string, details string) {
	entry := &models.UserLog{
		UserID:   userID,
		TenantID: tenantID,
		Action:   action,
		OrderNo:  orderNo,
		Details:  details,
	}
	if err := s.userLogRepo.Create(entry); err != nil {
		logger.Warnw("audit_write_failed",
			"user_id", userID,
			"tenant_id", tenantID,
			"action", action,
			"error", err,
		)
	}
}

// List 查询审计日志列表
func (s *AuditService) List(filter repository.UserLogListFilter) ([]models.UserLog, int64, error) {
	return s.userLogRepo.List(filter)
}
