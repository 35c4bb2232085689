package service

import (
	"fmt"
	"strings"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"
)

// TenantService 租户管理服务（仅总管理员可用）
type TenantService struct {
	tenantRepo  repository.TenantRepository
	userLogRepo repository.UserLogRepository
}

// NewTenantService 创建租户服务
func NewTenantService(tenantRepo repository.TenantRepository, userLogRepo repository.UserLogRepository) *TenantService {
	return &TenantService{tenantRepo: tenantRepo, userLogRepo: userLogRepo}
}

// TenantInput 租户写入输入
type TenantInput struct {
	Name         string
	WebhookURL   string
	ActingUserID uint
}

// Create 创建租户，名称唯一
func (s *TenantService) Create(input TenantInput) (*models.Tenant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.ActingUserID == 0 {
		return nil, ErrTenantInvalid
	}
	existing, err := s.tenantRepo.GetByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTenantExists
	}

	tenant := &models.Tenant{
		Name:       name,
		Status:     constants.TenantStatusActive,
		WebhookURL: strings.TrimSpace(input.WebhookURL),
	}
	if err := s.tenantRepo.Create(tenant); err != nil {
		return nil, err
	}
	s.audit(input.ActingUserID, tenant.ID, fmt.Sprintf("create tenant=%s", tenant.Name))
	return tenant, nil
}

// Update 更新租户名称与回调地址
func (s *TenantService) Update(tenantID uint, input TenantInput) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}

	name := strings.TrimSpace(input.Name)
	if name != "" && name != tenant.Name {
		existing, err := s.tenantRepo.GetByName(name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != tenant.ID {
			return nil, ErrTenantExists
		}
		tenant.Name = name
	}
	tenant.WebhookURL = strings.TrimSpace(input.WebhookURL)

	if err := s.tenantRepo.Update(tenant); err != nil {
		return nil, err
	}
	s.audit(input.ActingUserID, tenant.ID, fmt.Sprintf("update tenant=%s", tenant.Name))
	return tenant, nil
}

// SetStatus 启用/停用租户
func (s *TenantService) SetStatus(tenantID uint, status string, actingUserID uint) (*models.Tenant, error) {
	if status != constants.TenantStatusActive && status != constants.TenantStatusDisabled {
		return nil, ErrTenantInvalid
	}
	tenant, err := s.tenantRepo.GetByID(tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}

	tenant.Status = status
	if err := s.tenantRepo.Update(tenant); err != nil {
		return nil, err
	}
	s.audit(actingUserID, tenant.ID, fmt.Sprintf("status tenant=%s status=%s", tenant.Name, status))
	return tenant, nil
}

// GetByID 查询租户
func (s *TenantService) GetByID(tenantID uint) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	return tenant, nil
}

// List 查询租户列表
func (s *TenantService) List(page, pageSize int) ([]models.Tenant, int64, error) {
	return s.tenantRepo.List(page, pageSize)
}

func (s *TenantService) audit(actingUserID, tenantID uint, details string) {
	if err := s.userLogRepo.Create(&models.UserLog{
		UserID:   actingUserID,
		TenantID: tenantID,
		Action:   constants.AuditActionTenantChange,
		Details:  details,
	}); err != nil {
		logger.Warnw("tenant_audit_write_failed", "tenant_id", tenantID, "error", err)
	}
}
