package repository

import (
	"errors"
	"strings"

	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// UserLogRepository 审计日志数据访问接口（只追加）
type UserLogRepository interface {
	Create(entry *models.UserLog) error
	List(filter UserLogListFilter) ([]models.UserLog, int64, error)
	WithTx(tx *gorm.DB) *GormUserLogRepository
}

// GormUserLogRepository GORM 实现
type GormUserLogRepository struct {
	db *gorm.DB
}

// NewUserLogRepository 创建审计日志仓库
func NewUserLogRepository(db *gorm.DB) *GormUserLogRepository {
	return &GormUserLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserLogRepository) WithTx(tx *gorm.DB) *GormUserLogRepository {
	if tx == nil {
		return r
	}
	return &GormUserLogRepository{db: tx}
}

// Create 写入一条审计日志
func (r *GormUserLogRepository) Create(entry *models.UserLog) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	return r.db.Create(entry).Error
}

// List 查询审计日志列表
func (r *GormUserLogRepository) List(filter UserLogListFilter) ([]models.UserLog, int64, error) {
	query := r.db.Model(&models.UserLog{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no = ?", orderNo)
	}
	if batchID := strings.TrimSpace(filter.BatchID); batchID != "" {
		query = query.Where("batch_id = ?", batchID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.UserLog
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
