package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// TrackingRepository 运单池数据访问接口
type TrackingRepository interface {
	AllocateOne(tenantID, courierID uint) (*models.TrackingNumber, error)
	AllocateMany(tenantID uint, count int) ([]models.TrackingNumber, error)
	MarkUsed(trackingID string, tenantID, orderID uint, usedAt time.Time) (bool, error)
	CreateBatch(items []models.TrackingNumber) error
	ExistingIDs(trackingIDs []string) (map[string]bool, error)
	GetByTrackingID(trackingID string) (*models.TrackingNumber, error)
	CountUnused(tenantID, courierID uint) (int64, error)
	List(filter TrackingListFilter) ([]models.TrackingNumber, int64, error)
	Stats(tenantID uint) ([]TrackingPoolStat, error)
	WithTx(tx *gorm.DB) *GormTrackingRepository
}

// GormTrackingRepository GORM 实现
type GormTrackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository 创建运单池仓库
func NewTrackingRepository(db *gorm.DB) *GormTrackingRepository {
	return &GormTrackingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTrackingRepository) WithTx(tx *gorm.DB) *GormTrackingRepository {
	if tx == nil {
		return r
	}
	return &GormTrackingRepository{db: tx}
}

// AllocateOne 取最旧一条未使用运单号，加行锁，courierID 为 0 时不按供应商过滤。
// 未命中返回 (nil, nil)，由调用方转换为业务条件。
func (r *GormTrackingRepository) AllocateOne(tenantID, courierID uint) (*models.TrackingNumber, error) {
	if tenantID == 0 {
		return nil, errors.New("invalid tenant id")
	}
	query := r.db.Model(&models.TrackingNumber{}).
		Where("tenant_id = ? AND status = ?", tenantID, constants.TrackingStatusUnused)
	if courierID > 0 {
		query = query.Where("courier_id = ?", courierID)
	}
	var row models.TrackingNumber
	if err := withLockForUpdate(query).
		Order("created_at ASC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// AllocateMany 一次锁定读取 count 条未使用运单号（按最旧优先）。
// 可用数不足时返回实际可得的行，由调用方判断是否整体放弃。
func (r *GormTrackingRepository) AllocateMany(tenantID uint, count int) ([]models.TrackingNumber, error) {
	if tenantID == 0 {
		return nil, errors.New("invalid tenant id")
	}
	if count <= 0 {
		return []models.TrackingNumber{}, nil
	}
	var rows []models.TrackingNumber
	query := r.db.Model(&models.TrackingNumber{}).
		Where("tenant_id = ? AND status = ?", tenantID, constants.TrackingStatusUnused)
	if err := withLockForUpdate(query).
		Order("created_at ASC").
		Limit(count).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkUsed 条件更新 unused→used，返回是否命中。
// 零行命中表示竞争失败，调用方必须按硬失败处理，不得静默重试。
func (r *GormTrackingRepository) MarkUsed(trackingID string, tenantID, orderID uint, usedAt time.Time) (bool, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" || tenantID == 0 {
		return false, errors.New("invalid tracking id or tenant id")
	}
	if usedAt.IsZero() {
		usedAt = time.Now()
	}
	result := r.db.Model(&models.TrackingNumber{}).
		Where("tracking_id = ? AND tenant_id = ? AND status = ?", trackingID, tenantID, constants.TrackingStatusUnused).
		Updates(map[string]interface{}{
			"status":     constants.TrackingStatusUsed,
			"order_id":   orderID,
			"used_at":    usedAt,
			"updated_at": usedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateBatch 批量写入运单号
func (r *GormTrackingRepository) CreateBatch(items []models.TrackingNumber) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// ExistingIDs 查询已存在的运单号集合（批量导入去重用）
func (r *GormTrackingRepository) ExistingIDs(trackingIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(trackingIDs) == 0 {
		return result, nil
	}
	var existing []string
	if err := r.db.Model(&models.TrackingNumber{}).
		Where("tracking_id IN ?", trackingIDs).
		Pluck("tracking_id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		result[id] = true
	}
	return result, nil
}

// GetByTrackingID 根据运单号查询
func (r *GormTrackingRepository) GetByTrackingID(trackingID string) (*models.TrackingNumber, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, nil
	}
	var row models.TrackingNumber
	if err := r.db.Where("tracking_id = ?", trackingID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// CountUnused 统计未使用运单号数量，courierID 为 0 时不按供应商过滤。
func (r *GormTrackingRepository) CountUnused(tenantID, courierID uint) (int64, error) {
	if tenantID == 0 {
		return 0, errors.New("invalid tenant id")
	}
	query := r.db.Model(&models.TrackingNumber{}).
		Where("tenant_id = ? AND status = ?", tenantID, constants.TrackingStatusUnused)
	if courierID > 0 {
		query = query.Where("courier_id = ?", courierID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List 查询运单池列表
func (r *GormTrackingRepository) List(filter TrackingListFilter) ([]models.TrackingNumber, int64, error) {
	query := r.db.Model(&models.TrackingNumber{})
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.CourierID != 0 {
		query = query.Where("courier_id = ?", filter.CourierID)
	}
	if filter.CourierAccountID != 0 {
		query = query.Where("courier_account_id = ?", filter.CourierAccountID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if trackingID := strings.TrimSpace(filter.TrackingID); trackingID != "" {
		query = query.Where("tracking_id LIKE ?", "%"+trackingID+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TrackingNumber
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Stats 按快递账户与状态统计运单池
func (r *GormTrackingRepository) Stats(tenantID uint) ([]TrackingPoolStat, error) {
	if tenantID == 0 {
		return nil, errors.New("invalid tenant id")
	}
	var rows []TrackingPoolStat
	if err := r.db.Model(&models.TrackingNumber{}).
		Select("courier_account_id, courier_id, status, COUNT(*) as total").
		Where("tenant_id = ?", tenantID).
		Group("courier_account_id, courier_id, status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
