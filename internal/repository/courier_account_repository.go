package repository

import (
	"errors"
	"strings"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// CourierAccountRepository 快递账户数据访问接口
type CourierAccountRepository interface {
	GetByID(id uint) (*models.CourierAccount, error)
	GetByIDForTenant(id, tenantID uint) (*models.CourierAccount, error)
	GetByCourierForTenant(courierID, tenantID uint) (*models.CourierAccount, error)
	GetByCourier(courierID uint) (*models.CourierAccount, error)
	GetActiveDefault(tenantID uint) (*models.CourierAccount, error)
	List(filter CourierAccountListFilter) ([]models.CourierAccount, int64, error)
	Create(account *models.CourierAccount) error
	Update(account *models.CourierAccount) error
	ClearDefault(tenantID uint) error
	WithTx(tx *gorm.DB) *GormCourierAccountRepository
}

// GormCourierAccountRepository GORM 实现
type GormCourierAccountRepository struct {
	db *gorm.DB
}

// NewCourierAccountRepository 创建快递账户仓库
func NewCourierAccountRepository(db *gorm.DB) *GormCourierAccountRepository {
	return &GormCourierAccountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCourierAccountRepository) WithTx(tx *gorm.DB) *GormCourierAccountRepository {
	if tx == nil {
		return r
	}
	return &GormCourierAccountRepository{db: tx}
}

// GetByID 根据 ID 查询快递账户
func (r *GormCourierAccountRepository) GetByID(id uint) (*models.CourierAccount, error) {
	if id == 0 {
		return nil, nil
	}
	var account models.CourierAccount
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByIDForTenant 根据 ID 查询指定租户的快递账户
func (r *GormCourierAccountRepository) GetByIDForTenant(id, tenantID uint) (*models.CourierAccount, error) {
	if id == 0 || tenantID == 0 {
		return nil, nil
	}
	var account models.CourierAccount
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByCourierForTenant 查询租户在某供应商下的账户，不过滤状态，
// 由服务层区分缺失与停用两种拒绝原因。
func (r *GormCourierAccountRepository) GetByCourierForTenant(courierID, tenantID uint) (*models.CourierAccount, error) {
	if courierID == 0 || tenantID == 0 {
		return nil, nil
	}
	var account models.CourierAccount
	err := r.db.Where("courier_id = ? AND tenant_id = ?", courierID, tenantID).
		Order("is_default DESC, mode ASC, id ASC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByCourier 跨租户查询某供应商下的任一账户，
// 用于区分供应商不存在与归属其他租户两种情况。
func (r *GormCourierAccountRepository) GetByCourier(courierID uint) (*models.CourierAccount, error) {
	if courierID == 0 {
		return nil, nil
	}
	var account models.CourierAccount
	err := r.db.Where("courier_id = ?", courierID).
		Order("id ASC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetActiveDefault 查询租户的默认可用账户。
// 对接方式数值即优先级，内部池优先于外部接口。
func (r *GormCourierAccountRepository) GetActiveDefault(tenantID uint) (*models.CourierAccount, error) {
	if tenantID == 0 {
		return nil, nil
	}
	var account models.CourierAccount
	err := r.db.Where("tenant_id = ? AND status = ?", tenantID, constants.CourierAccountStatusActive).
		Order("mode ASC, is_default DESC, id ASC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// List 查询快递账户列表
func (r *GormCourierAccountRepository) List(filter CourierAccountListFilter) ([]models.CourierAccount, int64, error) {
	query := r.db.Model(&models.CourierAccount{})
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if vendor := strings.TrimSpace(filter.Vendor); vendor != "" {
		query = query.Where("vendor = ?", vendor)
	}
	if filter.ActiveOnly {
		query = query.Where("status = ?", constants.CourierAccountStatusActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []models.CourierAccount
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// Create 创建快递账户
func (r *GormCourierAccountRepository) Create(account *models.CourierAccount) error {
	if account == nil {
		return errors.New("account is nil")
	}
	return r.db.Create(account).Error
}

// Update 保存快递账户
func (r *GormCourierAccountRepository) Update(account *models.CourierAccount) error {
	if account == nil || account.ID == 0 {
		return errors.New("invalid account")
	}
	return r.db.Save(account).Error
}

// ClearDefault 取消租户下全部账户的默认标记（设置新默认前调用）
func (r *GormCourierAccountRepository) ClearDefault(tenantID uint) error {
	if tenantID == 0 {
		return errors.New("invalid tenant id")
	}
	return r.db.Model(&models.CourierAccount{}).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Update("is_default", false).Error
}
