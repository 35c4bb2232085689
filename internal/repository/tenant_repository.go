package repository

import (
	"errors"
	"strings"

	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// TenantRepository 租户数据访问接口
type TenantRepository interface {
	GetByID(id uint) (*models.Tenant, error)
	GetByName(name string) (*models.Tenant, error)
	List(page, pageSize int) ([]models.Tenant, int64, error)
	Create(tenant *models.Tenant) error
	Update(tenant *models.Tenant) error
	WithTx(tx *gorm.DB) *GormTenantRepository
}

// GormTenantRepository GORM 实现
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建租户仓库
func NewTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTenantRepository) WithTx(tx *gorm.DB) *GormTenantRepository {
	if tx == nil {
		return r
	}
	return &GormTenantRepository{db: tx}
}

// GetByID 根据 ID 查询租户
func (r *GormTenantRepository) GetByID(id uint) (*models.Tenant, error) {
	if id == 0 {
		return nil, nil
	}
	var tenant models.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByName 根据名称查询租户
func (r *GormTenantRepository) GetByName(name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var tenant models.Tenant
	if err := r.db.Where("name = ?", name).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// List 查询租户列表
func (r *GormTenantRepository) List(page, pageSize int) ([]models.Tenant, int64, error) {
	query := r.db.Model(&models.Tenant{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []models.Tenant
	if err := applyPagination(query, page, pageSize).
		Order("created_at ASC").
		Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// Create 创建租户
func (r *GormTenantRepository) Create(tenant *models.Tenant) error {
	if tenant == nil {
		return errors.New("tenant is nil")
	}
	return r.db.Create(tenant).Error
}

// Update 保存租户
func (r *GormTenantRepository) Update(tenant *models.Tenant) error {
	if tenant == nil || tenant.ID == 0 {
		return errors.New("invalid tenant")
	}
	return r.db.Save(tenant).Error
}
