package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员数据访问接口
type AdminRepository interface {
	GetByID(id uint) (*models.Admin, error)
	GetByUsername(username string) (*models.Admin, error)
	Create(admin *models.Admin) error
	Update(admin *models.Admin) error
	TouchLogin(id uint, at time.Time) error
	BumpTokenVersion(id uint) error
	WithTx(tx *gorm.DB) *GormAdminRepository
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建管理员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdminRepository) WithTx(tx *gorm.DB) *GormAdminRepository {
	if tx == nil {
		return r
	}
	return &GormAdminRepository{db: tx}
}

// GetByID 根据 ID 查询管理员
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	var admin models.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByUsername 根据用户名查询管理员
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var admin models.Admin
	if err := r.db.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// Create 创建管理员
func (r *GormAdminRepository) Create(admin *models.Admin) error {
	if admin == nil {
		return errors.New("admin is nil")
	}
	return r.db.Create(admin).Error
}

// Update 保存管理员
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	if admin == nil || admin.ID == 0 {
		return errors.New("invalid admin")
	}
	return r.db.Save(admin).Error
}

// TouchLogin 记录最近登录时间
func (r *GormAdminRepository) TouchLogin(id uint, at time.Time) error {
	if id == 0 {
		return errors.New("invalid admin id")
	}
	if at.IsZero() {
		at = time.Now()
	}
	return r.db.Model(&models.Admin{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// BumpTokenVersion 提升令牌版本，使该管理员已签发的令牌全部失效
func (r *GormAdminRepository) BumpTokenVersion(id uint) error {
	if id == 0 {
		return errors.New("invalid admin id")
	}
	return r.db.Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"token_version":        gorm.Expr("token_version + 1"),
			"token_invalid_before": time.Now(),
		}).Error
}
