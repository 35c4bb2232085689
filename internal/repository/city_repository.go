package repository

import (
	"errors"
	"strings"

	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// CityRepository 城市数据访问接口
type CityRepository interface {
	GetByID(id uint) (*models.City, error)
	GetByName(name string) (*models.City, error)
	List(keyword string, page, pageSize int) ([]models.City, int64, error)
	WithTx(tx *gorm.DB) *GormCityRepository
}

// GormCityRepository GORM 实现
type GormCityRepository struct {
	db *gorm.DB
}

// NewCityRepository 创建城市仓库
func NewCityRepository(db *gorm.DB) *GormCityRepository {
	return &GormCityRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCityRepository) WithTx(tx *gorm.DB) *GormCityRepository {
	if tx == nil {
		return r
	}
	return &GormCityRepository{db: tx}
}

// GetByID 根据 ID 查询城市
func (r *GormCityRepository) GetByID(id uint) (*models.City, error) {
	if id == 0 {
		return nil, nil
	}
	var city models.City
	if err := r.db.First(&city, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}

// GetByName 根据名称精确查询城市
func (r *GormCityRepository) GetByName(name string) (*models.City, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var city models.City
	if err := r.db.Where("name = ?", name).First(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}

// List 查询城市列表
func (r *GormCityRepository) List(keyword string, page, pageSize int) ([]models.City, int64, error) {
	query := r.db.Model(&models.City{})
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cities []models.City
	if err := applyPagination(query, page, pageSize).
		Order("name ASC").
		Find(&cities).Error; err != nil {
		return nil, 0, err
	}
	return cities, total, nil
}
