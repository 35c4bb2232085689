package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"

	"gorm.io/gorm"
)

// DispatchUpdate 发货成功后需要写回订单的字段集合
type DispatchUpdate struct {
	CourierID        uint
	CourierAccountID uint
	TrackingNumber   string
	DispatchNote     string
	DispatchedAt     time.Time
}

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	GetByIDForTenant(id, tenantID uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	MarkDispatched(orderID uint, update DispatchUpdate) (bool, error)
	UpdateItemsStatus(orderID uint, status string) error
	List(filter OrderListFilter) ([]models.Order, int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// GetByID 根据 ID 查询订单（含订单项）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForTenant 根据 ID 查询指定租户的订单（含订单项）
func (r *GormOrderRepository) GetByIDForTenant(id, tenantID uint) (*models.Order, error) {
	if id == 0 || tenantID == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号查询订单（含订单项）
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").
		Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// MarkDispatched 条件更新订单为已发货，返回是否命中。
// WHERE 带可发货状态守卫，零行命中表示订单被并发修改，调用方必须回滚整单。
func (r *GormOrderRepository) MarkDispatched(orderID uint, update DispatchUpdate) (bool, error) {
	if orderID == 0 {
		return false, errors.New("invalid order id")
	}
	if update.TrackingNumber == "" || update.CourierID == 0 {
		return false, errors.New("tracking number and courier id required")
	}
	if update.DispatchedAt.IsZero() {
		update.DispatchedAt = time.Now()
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, []string{constants.OrderStatusPending, constants.OrderStatusDone}).
		Updates(map[string]interface{}{
			"status":             constants.OrderStatusDispatch,
			"courier_id":         update.CourierID,
			"courier_account_id": update.CourierAccountID,
			"tracking_number":    update.TrackingNumber,
			"dispatch_note":      update.DispatchNote,
			"dispatched_at":      update.DispatchedAt,
			"updated_at":         update.DispatchedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateItemsStatus 与订单状态同步更新全部订单项
func (r *GormOrderRepository) UpdateItemsStatus(orderID uint, status string) error {
	if orderID == 0 {
		return errors.New("invalid order id")
	}
	return r.db.Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// List 查询订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if payStatus := strings.TrimSpace(filter.PayStatus); payStatus != "" {
		query = query.Where("pay_status = ?", payStatus)
	}
	if filter.CourierID != 0 {
		query = query.Where("courier_id = ?", filter.CourierID)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no = ?", orderNo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("customer_name LIKE ? OR phone1 LIKE ? OR tracking_number LIKE ?", like, like, like)
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

	var orders []models.Order
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
