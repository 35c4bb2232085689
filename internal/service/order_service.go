package service

import (
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"
)

// OrderService 订单查询服务（发货界面的承载面）
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService 创建订单查询服务
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetByID 查询订单详情（含订单项），租户范围内
func (s *OrderService) GetByID(orderID, tenantID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDForTenant(orderID, tenantID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByIDAnyTenant 跨租户查询订单详情（主管理员用）
func (s *OrderService) GetByIDAnyTenant(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List 查询订单列表
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}
