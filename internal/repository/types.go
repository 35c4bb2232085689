package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	TenantID    uint
	Status      string
	PayStatus   string
	CourierID   uint
	OrderNo     string
	Search      string // 匹配收件人姓名/电话/运单号
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TrackingListFilter 查询运单池列表的过滤条件
type TrackingListFilter struct {
	Page             int
	PageSize         int
	TenantID         uint
	CourierID        uint
	CourierAccountID uint
	Status           string
	TrackingID       string
}

// CourierAccountListFilter 查询快递账户列表的过滤条件
type CourierAccountListFilter struct {
	Page       int
	PageSize   int
	TenantID   uint
	Vendor     string
	ActiveOnly bool
}

// UserLogListFilter 查询审计日志列表的过滤条件
type UserLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	TenantID    uint
	Action      string
	OrderNo     string
	BatchID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TrackingPoolStat 运单池按账户统计结果
type TrackingPoolStat struct {
	CourierAccountID uint   `json:"courier_account_id"`
	CourierID        uint   `json:"courier_id"`
	Status           string `json:"status"`
	Total            int64  `json:"total"`
}
