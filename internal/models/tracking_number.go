package models

import "time"

// TrackingNumber 运单池表
// 不变量：一个运单号至多被一个订单占用；unused→used 的转换必须互斥。
type TrackingNumber struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                       // 主键
	TrackingID       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"tracking_id"`   // 运单号
	TenantID         uint       `gorm:"index:idx_tracking_alloc;not null" json:"tenant_id"`         // 所属租户
	CourierID        uint       `gorm:"index:idx_tracking_alloc;not null" json:"courier_id"`        // 快递供应商内部 ID
	CourierAccountID uint       `gorm:"index;not null" json:"courier_account_id"`                   // 快递账户 ID
	Status           string     `gorm:"type:varchar(20);index:idx_tracking_alloc;not null" json:"status"` // 状态（unused/used）
	OrderID          *uint      `gorm:"index" json:"order_id,omitempty"`                            // 占用订单 ID
	UsedAt           *time.Time `json:"used_at,omitempty"`                                          // 占用时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间（分配按此升序取最旧）
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (TrackingNumber) TableName() string {
	return "tracking_numbers"
}
