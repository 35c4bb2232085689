package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
// 不变量：派单时订单项状态必须与订单头同步推进（同一事务内全部成功或全部回滚）。
type OrderItem struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID     uint           `gorm:"index;not null" json:"order_id"`                          // 订单 ID
	ProductID   uint           `gorm:"index;not null" json:"product_id"`                        // 商品 ID
	Description string         `gorm:"type:varchar(255);not null" json:"description"`           // 商品描述快照
	Quantity    int            `gorm:"not null" json:"quantity"`                                // 数量
	UnitPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"` // 单价
	Discount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`   // 折扣
	LineTotal   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"line_total"` // 小计
	Status      string         `gorm:"type:varchar(32);index;not null" json:"status"`           // 状态（随订单头推进）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
