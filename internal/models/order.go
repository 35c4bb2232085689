package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
// 不变量：tracking_number 与 courier_id/courier_account_id 只能在状态进入 dispatch 时一并写入。
type Order struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo          string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`     // 订单编号
	TenantID         uint           `gorm:"index;not null" json:"tenant_id"`                           // 所属租户
	CustomerName     string         `gorm:"type:varchar(120);not null" json:"customer_name"`           // 收件人姓名
	Phone1           string         `gorm:"type:varchar(32);index;not null" json:"phone1"`             // 联系电话
	Phone2           string         `gorm:"type:varchar(32)" json:"phone2,omitempty"`                  // 备用电话
	AddressLine1     string         `gorm:"type:varchar(255);not null" json:"address_line1"`           // 地址行 1
	AddressLine2     string         `gorm:"type:varchar(255)" json:"address_line2,omitempty"`          // 地址行 2
	CityID           *uint          `gorm:"index" json:"city_id,omitempty"`                            // 目的城市 ID（可空，派单前必须可解析）
	Status           string         `gorm:"type:varchar(32);index;not null" json:"status"`             // 订单状态
	PayStatus        string         `gorm:"type:varchar(20);index;not null" json:"pay_status"`         // 支付状态
	TotalAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单总额
	Currency         string         `gorm:"type:varchar(8);not null" json:"currency"`                  // 币种
	Weight           float64        `gorm:"not null;default:0" json:"weight"`                          // 包裹重量（kg，0 表示未知）
	TrackingNumber   *string        `gorm:"type:varchar(64);index" json:"tracking_number,omitempty"`   // 运单号（派单后写入）
	CourierID        *uint          `gorm:"index" json:"courier_id,omitempty"`                         // 快递供应商内部 ID
	CourierAccountID *uint          `gorm:"index" json:"courier_account_id,omitempty"`                 // 快递账户 ID（co_id）
	DispatchNote     string         `gorm:"type:varchar(255)" json:"dispatch_note,omitempty"`          // 派单备注
	DispatchedAt     *time.Time     `gorm:"index" json:"dispatched_at,omitempty"`                      // 派单时间
	IssueDate        *time.Time     `json:"issue_date,omitempty"`                                      // 开单日期
	DueDate          *time.Time     `json:"due_date,omitempty"`                                        // 到期日期
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
