package models

import "time"

// Tenant 租户表
// 说明：租户是系统的隔离边界，订单、快递账户、运单池均归属于某一个租户。
type Tenant struct {
	ID         uint      `gorm:"primarykey" json:"id"`                            // 主键
	Name       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"` // 租户名称
	Status     string    `gorm:"type:varchar(20);index;not null" json:"status"`   // 状态（active/disabled）
	WebhookURL string    `gorm:"type:varchar(255)" json:"webhook_url,omitempty"`  // 发货回调地址（可空）
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`                         // 更新时间
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}
