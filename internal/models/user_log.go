package models

import "time"

// UserLog 操作审计日志表（只追加，不更新不删除）
// 说明：记录派单及后台关键操作，支持按用户、动作与时间范围检索。
type UserLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`                           // 主键
	UserID    uint      `gorm:"index;not null" json:"user_id"`                  // 操作人（后台账号 ID）
	TenantID  uint      `gorm:"index;not null;default:0" json:"tenant_id"`      // 关联租户（0=全局）
	Action    string    `gorm:"type:varchar(64);index;not null" json:"action"`  // 动作标识
	OrderNo   *string   `gorm:"type:varchar(64);index" json:"order_no"`         // 关联订单编号（批量汇总为空）
	BatchID   string    `gorm:"type:varchar(64);index" json:"batch_id,omitempty"` // 批量派单批次 ID
	Details   string    `gorm:"type:text" json:"details"`                       // 详情文本
	CreatedAt time.Time `gorm:"index" json:"created_at"`                        // 创建时间
}

// TableName 指定表名
func (UserLog) TableName() string {
	return "user_logs"
}
