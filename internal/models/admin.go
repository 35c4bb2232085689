package models

import "time"

// Admin 后台账号表
// 说明：TenantID 为 0 表示总管理员（不限租户），否则为该租户的操作员。
type Admin struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                                   // 主键
	Username           string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"` // 用户名
	PasswordHash       string     `gorm:"type:varchar(200);not null" json:"-"`                    // 密码哈希
	TenantID           uint       `gorm:"index;not null;default:0" json:"tenant_id"`              // 所属租户（0=总管理员）
	IsSuper            bool       `gorm:"not null;default:false" json:"is_super"`                 // 是否超级管理员
	Status             string     `gorm:"type:varchar(20);index;not null" json:"status"`          // 状态
	TokenVersion       int64      `gorm:"not null;default:0" json:"-"`                            // 令牌版本（整体吊销用）
	TokenInvalidBefore *time.Time `json:"-"`                                                      // 早于该时间签发的令牌失效
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`                                // 最近登录时间
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt          time.Time  `gorm:"index" json:"updated_at"`                                // 更新时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// IsMainAdmin 是否总管理员
func (a *Admin) IsMainAdmin() bool {
	return a != nil && a.TenantID == 0
}
