package models

import "time"

// City 城市表
// 说明：派单前必须能解析订单目的城市，部分供应商还要求区（district）或省（state）。
type City struct {
	ID         uint      `gorm:"primarykey" json:"id"`                          // 主键
	Name       string    `gorm:"type:varchar(100);index;not null" json:"name"`  // 城市名称
	DistrictID *uint     `gorm:"index" json:"district_id,omitempty"`            // 区 ID（Koombiyo 必填）
	StateName  string    `gorm:"type:varchar(100)" json:"state_name,omitempty"` // 省/州名称（RoyalExpress 必填）
	CreatedAt  time.Time `json:"created_at"`                                    // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (City) TableName() string {
	return "cities"
}
