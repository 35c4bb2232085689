package models

import "time"

// IntegrationMode 快递对接方式
type IntegrationMode int

// 对接方式常量：数值同时作为默认账户选取时的优先级（升序优先）
const (
	ModeInternal    IntegrationMode = 1 // 内部运单池分配
	ModeNewAPI      IntegrationMode = 2 // 调供应商接口下新包裹（供应商返回运单号）
	ModeExistingAPI IntegrationMode = 3 // 携带池内运单号到供应商登记既有包裹
)

// Valid 判断对接方式是否合法
func (m IntegrationMode) Valid() bool {
	switch m {
	case ModeInternal, ModeNewAPI, ModeExistingAPI:
		return true
	default:
		return false
	}
}

// UsesPool 该对接方式是否消耗内部运单池
func (m IntegrationMode) UsesPool() bool {
	return m == ModeInternal || m == ModeExistingAPI
}

// CallsGateway 该对接方式是否调用供应商网关
func (m IntegrationMode) CallsGateway() bool {
	return m == ModeNewAPI || m == ModeExistingAPI
}

// String 返回对接方式名称
func (m IntegrationMode) String() string {
	switch m {
	case ModeInternal:
		return "internal"
	case ModeNewAPI:
		return "new_api"
	case ModeExistingAPI:
		return "existing_api"
	default:
		return "unknown"
	}
}

// CourierAccount 快递账户表（某租户在某供应商处的一套配置，即 co_id）
type CourierAccount struct {
	ID          uint            `gorm:"primarykey" json:"id"`                            // 主键（co_id）
	TenantID    uint            `gorm:"index;not null" json:"tenant_id"`                 // 所属租户
	CourierID   uint            `gorm:"index;not null" json:"courier_id"`                // 快递供应商内部 ID
	Vendor      string          `gorm:"type:varchar(32);index;not null" json:"vendor"`   // 供应商标识（选择网关适配器）
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`          // 展示名称
	Mode        IntegrationMode `gorm:"not null" json:"mode"`                            // 对接方式
	BaseURL     string          `gorm:"type:varchar(200)" json:"base_url,omitempty"`     // 供应商网关地址
	APIKey      string          `gorm:"type:varchar(200)" json:"-"`                      // API Key
	ClientID    string          `gorm:"type:varchar(100)" json:"-"`                      // Client ID
	OriginCity  string          `gorm:"type:varchar(100)" json:"origin_city,omitempty"`  // 发货城市（部分供应商要求）
	OriginState string          `gorm:"type:varchar(100)" json:"origin_state,omitempty"` // 发货省/州（部分供应商要求）
	Status      string          `gorm:"type:varchar(20);index;not null" json:"status"`   // 状态（active/inactive）
	IsDefault   bool            `gorm:"not null;default:false" json:"is_default"`        // 是否默认账户
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt   time.Time       `gorm:"index" json:"updated_at"`                         // 更新时间
}

// TableName 指定表名
func (CourierAccount) TableName() string {
	return "courier_accounts"
}
