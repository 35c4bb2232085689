package constants

// 订单状态常量
const (
	OrderStatusPending        = "pending"
	OrderStatusDispatch       = "dispatch"
	OrderStatusDone           = "done"
	OrderStatusCancel         = "cancel"
	OrderStatusReturnComplete = "return_complete"
	OrderStatusReturnHandover = "return_handover"
)

// 支付状态常量
const (
	PayStatusPaid    = "paid"
	PayStatusUnpaid  = "unpaid"
	PayStatusPartial = "partial"
)

// 运单号状态常量
const (
	TrackingStatusUnused = "unused"
	TrackingStatusUsed   = "used"
)

// 快递账户状态常量
const (
	CourierAccountStatusActive   = "active"
	CourierAccountStatusInactive = "inactive"
)

// 快递供应商常量（网关适配器按此选择）
const (
	CourierVendorFardar       = "fardar"
	CourierVendorKoombiyo     = "koombiyo"
	CourierVendorTransExpress = "transexpress"
	CourierVendorRoyalExpress = "royalexpress"
)

// 租户状态常量
const (
	TenantStatusActive   = "active"
	TenantStatusDisabled = "disabled"
)

// 后台账号状态常量
const (
	AdminStatusActive   = "active"
	AdminStatusDisabled = "disabled"
)

// 审计动作常量
const (
	AuditActionOrderDispatch           = "order_dispatch"
	AuditActionOrderDispatchFailed     = "order_dispatch_failed"
	AuditActionBulkOrderDispatch       = "bulk_order_dispatch"
	AuditActionBulkOrderDispatchFailed = "bulk_order_dispatch_failed"
	AuditActionTrackingProvision       = "tracking_provision"
	AuditActionCourierAccountChange    = "courier_account_change"
	AuditActionTenantChange            = "tenant_change"
	AuditActionAdminLogin              = "admin_login"
)

// 异步任务常量
const (
	TaskDispatchWebhook = "dispatch:webhook"
	QueueDefault        = "default"
)

// 授权角色常量
const (
	RoleMainAdmin       = "main_admin"
	RoleTenantAdmin     = "tenant_admin"
	RoleReadonlyAuditor = "readonly_auditor"
)
