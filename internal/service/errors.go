package service

import "errors"

// 业务错误定义，HTTP 层据此映射响应码
var (
	// 订单
	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderFetchFailed          = errors.New("order fetch failed")
	ErrOrderNotDispatchable      = errors.New("order not dispatchable")
	ErrOrderConcurrentlyModified = errors.New("order concurrently modified")

	// 快递账户
	ErrCourierInvalid        = errors.New("courier account invalid")
	ErrCourierInactive       = errors.New("courier account inactive")
	ErrCourierTenantMismatch = errors.New("courier account tenant mismatch")
	ErrCourierAccountExists  = errors.New("courier account already exists")

	// 运单池
	ErrNoTrackingAvailable  = errors.New("no tracking number available")
	ErrInsufficientTracking = errors.New("insufficient tracking numbers")
	ErrTrackingRaceLost     = errors.New("tracking number race lost")
	ErrTrackingInputInvalid = errors.New("tracking import input invalid")
	ErrTrackingImportFailed = errors.New("tracking import failed")

	// 发货
	ErrDispatchInvalid  = errors.New("dispatch input invalid")
	ErrDispatchFailed   = errors.New("dispatch failed")
	ErrMixedTenantBatch = errors.New("orders belong to multiple tenants")
	ErrEmptyBatch       = errors.New("bulk dispatch requires at least one order")
	ErrCityUnresolved   = errors.New("destination city unresolved")
	ErrGatewayRejected  = errors.New("courier gateway rejected dispatch")

	// 租户
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInvalid  = errors.New("tenant input invalid")
	ErrTenantDisabled = errors.New("tenant disabled")
	ErrTenantExists   = errors.New("tenant already exists")

	// 认证
	ErrAdminNotFound       = errors.New("admin not found")
	ErrCredentialsInvalid  = errors.New("invalid username or password")
	ErrAdminDisabled       = errors.New("admin disabled")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrLoginRateLimited    = errors.New("too many login attempts")
	ErrDispatchRateLimited = errors.New("too many dispatch requests")
)
