package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/courier"
	"github.com/dispatch-next/internal/courier/fardar"
	"github.com/dispatch-next/internal/courier/koombiyo"
	"github.com/dispatch-next/internal/courier/royalexpress"
	"github.com/dispatch-next/internal/courier/transexpress"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/queue"
	"github.com/dispatch-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DispatchOptions 发货编排参数
type DispatchOptions struct {
	RequestTimeout    time.Duration // 供应商网关超时
	DefaultWeight     float64       // 未知重量时的默认包裹重量
	DescriptionMaxLen int           // 包裹描述长度上限
}

func (o *DispatchOptions) normalize() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.DefaultWeight <= 0 {
		o.DefaultWeight = 1.0
	}
	if o.DescriptionMaxLen <= 0 {
		o.DescriptionMaxLen = 250
	}
}

// AdapterFactory 按快递账户构造网关适配器
type AdapterFactory func(account *models.CourierAccount, timeout time.Duration) (courier.Adapter, error)

// DispatchService 发货编排服务
type DispatchService struct {
	orderRepo    repository.OrderRepository
	trackingRepo repository.TrackingRepository
	accountRepo  repository.CourierAccountRepository
	cityRepo     repository.CityRepository
	userLogRepo  repository.UserLogRepository
	queueClient  *queue.Client
	opts         DispatchOptions
	newAdapter   AdapterFactory
}

// NewDispatchService 创建发货编排服务
func NewDispatchService(
	orderRepo repository.OrderRepository,
	trackingRepo repository.TrackingRepository,
	accountRepo repository.CourierAccountRepository,
	cityRepo repository.CityRepository,
	userLogRepo repository.UserLogRepository,
	queueClient *queue.Client,
	opts DispatchOptions,
) *DispatchService {
	opts.normalize()
	return &DispatchService{
		orderRepo:    orderRepo,
		trackingRepo: trackingRepo,
		accountRepo:  accountRepo,
		cityRepo:     cityRepo,
		userLogRepo:  userLogRepo,
		queueClient:  queueClient,
		opts:         opts,
		newAdapter:   newVendorAdapter,
	}
}

// SetAdapterFactory 替换网关适配器工厂（测试注入用）
func (s *DispatchService) SetAdapterFactory(factory AdapterFactory) {
	if factory != nil {
		s.newAdapter = factory
	}
}

// DispatchInput 单笔发货输入
type DispatchInput struct {
	OrderID      uint
	CourierID    uint // 0 表示使用租户默认账户
	DispatchNote string
	ActingUserID uint
	TenantScope  uint // 调用方租户范围，0 表示不限（总管理员）
}

// DispatchResult 单笔发货结果
type DispatchResult struct {
	OrderID          uint   `json:"order_id"`
	OrderNo          string `json:"order_no"`
	TrackingNumber   string `json:"tracking_number"`
	CourierID        uint   `json:"courier_id"`
	CourierAccountID uint   `json:"co_id"`
	CourierName      string `json:"courier_name"`
	TenantID         uint   `json:"tenant_id"`
}

// DispatchSingle 单笔发货。校验、取号、网关调用、订单与订单项状态迁移
// 和审计写入在一个事务内完成，任何一步失败整体回滚。
func (s *DispatchService) DispatchSingle(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	if input.OrderID == 0 || input.ActingUserID == 0 {
		return nil, ErrDispatchInvalid
	}

	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	// 越权访问与不存在同样返回未找到，不暴露他租户订单
	if input.TenantScope != 0 && order.TenantID != input.TenantScope {
		return nil, ErrOrderNotFound
	}
	if !isDispatchable(order.Status) {
		return nil, ErrOrderNotDispatchable
	}

	// 租户从订单解析，不信任调用方传入的租户标识
	account, err := s.resolveAccount(input.CourierID, order.TenantID)
	if err != nil {
		s.recordFailure(input.ActingUserID, order.TenantID, order.OrderNo, err)
		return nil, err
	}

	var result *DispatchResult
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		outcome, txErr := s.dispatchOrderTx(ctx, tx, order, account, input.DispatchNote, input.ActingUserID, time.Now(), nil)
		if txErr != nil {
			return txErr
		}
		result = outcome
		return nil
	})
	if err != nil {
		s.recordFailure(input.ActingUserID, order.TenantID, order.OrderNo, err)
		return nil, err
	}

	s.notifyDispatched(order.TenantID, result)
	return result, nil
}

// dispatchOrderTx 在事务内完成一笔订单的取号、网关调用与状态迁移。
// 单笔与批量发货共用此路径；批量路径传入整批锁定读出的预分配运单行。
func (s *DispatchService) dispatchOrderTx(ctx context.Context, tx *gorm.DB, order *models.Order, account *models.CourierAccount, note string, actingUserID uint, now time.Time, preallocated *models.TrackingNumber) (*DispatchResult, error) {
	trackingRepo := s.trackingRepo.WithTx(tx)

	allocate := func() (*models.TrackingNumber, error) {
		if preallocated != nil {
			return preallocated, nil
		}
		return trackingRepo.AllocateOne(order.TenantID, account.CourierID)
	}

	var trackingNumber string
	var pooledID string

	switch account.Mode {
	case models.ModeInternal:
		row, err := allocate()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, ErrNoTrackingAvailable
		}
		trackingNumber = row.TrackingID
		pooledID = row.TrackingID

	case models.ModeNewAPI, models.ModeExistingAPI:
		request, err := s.buildGatewayRequest(order, account)
		if err != nil {
			return nil, err
		}
		if account.Mode == models.ModeExistingAPI {
			row, err := allocate()
			if err != nil {
				return nil, err
			}
			if row == nil {
				return nil, ErrNoTrackingAvailable
			}
			request.WaybillID = row.TrackingID
			request.Existing = true
			pooledID = row.TrackingID
		}

		adapter, err := s.newAdapter(account, s.opts.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCourierInvalid, err)
		}
		gwResult := adapter.Dispatch(ctx, *request)
		if !gwResult.Success {
			return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, gwResult.Message)
		}
		trackingNumber = gwResult.TrackingNumber

	default:
		return nil, ErrCourierInvalid
	}

	if pooledID != "" {
		affected, err := trackingRepo.MarkUsed(pooledID, order.TenantID, order.ID, now)
		if err != nil {
			return nil, err
		}
		if !affected {
			return nil, ErrTrackingRaceLost
		}
	}

	orderRepo := s.orderRepo.WithTx(tx)
	affected, err := orderRepo.MarkDispatched(order.ID, repository.DispatchUpdate{
		CourierID:        account.CourierID,
		CourierAccountID: account.ID,
		TrackingNumber:   trackingNumber,
		DispatchNote:     note,
		DispatchedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	if !affected {
		return nil, ErrOrderConcurrentlyModified
	}
	if err := orderRepo.UpdateItemsStatus(order.ID, constants.OrderStatusDispatch); err != nil {
		return nil, err
	}

	orderNo := order.OrderNo
	if err := s.userLogRepo.WithTx(tx).Create(&models.UserLog{
		UserID:   actingUserID,
		TenantID: order.TenantID,
		Action:   constants.AuditActionOrderDispatch,
		OrderNo:  &orderNo,
		Details:  fmt.Sprintf("tracking=%s co_id=%d courier_id=%d", trackingNumber, account.ID, account.CourierID),
	}); err != nil {
		return nil, err
	}

	return &DispatchResult{
		OrderID:          order.ID,
		OrderNo:          order.OrderNo,
		TrackingNumber:   trackingNumber,
		CourierID:        account.CourierID,
		CourierAccountID: account.ID,
		CourierName:      account.Name,
		TenantID:         order.TenantID,
	}, nil
}

// resolveAccount 解析目标快递账户：显式指定走所有权校验，
// 未指定取租户默认账户。停用与跨租户都是硬拒绝。
func (s *DispatchService) resolveAccount(courierID, tenantID uint) (*models.CourierAccount, error) {
	if courierID == 0 {
		account, err := s.accountRepo.GetActiveDefault(tenantID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrCourierInvalid
		}
		return account, nil
	}

	account, err := s.accountRepo.GetByCourierForTenant(courierID, tenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// 供应商存在但归属其他租户时返回归属不符，彻底不存在才是无效
		foreign, err := s.accountRepo.GetByCourier(courierID)
		if err != nil {
			return nil, err
		}
		if foreign != nil {
			return nil, ErrCourierTenantMismatch
		}
		return nil, ErrCourierInvalid
	}
	if account.Status != constants.CourierAccountStatusActive {
		return nil, ErrCourierInactive
	}
	return account, nil
}

// buildGatewayRequest 组装标准化网关请求。城市解析是前置条件，
// 无法解析时直接失败，不浪费一次外部调用。
func (s *DispatchService) buildGatewayRequest(order *models.Order, account *models.CourierAccount) (*courier.Request, error) {
	if order.CityID == nil {
		return nil, ErrCityUnresolved
	}
	city, err := s.cityRepo.GetByID(*order.CityID)
	if err != nil {
		return nil, err
	}
	if city == nil {
		return nil, ErrCityUnresolved
	}

	request := &courier.Request{
		OrderNo:      order.OrderNo,
		CustomerName: order.CustomerName,
		Phone1:       order.Phone1,
		Phone2:       order.Phone2,
		Address:      joinAddress(order.AddressLine1, order.AddressLine2),
		CityName:     city.Name,
		StateName:    city.StateName,
		Weight:       order.Weight,
		Description:  buildParcelDescription(order, s.opts.DescriptionMaxLen),
		CODAmount:    codAmount(order),
	}
	if request.Weight <= 0 {
		request.Weight = s.opts.DefaultWeight
	}
	if city.DistrictID != nil {
		request.DistrictID = *city.DistrictID
	}

	switch account.Vendor {
	case constants.CourierVendorKoombiyo:
		if request.DistrictID == 0 {
			return nil, ErrCityUnresolved
		}
	case constants.CourierVendorRoyalExpress:
		if request.StateName == "" {
			return nil, ErrCityUnresolved
		}
	}
	return request, nil
}

// recordFailure 失败审计在事务回滚后尽力写入，写入失败只告警
func (s *DispatchService) recordFailure(actingUserID, tenantID uint, orderNo string, cause error) {
	entry := &models.UserLog{
		UserID:   actingUserID,
		TenantID: tenantID,
		Action:   constants.AuditActionOrderDispatchFailed,
		OrderNo:  &orderNo,
		Details:  cause.Error(),
	}
	if err := s.userLogRepo.Create(entry); err != nil {
		logger.Warnw("dispatch_failure_audit_write_failed",
			"order_no", orderNo,
			"tenant_id", tenantID,
			"cause", cause,
			"error", err,
		)
	}
}

// notifyDispatched 发货提交后推送租户回调任务，失败不影响发货结果
func (s *DispatchService) notifyDispatched(tenantID uint, result *DispatchResult) {
	if s.queueClient == nil || result == nil {
		return
	}
	if err := s.queueClient.EnqueueDispatchWebhook(queue.DispatchWebhookPayload{
		TenantID:       tenantID,
		OrderNo:        result.OrderNo,
		TrackingNumber: result.TrackingNumber,
		Courier:        result.CourierName,
		DispatchedAt:   time.Now(),
	}); err != nil {
		logger.Warnw("dispatch_enqueue_webhook_failed",
			"order_no", result.OrderNo,
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

// isDispatchable 订单是否处于可发货状态
func isDispatchable(status string) bool {
	return status == constants.OrderStatusPending || status == constants.OrderStatusDone
}

// newVendorAdapter 按账户供应商构造网关适配器
func newVendorAdapter(account *models.CourierAccount, timeout time.Duration) (courier.Adapter, error) {
	switch account.Vendor {
	case constants.CourierVendorFardar:
		return fardar.New(fardar.Config{BaseURL: account.BaseURL, APIKey: account.APIKey, Timeout: timeout})
	case constants.CourierVendorKoombiyo:
		return koombiyo.New(koombiyo.Config{BaseURL: account.BaseURL, APIKey: account.APIKey, Timeout: timeout})
	case constants.CourierVendorTransExpress:
		return transexpress.New(transexpress.Config{BaseURL: account.BaseURL, APIKey: account.APIKey, Timeout: timeout})
	case constants.CourierVendorRoyalExpress:
		return royalexpress.New(royalexpress.Config{BaseURL: account.BaseURL, APIKey: account.APIKey, ClientID: account.ClientID, Timeout: timeout})
	default:
		return nil, fmt.Errorf("unknown courier vendor %q", account.Vendor)
	}
}

// buildParcelDescription 生成包裹描述并按供应商长度限制截断
func buildParcelDescription(order *models.Order, maxLen int) string {
	description := fmt.Sprintf("Order #%s - %d items", order.OrderNo, len(order.Items))
	if maxLen > 0 && len(description) > maxLen {
		description = description[:maxLen]
	}
	return description
}

// codAmount 已付订单货到付款金额为 0，否则为订单总额
func codAmount(order *models.Order) decimal.Decimal {
	if order.PayStatus == constants.PayStatusPaid {
		return decimal.Zero
	}
	return order.TotalAmount.Decimal
}

func joinAddress(line1, line2 string) string {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if line2 == "" {
		return line1
	}
	if line1 == "" {
		return line2
	}
	return line1 + ", " + line2
}
