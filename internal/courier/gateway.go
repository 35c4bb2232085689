package courier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Request 标准化发货请求，由编排器组装后交给各供应商网关。
// 城市/区域解析是编排器的前置条件，网关不做地址校验。
type Request struct {
	OrderNo      string          // 订单号
	CustomerName string          // 收件人姓名
	Phone1       string          // 联系电话
	Phone2       string          // 备用电话（可空）
	Address      string          // 完整地址（地址行拼接）
	CityName     string          // 目的城市
	DistrictID   uint            // 目的区域 ID（Koombiyo 必填）
	StateName    string          // 目的省份（RoyalExpress 必填）
	Weight       float64         // 包裹重量（kg），未知时取默认值
	Description  string          // 包裹描述，已按供应商长度限制截断
	CODAmount    decimal.Decimal // 货到付款金额，已付订单为 0
	WaybillID    string          // 登记模式下预分配的运单号
	Existing     bool            // true 表示登记已有运单而非申请新运单
}

// Result 网关统一结果。业务拒绝与网络故障都以 Success=false 返回，
// Transient 区分两者：网络层失败可稍后重试，业务拒绝需要先修数据。
type Result struct {
	Success          bool
	TrackingNumber   string
	VendorStatusCode string
	Message          string
	Transient        bool
}

// Adapter 供应商网关适配器接口
type Adapter interface {
	Vendor() string
	Dispatch(ctx context.Context, req Request) Result
}

// NetworkFailure 构造网络层失败结果（超时、非 2xx、响应不可解析）
func NetworkFailure(vendor string, err error) Result {
	return Result{
		Success:   false,
		Message:   fmt.Sprintf("%s gateway unreachable: %v", vendor, err),
		Transient: true,
	}
}

// VendorRejection 构造供应商业务拒绝结果
func VendorRejection(code, message string) Result {
	return Result{
		Success:          false,
		VendorStatusCode: code,
		Message:          message,
	}
}

// Accepted 构造成功结果
func Accepted(trackingNumber, code string) Result {
	return Result{
		Success:          true,
		TrackingNumber:   trackingNumber,
		VendorStatusCode: code,
	}
}

// FormatWaybill 将运单池原始编号整形为供应商要求的固定宽度。
// 超宽时保留末尾 width 位，不足时左侧补零。
func FormatWaybill(raw string, width int) string {
	raw = strings.TrimSpace(raw)
	if width <= 0 || len(raw) == width {
		return raw
	}
	if len(raw) > width {
		return raw[len(raw)-width:]
	}
	return strings.Repeat("0", width-len(raw)) + raw
}

// FallbackTrackingID 生成确定性兜底运单号，用于新运单模式下
// 供应商响应缺失运单号时，保证发货不会以空运单号收尾。
func FallbackTrackingID(prefix, orderNo string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s-%s-%s", prefix, orderNo, at.Format("20060102"))
}
