package transexpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/courier"
)

var (
	ErrConfigInvalid = errors.New("transexpress config invalid")
)

// 新运单接口状态码表
const (
	NewCodeAccepted     = 100
	NewCodeInvalidCity  = 101
	NewCodeInvalidPhone = 102
	NewCodeWeightLimit  = 103
)

// 登记已有运单接口状态码表，与新运单接口编号不同，不得混用
const (
	ExistingCodeAccepted       = 200
	ExistingCodeAlreadyUsed    = 201
	ExistingCodeInvalidWaybill = 202
	ExistingCodeInvalidCity    = 203
)

// TrackingPrefix 兜底运单号前缀
const TrackingPrefix = "TRX"

// trackingPattern 新运单响应把运单号埋在自由文本里，如
// "Parcel created successfully. Tracking No: CX1234567890"
var trackingPattern = regexp.MustCompile(`(?i)tracking\s*no[.:]?\s*([A-Z0-9-]+)`)

// Config TransExpress 配置
type Config struct {
	BaseURL string        // 网关地址
	APIKey  string        // API key，随请求头提交
	Timeout time.Duration // 请求超时
}

// Gateway TransExpress 网关，同时支持新运单与登记已有运单两种模式
type Gateway struct {
	cfg    Config
	client *http.Client
}

// New 创建网关
func New(cfg Config) (*Gateway, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrConfigInvalid)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrConfigInvalid)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Vendor 供应商标识
func (g *Gateway) Vendor() string {
	return constants.CourierVendorTransExpress
}

// Dispatch 按请求模式走新运单或登记接口，两条路径使用各自的状态码表。
func (g *Gateway) Dispatch(ctx context.Context, req courier.Request) courier.Result {
	if req.Existing {
		return g.registerExisting(ctx, req)
	}
	return g.createNew(ctx, req)
}

func (g *Gateway) createNew(ctx context.Context, req courier.Request) courier.Result {
	payload := map[string]interface{}{
		"order_no":    req.OrderNo,
		"client_name": req.CustomerName,
		"phone_no":    req.Phone1,
		"phone_no2":   req.Phone2,
		"address":     req.Address,
		"city":        req.CityName,
		"weight":      req.Weight,
		"description": req.Description,
		"cod":         req.CODAmount.StringFixed(2),
	}

	respBytes, err := g.postJSON(ctx, "/api/parcel/create", payload)
	if err != nil {
		return courier.NetworkFailure(constants.CourierVendorTransExpress, err)
	}

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return courier.NetworkFailure(constants.CourierVendorTransExpress, fmt.Errorf("malformed response: %v", err))
	}

	code := fmt.Sprintf("%d", resp.Code)
	if resp.Code != NewCodeAccepted {
		return courier.VendorRejection(code, newStatusMessage(resp.Code, resp.Message))
	}

	trackingNumber := ExtractTracking(resp.Message)
	if trackingNumber == "" {
		trackingNumber = courier.FallbackTrackingID(TrackingPrefix, req.OrderNo, time.Now())
	}
	return courier.Accepted(trackingNumber, code)
}

func (g *Gateway) registerExisting(ctx context.Context, req courier.Request) courier.Result {
	if req.WaybillID == "" {
		return courier.VendorRejection("", "transexpress register requires a pre-allocated waybill id")
	}

	payload := map[string]interface{}{
		"waybill_no":  req.WaybillID,
		"order_no":    req.OrderNo,
		"client_name": req.CustomerName,
		"phone_no":    req.Phone1,
		"phone_no2":   req.Phone2,
		"address":     req.Address,
		"city":        req.CityName,
		"weight":      req.Weight,
		"description": req.Description,
		"cod":         req.CODAmount.StringFixed(2),
	}

	respBytes, err := g.postJSON(ctx, "/api/parcel/register", payload)
	if err != nil {
		return courier.NetworkFailure(constants.CourierVendorTransExpress, err)
	}

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return courier.NetworkFailure(constants.CourierVendorTransExpress, fmt.Errorf("malformed response: %v", err))
	}

	code := fmt.Sprintf("%d", resp.Code)
	if resp.Code != ExistingCodeAccepted {
		return courier.VendorRejection(code, existingStatusMessage(resp.Code, resp.Message))
	}
	return courier.Accepted(req.WaybillID, code)
}

// ExtractTracking 从自由文本响应中解析运单号，解析失败返回空串
func ExtractTracking(message string) string {
	matches := trackingPattern.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	return strings.TrimSpace(matches[1])
}

func newStatusMessage(code int, fallback string) string {
	switch code {
	case NewCodeInvalidCity:
		return "transexpress rejected: destination city not serviceable"
	case NewCodeInvalidPhone:
		return "transexpress rejected: invalid receiver phone number"
	case NewCodeWeightLimit:
		return "transexpress rejected: parcel weight exceeds limit"
	}
	if fallback != "" {
		return "transexpress rejected: " + fallback
	}
	return fmt.Sprintf("transexpress rejected with code %d", code)
}

func existingStatusMessage(code int, fallback string) string {
	switch code {
	case ExistingCodeAlreadyUsed:
		return "transexpress rejected: waybill already registered"
	case ExistingCodeInvalidWaybill:
		return "transexpress rejected: waybill format invalid"
	case ExistingCodeInvalidCity:
		return "transexpress rejected: destination city not serviceable"
	}
	if fallback != "" {
		return "transexpress rejected: " + fallback
	}
	return fmt.Sprintf("transexpress rejected with code %d", code)
}

func (g *Gateway) postJSON(ctx context.Context, path string, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
