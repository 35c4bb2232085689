package fardar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/courier"
)

var (
	ErrConfigInvalid = errors.New("fardar config invalid")
)

// 供应商状态码常量（新运单接口）
const (
	CodeAccepted     = 200
	CodeInvalidCity  = 301
	CodeInvalidPhone = 302
	CodeDuplicate    = 303
	CodeWeightLimit  = 304
)

// TrackingPrefix 兜底运单号前缀
const TrackingPrefix = "FDE"

// Config Fardar Express 配置
type Config struct {
	BaseURL string        // 网关地址
	APIKey  string        // Bearer 令牌
	Timeout time.Duration // 请求超时
}

// Gateway Fardar Express 网关（仅支持新运单模式，运单号由供应商生成）
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
	return constants.CourierVendorFardar
}

// Dispatch 创建新运单。响应缺失运单号时回退到确定性兜底编号。
func (g *Gateway) Dispatch(ctx context.Context, req courier.Request) courier.Result {
	if req.Existing {
		return courier.VendorRejection("", "fardar does not support registering existing waybills")
	}

	payload := map[string]interface{}{
		"order_id":      req.OrderNo,
		"receiver_name": req.CustomerName,
		"phone":         req.Phone1,
		"address":       req.Address,
		"city":          req.CityName,
		"weight":        req.Weight,
		"description":   req.Description,
		"cod_amount":    req.CODAmount.StringFixed(2),
	}
	if req.Phone2 != "" {
		payload["alt_phone"] = req.Phone2
	}

	respBytes, err := g.postJSON(ctx, "/api/v1/parcels", payload)
	if err != nil {
		return courier.NetworkFailure(constants.CourierVendorFardar, err)
	}

	var resp struct {
		Status    int    `json:"status"`
		WaybillNo string `json:"waybill_no"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return courier.NetworkFailure(constants.CourierVendorFardar, fmt.Errorf("malformed response: %v", err))
	}

	code := fmt.Sprintf("%d", resp.Status)
	if resp.Status != CodeAccepted {
		return courier.VendorRejection(code, statusMessage(resp.Status, resp.Message))
	}

	trackingNumber := strings.TrimSpace(resp.WaybillNo)
	if trackingNumber == "" {
		trackingNumber = courier.FallbackTrackingID(TrackingPrefix, req.OrderNo, time.Now())
	}
	return courier.Accepted(trackingNumber, code)
}

// statusMessage 新运单接口状态码表
func statusMessage(status int, fallback string) string {
	switch status {
	case CodeInvalidCity:
		return "fardar rejected: destination city not serviceable"
	case CodeInvalidPhone:
		return "fardar rejected: invalid receiver phone number"
	case CodeDuplicate:
		return "fardar rejected: duplicate order reference"
	case CodeWeightLimit:
		return "fardar rejected: parcel weight exceeds limit"
	}
	if fallback != "" {
		return "fardar rejected: " + fallback
	}
	return fmt.Sprintf("fardar rejected with status %d", status)
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
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

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
