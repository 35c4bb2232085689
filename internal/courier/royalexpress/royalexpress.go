package royalexpress

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
	ErrConfigInvalid = errors.New("royalexpress config invalid")
)

// 供应商状态码常量（字符串编码）
const (
	CodeSuccess        = "SUCCESS"
	CodeInvalidState   = "INVALID_STATE"
	CodeInvalidPhone   = "INVALID_PHONE"
	CodeInvalidWaybill = "INVALID_WAYBILL"
	CodeDuplicate      = "DUPLICATE_WAYBILL"
)

// Config Royal Express 配置，认证需要 api key 与 client id 两个头
type Config struct {
	BaseURL  string        // 网关地址
	APIKey   string        // X-Api-Key
	ClientID string        // X-Client-Id
	Timeout  time.Duration // 请求超时
}

// Gateway Royal Express 网关（仅支持登记已有运单，目的地按省份组织）
type Gateway struct {
	cfg    Config
	client *http.Client
}

// New 创建网关
func New(cfg Config) (*Gateway, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrConfigInvalid)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrConfigInvalid)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrConfigInvalid)
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
	return constants.CourierVendorRoyalExpress
}

// Dispatch 登记预分配运单。Royal Express 要求目的省份名。
func (g *Gateway) Dispatch(ctx context.Context, req courier.Request) courier.Result {
	if !req.Existing || req.WaybillID == "" {
		return courier.VendorRejection("", "royalexpress requires a pre-allocated waybill id")
	}
	if req.StateName == "" {
		return courier.VendorRejection("", "royalexpress requires a destination state")
	}

	payload := map[string]interface{}{
		"waybill":       req.WaybillID,
		"reference":     req.OrderNo,
		"receiver_name": req.CustomerName,
		"phone":         req.Phone1,
		"phone_alt":     req.Phone2,
		"address":       req.Address,
		"city":          req.CityName,
		"state":         req.StateName,
		"weight":        req.Weight,
		"description":   req.Description,
		"cod_amount":    req.CODAmount.StringFixed(2),
	}

	respBytes, err := g.postJSON(ctx, "/api/v1/shipments", payload)
	if err != nil {
		return courier.NetworkFailure(constants.CourierVendorRoyalExpress, err)
	}

	var resp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return courier.NetworkFailure(constants.CourierVendorRoyalExpress, fmt.Errorf("malformed response: %v", err))
	}

	if !strings.EqualFold(resp.Code, CodeSuccess) {
		return courier.VendorRejection(resp.Code, statusMessage(resp.Code, resp.Message))
	}
	return courier.Accepted(req.WaybillID, resp.Code)
}

func statusMessage(code, fallback string) string {
	switch strings.ToUpper(code) {
	case CodeInvalidState:
		return "royalexpress rejected: destination state not serviceable"
	case CodeInvalidPhone:
		return "royalexpress rejected: invalid receiver phone number"
	case CodeInvalidWaybill:
		return "royalexpress rejected: waybill format invalid"
	case CodeDuplicate:
		return "royalexpress rejected: waybill already registered"
	}
	if fallback != "" {
		return "royalexpress rejected: " + fallback
	}
	return "royalexpress rejected with code " + code
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
	req.Header.Set("X-Client-Id", g.cfg.ClientID)

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
