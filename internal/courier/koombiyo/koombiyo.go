package koombiyo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/courier"
)

var (
	ErrConfigInvalid = errors.New("koombiyo config invalid")
)

// WaybillWidth Koombiyo 运单号固定宽度，池中原始编号发送前需整形
const WaybillWidth = 8

// Config Koombiyo 配置
type Config struct {
	BaseURL string        // 网关地址
	APIKey  string        // API key，随表单提交
	Timeout time.Duration // 请求超时
}

// Gateway Koombiyo 网关（仅支持登记已有运单，表单编码提交）
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
	return constants.CourierVendorKoombiyo
}

// Dispatch 登记预分配运单。Koombiyo 要求目的区域 ID 与 8 位运单号。
func (g *Gateway) Dispatch(ctx context.Context, req courier.Request) courier.Result {
	if !req.Existing || req.WaybillID == "" {
		return courier.VendorRejection("", "koombiyo requires a pre-allocated waybill id")
	}
	if req.DistrictID == 0 {
		return courier.VendorRejection("", "koombiyo requires a destination district id")
	}

	form := url.Values{}
	form.Set("apikey", g.cfg.APIKey)
	form.Set("orderWaybillid", courier.FormatWaybill(req.WaybillID, WaybillWidth))
	form.Set("orderNo", req.OrderNo)
	form.Set("receiver", req.CustomerName)
	form.Set("receiverPhone", req.Phone1)
	form.Set("receiverPhone2", req.Phone2)
	form.Set("address", req.Address)
	form.Set("description", req.Description)
	form.Set("codAmount", req.CODAmount.StringFixed(2))
	form.Set("districtId", fmt.Sprintf("%d", req.DistrictID))
	form.Set("city", req.CityName)

	respBytes, err := g.postForm(ctx, "/apiv2/AddOrders", form)
	if err != nil {
		return courier.NetworkFailure(constants.CourierVendorKoombiyo, err)
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return courier.NetworkFailure(constants.CourierVendorKoombiyo, fmt.Errorf("malformed response: %v", err))
	}

	if !strings.EqualFold(resp.Status, "success") {
		message := strings.TrimSpace(resp.Message)
		if message == "" {
			message = "order rejected"
		}
		return courier.VendorRejection(resp.Status, "koombiyo rejected: "+message)
	}
	// 登记模式运单号即池中原始编号，供应商不另行生成
	return courier.Accepted(req.WaybillID, resp.Status)
}

func (g *Gateway) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

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
