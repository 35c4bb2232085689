package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/logger"
	"github.com/dispatch-next/internal/provider"
	"github.com/dispatch-next/internal/queue"

	"github.com/hibiken/asynq"
)

const webhookRequestTimeout = 10 * time.Second

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container

	httpClient *http.Client
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container:  c,
		httpClient: &http.Client{Timeout: webhookRequestTimeout},
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskDispatchWebhook, c.handleDispatchWebhook)
}

func (c *Consumer) handleDispatchWebhook(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_dispatch_webhook_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DispatchWebhookPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_dispatch_webhook_unmarshal_failed", "error", err)
		return err
	}
	if payload.TenantID == 0 || strings.TrimSpace(payload.OrderNo) == "" {
		logger.Debugw("worker_dispatch_webhook_skip_invalid_payload",
			"tenant_id", payload.TenantID,
			"order_no", payload.OrderNo,
		)
		return nil
	}
	tenant, err := c.TenantRepo.GetByID(payload.TenantID)
	if err != nil {
		logger.Warnw("worker_dispatch_webhook_fetch_tenant_failed", "tenant_id", payload.TenantID, "error", err)
		return err
	}
	if tenant == nil {
		logger.Debugw("worker_dispatch_webhook_skip_tenant_not_found", "tenant_id", payload.TenantID)
		return nil
	}
	if tenant.Status != constants.TenantStatusActive {
		logger.Debugw("worker_dispatch_webhook_skip_tenant_disabled",
			"tenant_id", tenant.ID,
			"tenant_status", tenant.Status,
		)
		return nil
	}
	endpoint := strings.TrimSpace(tenant.WebhookURL)
	if endpoint == "" {
		logger.Debugw("worker_dispatch_webhook_skip_empty_endpoint", "tenant_id", tenant.ID, "order_no", payload.OrderNo)
		return nil
	}
	if err := c.postWebhook(ctx, endpoint, payload); err != nil {
		logger.Warnw("worker_dispatch_webhook_post_failed",
			"tenant_id", tenant.ID,
			"order_no", payload.OrderNo,
			"endpoint", endpoint,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_dispatch_webhook_delivered",
		"tenant_id", tenant.ID,
		"order_no", payload.OrderNo,
		"tracking_number", payload.TrackingNumber,
	)
	return nil
}

func (c *Consumer) postWebhook(ctx context.Context, endpoint string, payload queue.DispatchWebhookPayload) error {
	body, err := json.Marshal(buildWebhookBody(payload))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// buildWebhookBody 构造回调请求体，时间统一为 RFC3339
func buildWebhookBody(payload queue.DispatchWebhookPayload) map[string]any {
	dispatchedAt := payload.DispatchedAt
	if dispatchedAt.IsZero() {
		dispatchedAt = time.Now()
	}
	return map[string]any{
		"event":           "order.dispatched",
		"order_no":        payload.OrderNo,
		"tracking_number": payload.TrackingNumber,
		"courier":         payload.Courier,
		"dispatched_at":   dispatchedAt.UTC().Format(time.RFC3339),
	}
}
