package queue

import (
	"encoding/json"
	"time"

	"github.com/dispatch-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskDispatchWebhook 发货回调通知任务
	TaskDispatchWebhook = constants.TaskDispatchWebhook
)

// DispatchWebhookPayload 发货回调任务载荷
type DispatchWebhookPayload struct {
	TenantID       uint      `json:"tenant_id"`
	OrderNo        string    `json:"order_no"`
	TrackingNumber string    `json:"tracking_number"`
	Courier        string    `json:"courier"`
	DispatchedAt   time.Time `json:"dispatched_at"`
}

// NewDispatchWebhookTask 创建发货回调任务
func NewDispatchWebhookTask(payload DispatchWebhookPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchWebhook, body), nil
}
