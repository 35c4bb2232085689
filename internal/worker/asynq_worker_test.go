package worker

import (
	"testing"
	"time"

	"github.com/dispatch-next/internal/queue"
)

func TestBuildWebhookBodyFormatsTime(t *testing.T) {
	dispatchedAt := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)
	body := buildWebhookBody(queue.DispatchWebhookPayload{
		TenantID:       1,
		OrderNo:        "ORD-1001",
		TrackingNumber: "TRK00012345",
		Courier:        "koombiyo",
		DispatchedAt:   dispatchedAt,
	})

	if body["event"] != "order.dispatched" {
		t.Fatalf("unexpected event: %v", body["event"])
	}
	if body["order_no"] != "ORD-1001" {
		t.Fatalf("unexpected order_no: %v", body["order_no"])
	}
	if body["tracking_number"] != "TRK00012345" {
		t.Fatalf("unexpected tracking_number: %v", body["tracking_number"])
	}
	if body["dispatched_at"] != "2026-05-10T08:30:00Z" {
		t.Fatalf("unexpected dispatched_at: %v", body["dispatched_at"])
	}
}

func TestBuildWebhookBodyDefaultsZeroTime(t *testing.T) {
	body := buildWebhookBody(queue.DispatchWebhookPayload{
		TenantID: 1,
		OrderNo:  "ORD-1002",
	})

	raw, ok := body["dispatched_at"].(string)
	if !ok || raw == "" {
		t.Fatalf("expected dispatched_at to be filled, got %v", body["dispatched_at"])
	}
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		t.Fatalf("dispatched_at is not RFC3339: %v", err)
	}
}
