package transexpress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dispatch-next/internal/courier"

	"github.com/shopspring/decimal"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := New(Config{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("create gateway failed: %v", err)
	}
	return gateway
}

func testRequest() courier.Request {
	return courier.Request{
		OrderNo:      "ORD-4001",
		CustomerName: "Sunil Fernando",
		Phone1:       "0765554433",
		Address:      "8 Main Street, Negombo",
		CityName:     "Negombo",
		Weight:       2.5,
		Description:  "Order #ORD-4001 - 3 items",
		CODAmount:    decimal.NewFromInt(7800),
	}
}

func TestExtractTrackingFromFreeText(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"Parcel created successfully. Tracking No: CX1234567890", "CX1234567890"},
		{"tracking no. TRX-445566 assigned", "TRX-445566"},
		{"created without a reference", ""},
	}
	for _, tc := range cases {
		if got := ExtractTracking(tc.message); got != tc.want {
			t.Fatalf("ExtractTracking(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestCreateNewParsesTrackingFromMessage(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/parcel/create") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    100,
			"message": "Parcel created successfully. Tracking No: CX1234567890",
		})
	})

	result := gateway.Dispatch(context.Background(), testRequest())
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TrackingNumber != "CX1234567890" {
		t.Fatalf("unexpected tracking number %q", result.TrackingNumber)
	}
}

func TestCreateNewFallsBackWhenMessageHasNoTracking(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 100, "message": "created"})
	})

	result := gateway.Dispatch(context.Background(), testRequest())
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.HasPrefix(result.TrackingNumber, "TRX-ORD-4001-") {
		t.Fatalf("expected deterministic fallback id, got %q", result.TrackingNumber)
	}
}

func TestNewAndExistingCodeTablesAreSeparate(t *testing.T) {
	// 同一数值在两条路径上含义不同：100 在登记接口不是成功码
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 100, "message": "unknown"})
	})

	req := testRequest()
	req.Existing = true
	req.WaybillID = "TRK00012345"
	result := gateway.Dispatch(context.Background(), req)
	if result.Success {
		t.Fatalf("existing-mode code 100 must not be treated as success")
	}
}

func TestRegisterExistingUsesOwnCodeTable(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/parcel/register") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload failed: %v", err)
		}
		if payload["waybill_no"] != "TRK00012345" {
			t.Errorf("unexpected waybill %v", payload["waybill_no"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 200})
	})

	req := testRequest()
	req.Existing = true
	req.WaybillID = "TRK00012345"
	result := gateway.Dispatch(context.Background(), req)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TrackingNumber != "TRK00012345" {
		t.Fatalf("unexpected tracking number %q", result.TrackingNumber)
	}
}

func TestRegisterExistingMapsAlreadyUsed(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 201})
	})

	req := testRequest()
	req.Existing = true
	req.WaybillID = "TRK00012345"
	result := gateway.Dispatch(context.Background(), req)
	if result.Success || result.Transient {
		t.Fatalf("expected permanent rejection, got %+v", result)
	}
	if !strings.Contains(result.Message, "already registered") {
		t.Fatalf("unexpected message %q", result.Message)
	}
}
