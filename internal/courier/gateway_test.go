package courier

import (
	"errors"
	"testing"
	"time"
)

func TestFormatWaybillTruncatesToLastDigits(t *testing.T) {
	if got := FormatWaybill("TRK00012345", 8); got != "00012345" {
		t.Fatalf("expected 00012345, got %q", got)
	}
}

func TestFormatWaybillPadsShortIDs(t *testing.T) {
	if got := FormatWaybill("1234", 8); got != "00001234" {
		t.Fatalf("expected 00001234, got %q", got)
	}
}

func TestFormatWaybillKeepsExactWidth(t *testing.T) {
	if got := FormatWaybill("AB123456", 8); got != "AB123456" {
		t.Fatalf("expected AB123456, got %q", got)
	}
}

func TestFallbackTrackingIDIsDeterministic(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	got := FallbackTrackingID("FDE", "ORD-1001", at)
	if got != "FDE-ORD-1001-20260314" {
		t.Fatalf("unexpected fallback id %q", got)
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	result := NetworkFailure("fardar", errors.New("dial timeout"))
	if result.Success {
		t.Fatalf("network failure must not be success")
	}
	if !result.Transient {
		t.Fatalf("network failure must be marked transient")
	}
}

func TestVendorRejectionIsNotTransient(t *testing.T) {
	result := VendorRejection("301", "invalid city")
	if result.Success || result.Transient {
		t.Fatalf("vendor rejection must be a permanent failure, got %+v", result)
	}
	if result.VendorStatusCode != "301" {
		t.Fatalf("expected status code 301, got %q", result.VendorStatusCode)
	}
}
