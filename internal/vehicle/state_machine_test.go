package vehicle

import (
	"errors"
	"testing"

	"github.com/evrental/evrental/internal/common/errs"
)

func TestReserve(t *testing.T) {
	v := &Vehicle{ID: "v-1", Status: StatusAvailable}
	if err := Reserve(v); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if v.Status != StatusRented {
		t.Fatalf("expected Rented, got %s", v.Status)
	}

	// 已被占用时再次 reserve 必须失败
	if err := Reserve(v); !errors.Is(err, errs.ResourceUnavailable) {
		t.Fatalf("expected ResourceUnavailable, got %v", err)
	}

	v.Status = StatusMaintenance
	if err := Reserve(v); !errors.Is(err, errs.ResourceUnavailable) {
		t.Fatalf("expected ResourceUnavailable from maintenance, got %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	v := &Vehicle{ID: "v-1", Status: StatusRented}
	if err := Release(v); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if v.Status != StatusAvailable {
		t.Fatalf("expected Available, got %s", v.Status)
	}
	if err := Release(v); err != nil {
		t.Fatalf("second Release should be a no-op: %v", err)
	}
	if v.Status != StatusAvailable {
		t.Fatalf("expected Available after no-op, got %s", v.Status)
	}
}

func TestMaintenanceToggle(t *testing.T) {
	v := &Vehicle{ID: "v-1", Status: StatusAvailable}
	if err := TakeOffline(v); err != nil {
		t.Fatalf("TakeOffline: %v", err)
	}
	if v.Status != StatusMaintenance {
		t.Fatalf("expected Maintenance, got %s", v.Status)
	}
	if err := BringOnline(v); err != nil {
		t.Fatalf("BringOnline: %v", err)
	}
	if v.Status != StatusAvailable {
		t.Fatalf("expected Available, got %s", v.Status)
	}

	// Rented 车辆不能直接下线
	v.Status = StatusRented
	if err := TakeOffline(v); !errors.Is(err, errs.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	// 非维护中不能 bring online
	if err := BringOnline(v); !errors.Is(err, errs.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"Available", "available", "AVAILABLE", " available "} {
		got, err := ParseStatus(in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", in, err)
		}
		if got != StatusAvailable {
			t.Fatalf("ParseStatus(%q)=%s", in, got)
		}
	}
	if _, err := ParseStatus("busy"); !errors.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestValidateBattery(t *testing.T) {
	for _, ok := range []int{0, 50, 100} {
		if err := ValidateBattery(ok); err != nil {
			t.Fatalf("ValidateBattery(%d): %v", ok, err)
		}
	}
	for _, bad := range []int{-1, 101} {
		if err := ValidateBattery(bad); !errors.Is(err, errs.InvalidInput) {
			t.Fatalf("ValidateBattery(%d): expected InvalidInput, got %v", bad, err)
		}
	}
}
