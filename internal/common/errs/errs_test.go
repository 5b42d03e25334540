package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := New(KindSchedulingConflict, "booking window overlaps")
	if !errors.Is(err, SchedulingConflict) {
		t.Fatalf("expected errors.Is to match SchedulingConflict")
	}
	if errors.Is(err, NotFound) {
		t.Fatalf("did not expect NotFound match")
	}
	if KindOf(err) != KindSchedulingConflict {
		t.Fatalf("KindOf mismatch: %v", KindOf(err))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("record not found")
	err := Wrap(KindNotFound, cause, "vehicle %s", "v-1")
	if !errors.Is(err, NotFound) {
		t.Fatalf("expected NotFound kind")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive")
	}
}

func TestKindSurvivesFmtWrap(t *testing.T) {
	err := fmt.Errorf("create booking: %w", New(KindResourceUnavailable, "vehicle not available"))
	if KindOf(err) != KindResourceUnavailable {
		t.Fatalf("kind lost through fmt wrap: %v", KindOf(err))
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:            http.StatusNotFound,
		KindInvalidInput:        http.StatusBadRequest,
		KindInvalidState:        http.StatusConflict,
		KindResourceUnavailable: http.StatusConflict,
		KindSchedulingConflict:  http.StatusConflict,
		KindCapacityExceeded:    http.StatusConflict,
		KindUnauthorized:        http.StatusForbidden,
		KindBusy:                http.StatusServiceUnavailable,
	}
	for k, want := range cases {
		if got := HTTPStatus(New(k, "x")); got != want {
			t.Fatalf("kind %v: expected %d, got %d", k, want, got)
		}
	}
	if got := HTTPStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("plain error: expected 500, got %d", got)
	}
}
