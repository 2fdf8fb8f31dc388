package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/vietlearn/backend-academy/internal/common"
)

func TestByUserPrefersAuthenticatedUser(t *testing.T) {
	r := httptest.NewRequest("POST", "/voucher/apply", nil)
	r = r.WithContext(common.WithUserID(r.Context(), "user-123"))

	key := ByUser("voucher")(r)
	if key != "voucher:user:user-123" {
		t.Fatalf("key = %q", key)
	}
}

func TestByUserFallsBackToIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/voucher/apply", nil)
	r.RemoteAddr = "203.0.113.7:4431"

	key := ByUser("voucher")(r)
	if key != "voucher:ip:203.0.113.7" {
		t.Fatalf("key = %q", key)
	}
}

func TestByIPHonoursForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")

	key := ByIP("global")(r)
	if key != "global:ip:198.51.100.9" {
		t.Fatalf("key = %q", key)
	}
}
