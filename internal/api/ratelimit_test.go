package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestThrottle_Burst(t *testing.T) {
	th := newThrottle(1.0, 3)

	for i := range 3 {
		if !th.allow("10.0.0.1") {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if th.allow("10.0.0.1") {
		t.Error("request beyond burst was allowed")
	}
}

func TestThrottle_PerIP(t *testing.T) {
	th := newThrottle(1.0, 1)

	if !th.allow("10.0.0.1") {
		t.Fatal("first ip denied")
	}
	if th.allow("10.0.0.1") {
		t.Error("first ip allowed beyond burst")
	}
	if !th.allow("10.0.0.2") {
		t.Error("second ip denied; limits must be per-IP")
	}
}

func TestWithThrottle(t *testing.T) {
	th := newThrottle(0.0001, 1)
	handler := withThrottle(th, slog.New(slog.DiscardHandler))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"no-port", "no-port"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := remoteIP(req); got != tt.want {
			t.Errorf("remoteIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
