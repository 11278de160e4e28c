package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("clients have separate budgets")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Errorf("budget should reset after the window")
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(3 * time.Minute)
	rl.Allow("b")

	if _, ok := rl.buckets["a"]; ok {
		t.Errorf("idle bucket was not swept")
	}
	if len(rl.buckets) != 1 {
		t.Errorf("expected one bucket, got %d", len(rl.buckets))
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, want: "198.51.100.2"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.3"}, want: "198.51.100.3"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.9", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/text", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			if got := clientKey(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
