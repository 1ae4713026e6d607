package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kru-ai/kru/pkg/store"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCeiling(t *testing.T) {
	l := NewLimiter(store.NewMemory(), 3, time.Minute)
	h := l.Middleware(okHandler())

	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/ai/chatbot", nil)
		req.RemoteAddr = "10.0.0.1:55000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	// The (ceiling+1)-th request in the window is rejected.
	req := httptest.NewRequest(http.MethodPost, "/v1/ai/chatbot", nil)
	req.RemoteAddr = "10.0.0.1:55000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected zero remaining, got %s", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestWindowReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemoryWithClock(func() time.Time { return now })
	l := NewLimiter(st, 1, time.Minute)
	h := l.Middleware(okHandler())

	hit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/ai/match", nil)
		req.RemoteAddr = "10.0.0.1:55000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if hit() != http.StatusOK {
		t.Fatal("first request should pass")
	}
	if hit() != http.StatusTooManyRequests {
		t.Fatal("second request in window should be rejected")
	}

	now = now.Add(61 * time.Second)
	if hit() != http.StatusOK {
		t.Fatal("request after window should pass with a fresh counter")
	}
}

func TestKeysIsolatePathAndClient(t *testing.T) {
	l := NewLimiter(store.NewMemory(), 1, time.Minute)
	h := l.Middleware(okHandler())

	hit := func(addr, path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if hit("10.0.0.1:1", "/v1/ai/match") != http.StatusOK {
		t.Fatal("first request should pass")
	}
	if hit("10.0.0.1:1", "/v1/ai/chatbot") != http.StatusOK {
		t.Fatal("different path should have its own counter")
	}
	if hit("10.0.0.2:1", "/v1/ai/match") != http.StatusOK {
		t.Fatal("different client should have its own counter")
	}
	if hit("10.0.0.1:1", "/v1/ai/match") != http.StatusTooManyRequests {
		t.Fatal("same client and path should be limited")
	}
}

func TestHeaders(t *testing.T) {
	l := NewLimiter(store.NewMemory(), 10, time.Minute)
	h := l.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/ai/chatbot", nil)
	req.RemoteAddr = "10.0.0.1:55000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Header().Get("X-RateLimit-Limit") != "10" {
		t.Fatalf("limit header: %s", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("X-RateLimit-Remaining") != "9" {
		t.Fatalf("remaining header: %s", w.Header().Get("X-RateLimit-Remaining"))
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("reset header missing")
	}
}

func TestGate(t *testing.T) {
	g := NewGate(1, 1)
	h := g.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected burst to pass, got %d", w.Code)
	}

	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected gate rejection, got %d", w2.Code)
	}
}
