package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeRateLimiterStore struct {
	counts map[string]int64
}

func newFakeRateLimiterStore() *fakeRateLimiterStore {
	return &fakeRateLimiterStore{counts: map[string]int64{}}
}

func (s *fakeRateLimiterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func loginAttempt(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.RemoteAddr = ip + ":51234"
	return req
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimitBlocksEmailAfterLimit(t *testing.T) {
	store := newFakeRateLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 100, 3)
	calls := 0
	handler := AuthRateLimit(policy, store, nil)(okHandler(&calls))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginAttempt("target@example.com", "10.0.0.1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginAttempt("target@example.com", "10.0.0.1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("blocked status = %d, want 429", rec.Code)
	}
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3", calls)
	}
	if !strings.Contains(rec.Body.String(), "RATE_LIMIT_EXCEEDED") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAuthRateLimitEmailCountsAreCaseInsensitive(t *testing.T) {
	store := newFakeRateLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 100, 2)
	calls := 0
	handler := AuthRateLimit(policy, store, nil)(okHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("Target@Example.COM", "10.0.0.1"))
	handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("target@example.com", "10.0.0.2"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginAttempt(" target@example.com ", "10.0.0.3"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 for same normalized email", rec.Code)
	}
}

func TestAuthRateLimitBlocksIPAcrossEmails(t *testing.T) {
	store := newFakeRateLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 100)
	calls := 0
	handler := AuthRateLimit(policy, store, nil)(okHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("a@example.com", "10.0.0.9"))
	handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("b@example.com", "10.0.0.9"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginAttempt("c@example.com", "10.0.0.9"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 for same ip", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestAuthRateLimitPreservesRequestBody(t *testing.T) {
	store := newFakeRateLimiterStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 10, 10)
	var seenBody string
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		seenBody = string(payload)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("a@example.com", "10.0.0.1"))
	if !strings.Contains(seenBody, "a@example.com") {
		t.Fatalf("downstream body = %q, want original payload", seenBody)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateLimiterStore()
	policy := NewAuthRateLimitPolicy("login", 0, 0, 0)
	calls := 0
	handler := AuthRateLimit(policy, store, nil)(okHandler(&calls))

	for i := 0; i < 50; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("a@example.com", "10.0.0.1"))
	}
	if calls != 50 {
		t.Fatalf("handler calls = %d, want 50", calls)
	}
	if len(store.counts) != 0 {
		t.Fatalf("store must stay untouched when disabled, got %v", store.counts)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")

	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q, want first forwarded address", got)
	}
}
