package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeIdempotencyStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func idempotentHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"abc"}}`))
	})
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(idempotentHandler(&calls))

	body := `{"name":"Day-old bread"}`
	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/donations", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(first, req)

	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", first.Code)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	second := httptest.NewRecorder()
	replay := httptest.NewRequest(http.MethodPost, "/api/v1/donations", strings.NewReader(body))
	replay.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(second, replay)

	if calls != 1 {
		t.Fatalf("handler calls after replay = %d, want 1", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d, want 201", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("replay content type = %q", ct)
	}
}

func TestIdempotencyKeyReusedWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(idempotentHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/donations", strings.NewReader(`{"name":"bread"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	rec := httptest.NewRecorder()
	second := httptest.NewRequest(http.MethodPost, "/api/v1/donations", strings.NewReader(`{"name":"rice"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(rec, second)

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "IDEMPOTENCY_KEY_REUSED") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(idempotentHandler(&calls))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/donations", strings.NewReader(`{}`))
	handler.ServeHTTP(rec, req)

	if calls != 0 {
		t.Fatalf("handler calls = %d, want 0", calls)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(idempotentHandler(&calls))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	handler.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if len(store.values) != 0 {
		t.Fatalf("store must stay empty for unguarded routes, got %v", store.values)
	}
}

func TestIdempotencyTTLPerRoute(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/donations", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/auth/signup", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/matches/3f1c/respond", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/matches/3f1c/receive", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/quotes/3f1c/respond", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/admin/matches/3f1c/receipt", criticalIdempotencyTTL, true},
		{http.MethodGet, "/api/v1/donations", 0, false},
		{http.MethodPost, "/api/v1/auth/login", 0, false},
	}
	for _, tc := range cases {
		ttl, ok := routeTTL(tc.method, tc.path)
		if ok != tc.ok || ttl != tc.want {
			t.Fatalf("routeTTL(%s %s) = (%v, %v), want (%v, %v)", tc.method, tc.path, ttl, ok, tc.want, tc.ok)
		}
	}
}

func TestIdempotencyScopeIsPerUser(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(idempotentHandler(&calls))

	body := `{"name":"bread"}`
	for _, userID := range []string{"user-a", "user-b"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/donations", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "shared-key")
		req = req.WithContext(context.WithValue(req.Context(), ctxUserID, userID))
		handler.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Fatalf("handler calls = %d, want one per user", calls)
	}
}
