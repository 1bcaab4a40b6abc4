package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/moodboard/internal/model"
)

func newTestRateLimiter(t *testing.T, r float64, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            rate.Limit(r),
		Burst:           burst,
		CleanupInterval: time.Minute,
	}, nil)
	t.Cleanup(rl.Stop)
	return rl
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/getPins", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := newTestRateLimiter(t, 2, 5)

	calls := 0
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithToken("token-1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	if calls != 5 {
		t.Errorf("handler call count = %d, want 5", calls)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestWithToken("token-retry"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithToken("token-retry"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	retrySeconds, err := strconv.Atoi(w.Result().Header.Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After header should be a number: %v", err)
	}
	if retrySeconds < 1 {
		t.Errorf("Retry-After = %d, should be at least 1", retrySeconds)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeRateLimitExceeded {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimitExceeded)
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.Middleware()(okHandler())

	req := requestWithToken("")
	req.RemoteAddr = "192.0.2.10:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = requestWithToken("")
	req.RemoteAddr = "192.0.2.20:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("別IPは独立して制限されるべき: status = %d", w.Code)
	}

	req = requestWithToken("")
	req.RemoteAddr = "192.0.2.10:6666"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("同じIPはポートが違っても同一クライアントとして扱うべき: status = %d", w.Code)
	}

	if got := rl.LimiterCount(); got != 2 {
		t.Errorf("LimiterCount() = %d, want 2", got)
	}
}

// TestRateLimitMiddleware_RotatingTokensShareIPBucket は同じIPからトークンを
// 変えながら送っても制限を回避できず、エントリも増えないことを検証する。
func TestRateLimitMiddleware_RotatingTokensShareIPBucket(t *testing.T) {
	rl := newTestRateLimiter(t, 2.0/60.0, 2)
	handler := rl.Middleware()(okHandler())

	limited := 0
	for i := 0; i < 50; i++ {
		req := requestWithToken("fake-" + strconv.Itoa(i))
		req.RemoteAddr = "203.0.113.5:40000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 48 {
		t.Errorf("429 count = %d, want 48", limited)
	}
	if got := rl.LimiterCount(); got != 1 {
		t.Errorf("LimiterCount() = %d, want 1", got)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		remoteAddr string
		want       string
	}{
		{"トークンなし", "", "198.51.100.7:1234", "ip:198.51.100.7"},
		{"トークンはキーに含めない", "abc", "198.51.100.7:1234", "ip:198.51.100.7"},
		{"ポートなし", "", "198.51.100.8", "ip:198.51.100.8"},
		{"IPv6", "", "[2001:db8::1]:443", "ip:2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithToken(tt.token)
			req.RemoteAddr = tt.remoteAddr
			if got := ClientKey(req); got != tt.want {
				t.Errorf("ClientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            10,
		Burst:           10,
		CleanupInterval: 10 * time.Millisecond,
	}, nil)
	defer rl.Stop()

	rl.Middleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), requestWithToken("token-cleanup"))
	if rl.LimiterCount() == 0 {
		t.Fatal("expected limiter entry to be created")
	}

	// エントリのTTLはCleanupIntervalの2倍
	time.Sleep(100 * time.Millisecond)

	if count := rl.LimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(), nil)
	rl.Stop()
	rl.Stop()
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(60)
	if float64(cfg.Rate) != 1.0 {
		t.Errorf("Rate = %v, want 1", cfg.Rate)
	}
	if cfg.Burst != 60 {
		t.Errorf("Burst = %d, want 60", cfg.Burst)
	}

	def := DefaultRateLimiterConfig()
	if float64(def.Rate) != 2.0 || def.Burst != 120 {
		t.Errorf("DefaultRateLimiterConfig() = %+v", def)
	}
	if got := NewRateLimiterConfig(0); got.Burst != 120 {
		t.Errorf("0以下はデフォルトにするべき: %+v", got)
	}
}
