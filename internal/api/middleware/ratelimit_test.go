package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seremi5/expense-server/internal/config"
)

func TestLoginRateLimitAllowsInitialBurst(t *testing.T) {
	cfg := config.RateLimitConfig{
		LoginPerMinute: 5,
	}

	handler := RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.100:12345" // Same IP for all requests
		req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
		res := httptest.NewRecorder()

		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, res.Code)
		}
	}
}

func TestLoginRateLimitBlocksAfterBurst(t *testing.T) {
	cfg := config.RateLimitConfig{
		LoginPerMinute: 5,
	}

	handler := RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	clientIP := "192.168.1.101:54321"

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = clientIP
		req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = clientIP
	req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", res.Code)
	}

	if retryAfter := res.Header().Get("Retry-After"); retryAfter != "60" {
		t.Errorf("expected Retry-After header to be 60, got %s", retryAfter)
	}
}

func TestRateLimitPerIPIsolation(t *testing.T) {
	cfg := config.RateLimitConfig{
		LoginPerMinute: 5,
	}

	handler := RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// A different IP still has its own allowance
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1000"
	req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200 for second IP, got %d", res.Code)
	}
}

func TestRateLimitZeroDisablesTier(t *testing.T) {
	cfg := config.RateLimitConfig{
		AdminPerMinute: 0,
	}

	handler := RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/expenses", nil)
		req.RemoteAddr = "10.0.0.3:1000"
		req = req.WithContext(WithRateLimitTier(req.Context(), TierAdmin))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, res.Code)
		}
	}
}

func TestRateLimitSkipsHealthEndpoints(t *testing.T) {
	cfg := config.RateLimitConfig{
		PublicPerMinute: 1,
	}

	handler := RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.4:1000"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("health request %d: expected status 200, got %d", i+1, res.Code)
		}
	}
}
