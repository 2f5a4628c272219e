package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seremi5/expense-server/internal/auth"
)

func newTestManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-middleware", time.Hour, "expense-server")
}

func TestBearerAuthValidToken(t *testing.T) {
	manager := newTestManager()
	token, err := manager.Generate("user-123", "user", "anna@example.org")
	require.NoError(t, err)

	var seen *auth.Claims
	handler := BearerAuth(manager, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-123", seen.Subject)
	require.Equal(t, "user", seen.Role)
}

func TestBearerAuthMissingHeader(t *testing.T) {
	handler := BearerAuth(newTestManager(), "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
}

func TestBearerAuthInvalidToken(t *testing.T) {
	handler := BearerAuth(newTestManager(), "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireAdminRejectsUserRole(t *testing.T) {
	manager := newTestManager()
	token, err := manager.Generate("user-123", "user", "anna@example.org")
	require.NoError(t, err)

	chain := BearerAuth(manager, "test")(RequireAdmin("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	chain.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAdminAllowsAdminRole(t *testing.T) {
	manager := newTestManager()
	token, err := manager.Generate("admin-1", "admin", "admin@example.org")
	require.NoError(t, err)

	chain := BearerAuth(manager, "test")(RequireAdmin("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	chain.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
}
