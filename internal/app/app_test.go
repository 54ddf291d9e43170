package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/offline-cashier/internal/config"
	"github.com/Dhoini/offline-cashier/internal/middleware"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Port = "0"
	cfg.App.Env = "test"
	cfg.Stripe.APIKey = "sk_test_123"
	cfg.Stripe.BaseURL = "http://127.0.0.1:1"
	cfg.Auth.JWTSecret = "secret"
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := NewApp(context.Background(), testConfig(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func get(t *testing.T, a *App, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func TestNewApp_PublicRoutes(t *testing.T) {
	a := newTestApp(t)

	w := get(t, a, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, a, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestNewApp_BillingRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	w := get(t, a, "/api/v1/billing/customer", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewApp_UnknownUser(t *testing.T) {
	a := newTestApp(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	w := get(t, a, "/api/v1/billing/subscriptions", token)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
