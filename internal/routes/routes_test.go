package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

// denyAdmin stands in for the admin guard so protected routes can be
// probed without a user store.
func denyAdmin(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized access"})
}

func newTestEngine(t *testing.T) (*gin.Engine, *prometheus.Registry) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	mem := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	// Handlers that are only routed to, never reached, may have nil stores.
	router := NewEngine(log, metrics.NewHTTP(reg))
	RegisterRoutes(router, Handlers{
		Auth:       handlers.NewAuthHandler(nil, nil, log),
		Categories: handlers.NewCategoryHandler(nil, nil, mem, log),
		Products:   handlers.NewProductHandler(nil, nil, mem, log),
		Cart:       handlers.NewCartHandler(nil, nil, log),
		Orders:     handlers.NewOrderHandler(nil, nil, nil, events.Noop{}, log),
		Health:     handlers.NewHealthHandler(okPinger{}),
	}, Guards{
		SignIn: middleware.RequireSignIn(nil),
		Admin:  denyAdmin,
	})
	return router, reg
}

func TestRegisterRoutes(t *testing.T) {
	router, _ := newTestEngine(t)

	want := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPost, "/api/v1/auth/forgot-password"},
		{http.MethodGet, "/api/v1/auth/user-auth"},
		{http.MethodGet, "/api/v1/auth/admin-auth"},
		{http.MethodPut, "/api/v1/auth/profile"},
		{http.MethodGet, "/api/v1/categories"},
		{http.MethodPost, "/api/v1/categories"},
		{http.MethodPut, "/api/v1/categories/:id"},
		{http.MethodDelete, "/api/v1/categories/:id"},
		{http.MethodGet, "/api/v1/categories/slug/:slug"},
		{http.MethodGet, "/api/v1/products"},
		{http.MethodPost, "/api/v1/products"},
		{http.MethodPut, "/api/v1/products/:id"},
		{http.MethodDelete, "/api/v1/products/:id"},
		{http.MethodGet, "/api/v1/products/count"},
		{http.MethodGet, "/api/v1/products/slug/:slug"},
		{http.MethodGet, "/api/v1/products/:id/photo"},
		{http.MethodGet, "/api/v1/products/:id/related"},
		{http.MethodGet, "/api/v1/products/search/:keyword"},
		{http.MethodGet, "/api/v1/products/category/:slug"},
		{http.MethodPost, "/api/v1/products/filters"},
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodDelete, "/api/v1/cart"},
		{http.MethodPut, "/api/v1/cart/items/:productId"},
		{http.MethodDelete, "/api/v1/cart/items/:productId"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/all"},
		{http.MethodPut, "/api/v1/orders/:id/status"},
		{http.MethodGet, "/health"},
	}

	registered := make(map[string]bool)
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, w := range want {
		assert.True(t, registered[w.method+" "+w.path], "missing route %s %s", w.method, w.path)
	}
	assert.Len(t, router.Routes(), len(want))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestEngine(t)

	protected := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/user-auth"},
		{http.MethodPost, "/api/v1/categories"},
		{http.MethodDelete, "/api/v1/products/64b7f0c2a1b2c3d4e5f60718"},
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodGet, "/api/v1/orders/all"},
	}
	for _, p := range protected {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}
}

func TestEngineAddsRequestIDAndMetrics(t *testing.T) {
	router, reg := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	count, err := testutil.GatherAndCount(reg, "storefront_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
