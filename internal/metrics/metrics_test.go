package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/products/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/products/:id", "404"))
	_, err := app.Test(httptest.NewRequest("GET", "/api/products/abc", nil))
	require.NoError(t, err)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/products/:id", "404"))
	assert.Equal(t, before+1, after)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "agroconnect_http_requests_total")
}

func TestPaymentCounters(t *testing.T) {
	before := testutil.ToFloat64(paymentReconciliations.WithLabelValues("webhook", "duplicate"))
	RecordReconciliation("webhook", "duplicate")
	assert.Equal(t, before+1, testutil.ToFloat64(paymentReconciliations.WithLabelValues("webhook", "duplicate")))
}
