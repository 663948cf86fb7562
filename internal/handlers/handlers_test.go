package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/paystack"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func decode(t *testing.T, resp *http.Response) dto.Response {
	t.Helper()
	var body dto.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"conflict", services.ErrEmailTaken, 409, services.ErrEmailTaken.Error()},
		{"wrapped moderation", fmt.Errorf("%w: contact_info_not_allowed", services.ErrContentRejected), 400, "content does not meet our guidelines: contact_info_not_allowed"},
		{"gateway rejection", &paystack.APIError{StatusCode: 400, Message: "Invalid email"}, 400, "Invalid email"},
		{"gateway down", fmt.Errorf("%w: dial tcp: i/o timeout", paystack.ErrGatewayUnavailable), 502, paystack.ErrGatewayUnavailable.Error()},
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "Invalid id"), 400, "Invalid id"},
		{"not found", services.ErrOrderNotFound, 404, services.ErrOrderNotFound.Error()},
		{"paid order", services.ErrOrderPaid, 400, services.ErrOrderPaid.Error()},
		{"unknown", errors.New("pq: relation does not exist"), 500, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := statusOf(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := &config.Config{JWTSecret: "test-secret"}
	h := NewAuthHandler(services.NewAuthService(db, cfg, nil))

	app := fiber.New()
	app.Post("/auth/register", h.Register)

	cases := map[string]string{
		`{"password":"longenough","first_name":"Ama","last_name":"Mensah","role":"FARMER"}`:                   "email is required",
		`{"email":"ama@x.io","password":"short","first_name":"Ama","last_name":"Mensah","role":"FARMER"}`:     "password must be at least 8 characters",
		`{"email":"ama@x.io","password":"longenough","first_name":"Ama","last_name":"Mensah","role":"ADMIN"}`: "role must be one of: FARMER BUYER TRANSPORTER SUPPLIER",
		`not json`: "Invalid request body",
	}
	for body, want := range cases {
		req := httptest.NewRequest("POST", "/auth/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, want, decode(t, resp).Error, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

type staticKeys string

func (k staticKeys) ActiveValue(string, string) (string, error) { return string(k), nil }

func TestPaystackWebhook(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := &config.Config{}
	svc := services.NewPaymentService(db, cfg, nil, staticKeys("sk_test_123"), services.NewNotificationService(db, nil))
	h := NewPaymentHandler(svc)

	app := fiber.New()
	app.Post("/payments/webhook/paystack", h.PaystackWebhook)

	send := func(body, signature string) *http.Response {
		req := httptest.NewRequest("POST", "/payments/webhook/paystack", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-paystack-signature", signature)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	body := `{"event":"transfer.success","data":{}}`
	resp := send(body, "deadbeef")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = send(body, paystack.Sign("sk_test_123", []byte(body)))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var ack map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.True(t, ack["received"])

	bad := `{"event":"charge.success","data":{"amount":100}}`
	resp = send(bad, paystack.Sign("sk_test_123", []byte(bad)))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/up", NewHealthHandler(func() error { return nil }, func() int { return 3 }).Check)
	app.Get("/down", NewHealthHandler(func() error { return errors.New("connection refused") }, func() int { return 0 }).Check)

	resp, err := app.Test(httptest.NewRequest("GET", "/up", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var health dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, 3, health.Online)

	resp, err = app.Test(httptest.NewRequest("GET", "/down", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestWSUpgradeRequiresHandshakeAndToken(t *testing.T) {
	db, _ := newMockDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Minute}
	h := NewWSHandler(realtime.NewHub(), services.NewAuthService(db, cfg, nil), nil)

	app := fiber.New()
	app.Get("/ws", h.Upgrade, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusSwitchingProtocols) })

	resp, err := app.Test(httptest.NewRequest("GET", "/ws?token=x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	req := httptest.NewRequest("GET", "/ws?token=not-a-jwt", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
