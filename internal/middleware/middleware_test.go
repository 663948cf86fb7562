package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/authctx"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func withClaims(claims jwt.MapClaims) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(authctx.TokenKey, &jwt.Token{Claims: claims})
		return c.Next()
	}
}

func ok(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	app.Get("/farmer", withClaims(jwt.MapClaims{"sub": uuid.NewString(), "role": "FARMER"}), RequireRole("FARMER", "SUPPLIER"), ok)
	app.Get("/buyer", withClaims(jwt.MapClaims{"sub": uuid.NewString(), "role": "BUYER"}), RequireRole("FARMER", "SUPPLIER"), ok)
	app.Get("/anon", RequireRole("BUYER"), ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/farmer", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/buyer", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body dto.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "Insufficient permissions", body.Error)

	resp, err = app.Test(httptest.NewRequest("GET", "/anon", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRequired(t *testing.T) {
	cfg := &config.Config{AdminEmails: "Ops@AgroConnect.io", AdminToken: "s3cret"}
	app := fiber.New()
	app.Get("/by-role", withClaims(jwt.MapClaims{"role": "ADMIN"}), AdminRequired(cfg), ok)
	app.Get("/by-email", withClaims(jwt.MapClaims{"role": "BUYER", "email": "ops@agroconnect.io"}), AdminRequired(cfg), ok)
	app.Get("/denied", withClaims(jwt.MapClaims{"role": "FARMER", "email": "f@x.io"}), AdminRequired(cfg), ok)
	app.Get("/token", AdminRequired(cfg), ok)

	for path, want := range map[string]int{"/by-role": 200, "/by-email": 200, "/denied": 403} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}

	req := httptest.NewRequest("GET", "/token", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New()
	app.Get("/me", JWTProtected(cfg), ok)

	good := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(time.Minute).Unix()})
	signed, err := good.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOptionalJWTAllowsAnonymous(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New()
	app.Get("/products/:id", OptionalJWT(cfg), func(c *fiber.Ctx) error {
		_, err := authctx.GetUserID(c)
		return c.JSON(fiber.Map{"signed_in": err == nil})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/products/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body["signed_in"])

	req := httptest.NewRequest("GET", "/products/1", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoadAccountRejectsSuspended(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "is_active", "is_suspended"}).
			AddRow(id.String(), "s@x.io", "BUYER", true, true))

	app := fiber.New()
	app.Get("/", withClaims(jwt.MapClaims{"sub": id.String()}), LoadAccount(db), ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeMaintenance bool

func (f fakeMaintenance) MaintenanceMode() bool { return bool(f) }

func TestMaintenanceKeepsWebhookOpen(t *testing.T) {
	app := fiber.New()
	app.Use(Maintenance(fakeMaintenance(true)))
	app.Get("/api/products", ok)
	app.Post("/api/payments/webhook/paystack", ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/products", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/api/payments/webhook/paystack", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
