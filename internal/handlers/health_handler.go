package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping   func() error
	online func() int
}

// NewHealthHandler takes the database ping and the hub's online counter.
func NewHealthHandler(ping func() error, online func() int) *HealthHandler {
	return &HealthHandler{ping: ping, online: online}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, dbStatus := "ok", "ok"
	code := fiber.StatusOK
	if err := h.ping(); err != nil {
		status, dbStatus = "degraded", "unhealthy: "+err.Error()
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Online:    h.online(),
	})
}
