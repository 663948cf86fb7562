package handlers

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const wsUserKey = "ws_user_id"

type WSHandler struct {
	hub         *realtime.Hub
	authService *services.AuthService
	chat        realtime.ChatBackend
}

func NewWSHandler(hub *realtime.Hub, authService *services.AuthService, chat realtime.ChatBackend) *WSHandler {
	return &WSHandler{hub: hub, authService: authService, chat: chat}
}

// Upgrade authenticates the handshake. Browsers cannot set headers on a
// WebSocket request, so the access token may also come as ?token=.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(dto.Fail("WebSocket upgrade required"))
	}

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	userID, err := h.authService.ParseAccessToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Invalid or expired token"))
	}

	c.Locals(wsUserKey, userID)
	return c.Next()
}

func (h *WSHandler) Handle() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(wsUserKey).(uuid.UUID)
		if !ok {
			conn.Close()
			return
		}

		client := realtime.NewClient(h.hub, conn, userID, h.chat)
		h.hub.Register(client)
		go client.WritePump()
		client.ReadPump()
	})
}
