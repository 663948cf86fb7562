package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// ChatBackend is the part of the chat service the socket drives.
type ChatBackend interface {
	Send(senderID uuid.UUID, req *dto.SendMessageRequest) (*models.Message, error)
	MarkRead(userID, messageID uuid.UUID) (*models.Message, error)
	Typing(userID uuid.UUID, ev dto.TypingEvent)
}

// Client is one WebSocket connection of an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	chat   ChatBackend
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, chat ChatBackend) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		chat:   chat,
	}
}

// ReadPump blocks until the connection closes, dispatching client events.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("ws read failed", "user_id", c.userID.String(), "error", err)
			}
			return
		}
		c.handle(raw)
	}
}

// WritePump drains the send channel and keeps the connection alive with
// pings. It returns when the hub closes the channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues an event for this connection only. A full buffer drops the
// reply rather than blocking the read loop.
func (c *Client) reply(event string, data interface{}) {
	msg, err := encode(event, data)
	if err != nil {
		return
	}
	c.hub.sendTo(c, msg)
}

func (c *Client) fail(message string) {
	c.reply("error", map[string]string{"message": message})
}

func (c *Client) handle(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.fail("invalid message")
		return
	}

	switch env.Event {
	case "send_message":
		var req dto.SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.fail("invalid send_message payload")
			return
		}
		if _, err := c.chat.Send(c.userID, &req); err != nil {
			c.fail(errorMessage(err))
		}
	case "typing":
		var ev dto.TypingEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.ReceiverID == uuid.Nil {
			c.fail("invalid typing payload")
			return
		}
		c.chat.Typing(c.userID, ev)
	case "mark_read":
		var ev dto.MarkReadEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.MessageID == uuid.Nil {
			c.fail("invalid mark_read payload")
			return
		}
		if _, err := c.chat.MarkRead(c.userID, ev.MessageID); err != nil {
			c.fail(errorMessage(err))
		}
	default:
		c.fail("unknown event: " + env.Event)
	}
}

var exposed = []error{
	services.ErrSelfMessage,
	services.ErrEmptyMessage,
	services.ErrInvalidMessage,
	services.ErrBlocked,
	services.ErrMessageNotFound,
	services.ErrUserNotFound,
	services.ErrContentRejected,
}

// errorMessage exposes domain errors and hides everything else.
func errorMessage(err error) string {
	for _, e := range exposed {
		if errors.Is(err, e) {
			return err.Error()
		}
	}
	slog.Error("ws event failed", "error", err)
	return "something went wrong"
}
