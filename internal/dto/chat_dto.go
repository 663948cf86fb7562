package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Content    string    `json:"content" validate:"required_without=ImageURL,max=5000"`
	ImageURL   string    `json:"image_url" validate:"omitempty,http_url,max=2048"`
}

type Conversation struct {
	PartnerID   uuid.UUID   `json:"partner_id"`
	Partner     interface{} `json:"partner,omitempty"`
	LastMessage interface{} `json:"last_message"`
	LastAt      time.Time   `json:"last_at"`
	UnreadCount int64       `json:"unread_count"`
}

type TypingEvent struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	IsTyping   bool      `json:"is_typing"`
}

type MarkReadEvent struct {
	MessageID uuid.UUID `json:"message_id"`
}
