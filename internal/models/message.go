package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Message struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SenderID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_pair,priority:2" json:"receiver_id"`
	Content    string         `gorm:"type:text" json:"content"`
	ImageURL   string         `gorm:"size:500" json:"image_url,omitempty"`
	IsRead     bool           `gorm:"not null;default:false" json:"is_read"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	NotificationOrder   = "ORDER"
	NotificationPayment = "PAYMENT"
	NotificationMessage = "MESSAGE"
	NotificationSystem  = "SYSTEM"
)

type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string         `gorm:"size:20;not null" json:"type"`
	Title     string         `gorm:"size:200;not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Data      datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool           `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
