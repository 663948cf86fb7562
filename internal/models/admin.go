package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	KeyTypePublic = "public"
	KeyTypeSecret = "secret"
	KeyTypeAPIKey = "api_key"
)

// ApiKey holds third-party credentials managed from the admin panel.
// Value is sealed with the server's encryption secret.
type ApiKey struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string     `gorm:"size:100;not null" json:"name"`
	Service     string     `gorm:"size:50;not null;index:idx_api_keys_lookup,priority:1" json:"service"`
	KeyType     string     `gorm:"size:20;not null;index:idx_api_keys_lookup,priority:2" json:"key_type"`
	Value       string     `gorm:"type:text;not null" json:"-"`
	Description string     `gorm:"size:500" json:"description,omitempty"`
	IsActive    bool       `gorm:"not null;default:true;index:idx_api_keys_lookup,priority:3" json:"is_active"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AdminLog is written for every admin mutation.
type AdminLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AdminID   *uuid.UUID     `gorm:"type:uuid;index" json:"admin_id,omitempty"`
	Action    string         `gorm:"size:100;not null;index" json:"action"`
	Entity    string         `gorm:"size:50;not null" json:"entity"`
	EntityID  string         `gorm:"size:100;not null;index" json:"entity_id"`
	Before    datatypes.JSON `gorm:"type:jsonb" json:"before,omitempty"`
	After     datatypes.JSON `gorm:"type:jsonb" json:"after,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	Admin     *User          `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}
