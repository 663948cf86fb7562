package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SettingMaintenanceMode       = "maintenance_mode"
	SettingDefaultBasePricePerKm = "default_base_price_per_km"
	SettingSupportEmail          = "support_email"
	SettingAnnouncement          = "announcement_message"
)

// Setting is an admin-editable marketplace value. Type tells clients how to
// decode Value: string, bool, int, float or json.
type Setting struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Key       string    `gorm:"size:100;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Type      string    `gorm:"size:20;default:'string'" json:"type"`
	IsPublic  bool      `gorm:"not null;default:true" json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
