package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	VehicleTruck      = "truck"
	VehicleVan        = "van"
	VehicleMotorcycle = "motorcycle"
)

const (
	DeliveryAssigned  = "ASSIGNED"
	DeliveryPickedUp  = "PICKED_UP"
	DeliveryDelivered = "DELIVERED"
	DeliveryCancelled = "CANCELLED"
)

type Transporter struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CompanyName    string          `gorm:"size:200" json:"company_name,omitempty"`
	LicenseNumber  string          `gorm:"size:100" json:"license_number,omitempty"`
	BasePricePerKm decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"base_price_per_km"`
	Rating         float64         `gorm:"not null;default:0" json:"rating"`
	IsVerified     bool            `gorm:"not null;default:false;index" json:"is_verified"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	User           *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Vehicles       []Vehicle       `gorm:"foreignKey:TransporterID" json:"vehicles,omitempty"`
	Deliveries     []Delivery      `gorm:"foreignKey:TransporterID" json:"deliveries,omitempty"`
}

type Vehicle struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransporterID uuid.UUID `gorm:"type:uuid;not null;index" json:"transporter_id"`
	Type          string    `gorm:"size:20;not null" json:"type"`
	Make          string    `gorm:"size:100" json:"make,omitempty"`
	Model         string    `gorm:"size:100" json:"model,omitempty"`
	PlateNumber   string    `gorm:"size:30;not null;uniqueIndex" json:"plate_number"`
	Capacity      float64   `gorm:"not null" json:"capacity"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Delivery links an order to the transporter carrying it.
type Delivery struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	TransporterID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transporter_id"`
	Status        string          `gorm:"size:20;not null;default:'ASSIGNED'" json:"status"`
	DistanceKm    float64         `gorm:"not null" json:"distance_km"`
	Fee           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"fee"`
	PickedUpAt    *time.Time      `json:"picked_up_at,omitempty"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Order         *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}
