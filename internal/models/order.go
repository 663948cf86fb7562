package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderInTransit = "IN_TRANSIT"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
)

var orderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderInTransit, OrderCancelled},
	OrderInTransit: {OrderDelivered},
}

func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderInTransit, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// DELIVERED and CANCELLED are terminal.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"seller_id"`
	Status          string          `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DeliveryAddress string          `gorm:"size:255;not null" json:"delivery_address"`
	DeliveryCity    string          `gorm:"size:100;not null" json:"delivery_city"`
	DeliveryRegion  string          `gorm:"size:100;not null" json:"delivery_region"`
	DeliveryLat     *float64        `json:"delivery_lat,omitempty"`
	DeliveryLng     *float64        `json:"delivery_lng,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
	Buyer           *User           `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller          *User           `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment         *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	Delivery        *Delivery       `gorm:"foreignKey:OrderID" json:"delivery,omitempty"`
}

// OrderItem snapshots the product title and price at purchase time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Title     string          `gorm:"size:200;not null" json:"title"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
