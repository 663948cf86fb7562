package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentPending    = "PENDING"
	PaymentProcessing = "PROCESSING"
	PaymentCompleted  = "COMPLETED"
	PaymentFailed     = "FAILED"
	PaymentRefunded   = "REFUNDED"
)

const (
	MethodCard                  = "CARD"
	MethodMobileMoneyMTN        = "MOBILE_MONEY_MTN"
	MethodMobileMoneyVodafone   = "MOBILE_MONEY_VODAFONE"
	MethodMobileMoneyAirtelTigo = "MOBILE_MONEY_AIRTELTIGO"
)

func IsValidPaymentMethod(m string) bool {
	switch m {
	case MethodCard, MethodMobileMoneyMTN, MethodMobileMoneyVodafone, MethodMobileMoneyAirtelTigo:
		return true
	}
	return false
}

// Payment belongs to exactly one order.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status          string          `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Method          string          `gorm:"size:40;not null" json:"method"`
	Reference       string          `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	GatewayResponse datatypes.JSON  `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Order           *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// Transaction is the ledger row written once per completed charge.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	Type      string          `gorm:"size:20;not null" json:"type"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Reference string          `gorm:"size:100;not null;index" json:"reference"`
	Status    string          `gorm:"size:20;not null" json:"status"`
	Metadata  datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentEvent records every gateway event that was acted upon. EventKey is
// unique so a replayed webhook is detected before any side effect runs.
type PaymentEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventKey   string    `gorm:"size:200;not null;uniqueIndex" json:"event_key"`
	Source     string    `gorm:"size:20;not null" json:"source"`
	Reference  string    `gorm:"size:100;not null;index" json:"reference"`
	EventType  string    `gorm:"size:50;not null" json:"event_type"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
}
