package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type InitializePaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Method  string    `json:"method" validate:"required,oneof=CARD MOBILE_MONEY_MTN MOBILE_MONEY_VODAFONE MOBILE_MONEY_AIRTELTIGO"`
	Phone   string    `json:"phone" validate:"required_unless=Method CARD,max=20"`
	Email   string    `json:"email" validate:"omitempty,email"`
}

type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// PaystackEvent is the webhook body. Data is kept raw so it can be stored
// alongside the payment untouched.
type PaystackEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type PaystackChargeData struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}
