package dto

import "github.com/google/uuid"

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address" validate:"required,max=255"`
	DeliveryCity    string             `json:"delivery_city" validate:"required,max=100"`
	DeliveryRegion  string             `json:"delivery_region" validate:"required,max=100"`
	DeliveryLat     *float64           `json:"delivery_lat" validate:"omitempty,latitude"`
	DeliveryLng     *float64           `json:"delivery_lng" validate:"omitempty,longitude"`
	Notes           string             `json:"notes" validate:"max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED IN_TRANSIT DELIVERED CANCELLED"`
}

type OrderFilter struct {
	PageQuery
	Status string `query:"status"`
}

type AssignDeliveryRequest struct {
	TransporterID uuid.UUID `json:"transporter_id" validate:"required"`
	PickupLat     float64   `json:"pickup_lat" validate:"latitude"`
	PickupLng     float64   `json:"pickup_lng" validate:"longitude"`
}

type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PICKED_UP DELIVERED"`
}
