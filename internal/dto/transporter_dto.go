package dto

import "github.com/shopspring/decimal"

type CreateTransporterRequest struct {
	CompanyName    string           `json:"company_name" validate:"max=200"`
	LicenseNumber  string           `json:"license_number" validate:"max=100"`
	BasePricePerKm *decimal.Decimal `json:"base_price_per_km"`
}

type AddVehicleRequest struct {
	Type        string  `json:"type" validate:"required,oneof=truck van motorcycle"`
	Make        string  `json:"make" validate:"max=100"`
	Model       string  `json:"model" validate:"max=100"`
	PlateNumber string  `json:"plate_number" validate:"required,max=30"`
	Capacity    float64 `json:"capacity" validate:"required,gt=0"`
}

type AvailableTransportersQuery struct {
	Lat      *float64 `query:"lat"`
	Lng      *float64 `query:"lng"`
	Distance float64  `query:"distance"`
}

type CalculateFeeRequest struct {
	PickupLat     float64 `json:"pickup_lat" validate:"latitude"`
	PickupLng     float64 `json:"pickup_lng" validate:"longitude"`
	DeliveryLat   float64 `json:"delivery_lat" validate:"latitude"`
	DeliveryLng   float64 `json:"delivery_lng" validate:"longitude"`
	TransporterID string  `json:"transporter_id" validate:"omitempty,uuid"`
}

type FeeQuote struct {
	DistanceKm     float64         `json:"distance_km"`
	BasePricePerKm decimal.Decimal `json:"base_price_per_km"`
	Fee            decimal.Decimal `json:"fee"`
}
