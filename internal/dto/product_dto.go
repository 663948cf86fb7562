package dto

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Title       string          `json:"title" validate:"required,min=3,max=200"`
	Description string          `json:"description" validate:"required,min=10"`
	Category    string          `json:"category" validate:"required,oneof=CROPS LIVESTOCK INPUTS"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Unit        string          `json:"unit" validate:"omitempty,max=20"`
	ImageURLs   []string        `json:"image_urls" validate:"max=8,dive,url"`
}

// UpdateProductRequest carries only the fields being changed.
type UpdateProductRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string          `json:"description" validate:"omitempty,min=10"`
	Category    *string          `json:"category" validate:"omitempty,oneof=CROPS LIVESTOCK INPUTS"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
	Unit        *string          `json:"unit" validate:"omitempty,max=20"`
	IsAvailable *bool            `json:"is_available"`
	ImageURLs   []string         `json:"image_urls" validate:"omitempty,max=8,dive,url"`
}

type ProductFilter struct {
	PageQuery
	Category string `query:"category"`
	Search   string `query:"search"`
	MinPrice string `query:"min_price"`
	MaxPrice string `query:"max_price"`
}
