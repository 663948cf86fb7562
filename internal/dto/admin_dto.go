package dto

import "github.com/shopspring/decimal"

type UserFilter struct {
	PageQuery
	Role   string `query:"role"`
	Search string `query:"search"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=FARMER BUYER TRANSPORTER SUPPLIER ADMIN"`
}

type SuspendRequest struct {
	IsSuspended *bool `json:"is_suspended" validate:"required"`
}

type ApprovalRequest struct {
	IsApproved *bool `json:"is_approved" validate:"required"`
}

type CreateAPIKeyRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Service     string `json:"service" validate:"required,max=50"`
	KeyType     string `json:"key_type" validate:"required,oneof=public secret api_key"`
	Value       string `json:"value" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

type UpdateAPIKeyRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Value       *string `json:"value"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// APIKeyView never carries the full secret.
type APIKeyView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Service     string `json:"service"`
	KeyType     string `json:"key_type"`
	MaskedValue string `json:"masked_value"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

type Analytics struct {
	TotalUsers     int64            `json:"total_users"`
	TotalProducts  int64            `json:"total_products"`
	TotalOrders    int64            `json:"total_orders"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	UsersByRole    map[string]int64 `json:"users_by_role"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	RecentOrders   interface{}      `json:"recent_orders"`
	TopProducts    interface{}      `json:"top_products"`
}
