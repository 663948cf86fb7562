package dto

import (
	"time"

	"github.com/google/uuid"
)

type UpdateProfileRequest struct {
	FirstName *string  `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string  `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string  `json:"phone" validate:"omitempty,max=30"`
	Avatar    *string  `json:"avatar" validate:"omitempty,url"`
	Address   *string  `json:"address" validate:"omitempty,max=255"`
	City      *string  `json:"city" validate:"omitempty,max=100"`
	Region    *string  `json:"region" validate:"omitempty,max=100"`
	Bio       *string  `json:"bio" validate:"omitempty,max=2000"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// UserSummary is what other marketplace users may see of an account.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	City       string    `json:"city,omitempty"`
	Region     string    `json:"region,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
}

type PublicUser struct {
	User          UserSummary `json:"user"`
	AverageRating float64     `json:"average_rating"`
	TotalReviews  int64       `json:"total_reviews"`
}

type NotificationFilter struct {
	PageQuery
	UnreadOnly bool `query:"unread_only"`
}
