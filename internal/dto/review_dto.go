package dto

import "github.com/google/uuid"

type CreateReviewRequest struct {
	RevieweeID uuid.UUID  `json:"reviewee_id" validate:"required"`
	OrderID    *uuid.UUID `json:"order_id"`
	Rating     int        `json:"rating" validate:"required,min=1,max=5"`
	Comment    string     `json:"comment" validate:"max=2000"`
}
