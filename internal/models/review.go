package models

import (
	"time"

	"github.com/google/uuid"
)

// Review of one user by another, optionally tied to an order. Hidden until
// approved by an admin.
type Review struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReviewerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"reviewer_id"`
	RevieweeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"reviewee_id"`
	OrderID    *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"order_id,omitempty"`
	Rating     int        `gorm:"not null" json:"rating"`
	Comment    string     `gorm:"type:text" json:"comment,omitempty"`
	IsApproved bool       `gorm:"not null;default:false;index" json:"is_approved"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Reviewer   *User      `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}
