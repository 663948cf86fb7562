package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CategoryCrops     = "CROPS"
	CategoryLivestock = "LIVESTOCK"
	CategoryInputs    = "INPUTS"
)

func IsValidCategory(c string) bool {
	return c == CategoryCrops || c == CategoryLivestock || c == CategoryInputs
}

// Product is a seller listing. It is only visible in the marketplace once
// approved by an admin, available and not soft-deleted.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"seller_id"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"size:20;not null;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
	Unit        string          `gorm:"size:20;not null;default:'kg'" json:"unit"`
	IsApproved  bool            `gorm:"not null;default:false;index" json:"is_approved"`
	IsAvailable bool            `gorm:"not null;default:true" json:"is_available"`
	Views       int             `gorm:"not null;default:0" json:"views"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
	Seller      *User           `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Images      []ProductImage  `gorm:"foreignKey:ProductID" json:"images"`
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	URL       string    `gorm:"size:500;not null" json:"url"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
