package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleFarmer      = "FARMER"
	RoleBuyer       = "BUYER"
	RoleTransporter = "TRANSPORTER"
	RoleSupplier    = "SUPPLIER"
	RoleAdmin       = "ADMIN"
)

// SignupRoles are the roles a user may pick for themselves.
var SignupRoles = []string{RoleFarmer, RoleBuyer, RoleTransporter, RoleSupplier}

// IsValidRole reports whether role is a known role, ADMIN included.
func IsValidRole(role string) bool {
	switch role {
	case RoleFarmer, RoleBuyer, RoleTransporter, RoleSupplier, RoleAdmin:
		return true
	}
	return false
}

// IsSignupRole reports whether role can be chosen at registration.
func IsSignupRole(role string) bool {
	return role != RoleAdmin && IsValidRole(role)
}

type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email       string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password    string         `gorm:"not null;default:''" json:"-"`
	Role        string         `gorm:"size:20;not null;default:'BUYER';index" json:"role"`
	GoogleID    *string        `gorm:"size:255;uniqueIndex" json:"-"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	IsSuspended bool           `gorm:"not null;default:false" json:"is_suspended"`
	IsVerified  bool           `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Profile     *Profile       `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// CanSignIn is false for deactivated or suspended accounts.
func (u *User) CanSignIn() bool {
	return u.IsActive && !u.IsSuspended
}

type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Phone     string    `gorm:"size:30" json:"phone,omitempty"`
	Avatar    string    `gorm:"size:500" json:"avatar,omitempty"`
	Address   string    `gorm:"size:255" json:"address,omitempty"`
	City      string    `gorm:"size:100" json:"city,omitempty"`
	Region    string    `gorm:"size:100" json:"region,omitempty"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
