package services

import (
	"encoding/json"
	"errors"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrForbidden is returned when the caller is authenticated but is not a
// party to the resource.
var ErrForbidden = errors.New("you do not have access to this resource")

// Pusher delivers a real-time event to every open connection of a user.
// It reports false when the user has no connection.
type Pusher interface {
	SendToUser(userID uuid.UUID, event string, data interface{}) bool
}

type nopPusher struct{}

func (nopPusher) SendToUser(uuid.UUID, string, interface{}) bool { return false }

// paginate applies LIMIT/OFFSET for an already normalized page query.
func paginate(q dto.PageQuery) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(q.Limit).Offset((q.Page - 1) * q.Limit)
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
