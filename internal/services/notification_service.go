package services

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationService struct {
	db     *gorm.DB
	pusher Pusher
}

func NewNotificationService(db *gorm.DB, pusher Pusher) *NotificationService {
	if pusher == nil {
		pusher = nopPusher{}
	}
	return &NotificationService{db: db, pusher: pusher}
}

// Create stores a notification inside tx. Call Deliver once tx commits.
func (s *NotificationService) Create(tx *gorm.DB, userID uuid.UUID, kind, title, message string, data interface{}) (*models.Notification, error) {
	n := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Data:    toJSON(data),
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// Deliver pushes already stored notifications to connected recipients.
func (s *NotificationService) Deliver(notes ...*models.Notification) {
	for _, n := range notes {
		if n == nil {
			continue
		}
		s.pusher.SendToUser(n.UserID, "notification", n)
	}
}

// Notify stores and delivers in one step, outside any transaction.
func (s *NotificationService) Notify(userID uuid.UUID, kind, title, message string, data interface{}) {
	n, err := s.Create(s.db, userID, kind, title, message, data)
	if err != nil {
		slog.Error("notification create failed", "user_id", userID.String(), "error", err)
		return
	}
	s.Deliver(n)
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
	Pagination    dto.Pagination        `json:"pagination"`
}

func (s *NotificationService) List(userID uuid.UUID, f dto.NotificationFilter) (*NotificationPage, error) {
	f.Normalize(20, 100)

	q := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var notes []models.Notification
	if err := q.Order("created_at DESC").Scopes(paginate(f.PageQuery)).Find(&notes).Error; err != nil {
		return nil, err
	}

	var unread int64
	if err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notes,
		UnreadCount:   unread,
		Pagination:    dto.NewPagination(f.Page, f.Limit, total),
	}, nil
}

func (s *NotificationService) MarkRead(userID, id uuid.UUID) error {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uuid.UUID) (int64, error) {
	res := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}
