package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrSelfMessage     = errors.New("you cannot message yourself")
	ErrBlocked         = errors.New("this user is not accepting your messages")
	ErrEmptyMessage    = errors.New("message content or image is required")
	ErrInvalidMessage  = errors.New("invalid message")
)

// messageRules checks SendMessageRequest for callers that bypass the HTTP
// body validator, such as the WebSocket send_message event.
var messageRules = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

func checkMessage(req *dto.SendMessageRequest) error {
	err := messageRules.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ErrInvalidMessage
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required_without":
		return ErrEmptyMessage
	case "max":
		return fmt.Errorf("%w: %s is too long", ErrInvalidMessage, fe.Field())
	case "http_url":
		return fmt.Errorf("%w: image must be an http or https link", ErrInvalidMessage)
	}
	return fmt.Errorf("%w: %s is required", ErrInvalidMessage, fe.Field())
}

type ChatService struct {
	db            *gorm.DB
	moderation    *ModerationService
	notifications *NotificationService
	pusher        Pusher
}

func NewChatService(db *gorm.DB, moderation *ModerationService, notifications *NotificationService, pusher Pusher) *ChatService {
	if pusher == nil {
		pusher = nopPusher{}
	}
	return &ChatService{db: db, moderation: moderation, notifications: notifications, pusher: pusher}
}

type conversationRow struct {
	PartnerID  uuid.UUID
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Content    string
	ImageURL   string
	IsRead     bool
	CreatedAt  time.Time
}

// Conversations returns one entry per chat partner, newest first, with the
// last message and the number of unread messages from that partner.
func (s *ChatService) Conversations(userID uuid.UUID) ([]dto.Conversation, error) {
	var rows []conversationRow
	err := s.db.Raw(`
		SELECT DISTINCT ON (partner_id) partner_id, id, sender_id, receiver_id, content, image_url, is_read, created_at
		FROM (
			SELECT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner_id,
			       id, sender_id, receiver_id, content, image_url, is_read, created_at
			FROM messages
			WHERE (sender_id = ? OR receiver_id = ?) AND deleted_at IS NULL
		) m
		ORDER BY partner_id, created_at DESC`, userID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []dto.Conversation{}, nil
	}

	var counts []struct {
		SenderID uuid.UUID
		Unread   int64
	}
	if err := s.db.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	unread := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		unread[c.SenderID] = c.Unread
	}

	partnerIDs := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		partnerIDs[i] = r.PartnerID
	}
	var partners []models.User
	if err := s.db.Preload("Profile").Where("id IN ?", partnerIDs).Find(&partners).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.User, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	out := make([]dto.Conversation, 0, len(rows))
	for _, r := range rows {
		conv := dto.Conversation{
			PartnerID: r.PartnerID,
			LastMessage: models.Message{
				ID: r.ID, SenderID: r.SenderID, ReceiverID: r.ReceiverID,
				Content: r.Content, ImageURL: r.ImageURL, IsRead: r.IsRead, CreatedAt: r.CreatedAt,
			},
			LastAt:      r.CreatedAt,
			UnreadCount: unread[r.PartnerID],
		}
		if p, ok := byID[r.PartnerID]; ok {
			conv.Partner = publicUser(&p)
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAt.After(out[j].LastAt) })
	return out, nil
}

// Messages returns a page of the conversation with partnerID, oldest first,
// and marks the partner's messages as read.
func (s *ChatService) Messages(userID, partnerID uuid.UUID, q dto.PageQuery) ([]models.Message, error) {
	q.Normalize(50, 200)

	var msgs []models.Message
	err := s.db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, partnerID, partnerID, userID).
		Order("created_at DESC").
		Scopes(paginate(q)).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	now := time.Now()
	res := s.db.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", partnerID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error == nil && res.RowsAffected > 0 {
		s.pusher.SendToUser(partnerID, "message_read", map[string]interface{}{
			"reader_id": userID,
			"read_at":   now,
		})
	}
	return msgs, nil
}

// Send stores a message and pushes it to both parties' open connections.
// Offline receivers pick it up through Messages.
func (s *ChatService) Send(senderID uuid.UUID, req *dto.SendMessageRequest) (*models.Message, error) {
	if err := checkMessage(req); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		return nil, ErrEmptyMessage
	}
	if req.ReceiverID == senderID {
		return nil, ErrSelfMessage
	}
	if err := s.moderation.CheckMessage(content); err != nil {
		return nil, err
	}

	var receiver models.User
	if err := s.db.Select("id", "is_active", "is_suspended").First(&receiver, "id = ?", req.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !receiver.CanSignIn() {
		return nil, ErrUserNotFound
	}

	blocked, err := s.moderation.IsBlocked(req.ReceiverID, senderID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	msg := models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    content,
		ImageURL:   req.ImageURL,
	}
	var note *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		preview := content
		if preview == "" {
			preview = "Sent you a photo"
		} else if r := []rune(preview); len(r) > 80 {
			preview = string(r[:80]) + "..."
		}
		var err error
		note, err = s.notifications.Create(tx, req.ReceiverID, models.NotificationMessage, "New message", preview,
			map[string]string{"messageId": msg.ID.String(), "senderId": senderID.String()})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.pusher.SendToUser(req.ReceiverID, "new_message", msg)
	s.pusher.SendToUser(senderID, "message_sent", msg)
	s.notifications.Deliver(note)
	return &msg, nil
}

// MarkRead marks one received message as read and tells its sender.
func (s *ChatService) MarkRead(userID, messageID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := s.db.First(&msg, "id = ? AND receiver_id = ?", messageID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.IsRead {
		return &msg, nil
	}

	now := time.Now()
	res := s.db.Model(&models.Message{}).
		Where("id = ? AND is_read = ?", msg.ID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	msg.IsRead, msg.ReadAt = true, &now

	if res.RowsAffected > 0 {
		s.pusher.SendToUser(msg.SenderID, "message_read", map[string]interface{}{
			"message_id": msg.ID,
			"reader_id":  userID,
			"read_at":    now,
		})
	}
	return &msg, nil
}

// Typing relays a typing indicator. Nothing is stored.
func (s *ChatService) Typing(userID uuid.UUID, ev dto.TypingEvent) {
	if ev.ReceiverID == uuid.Nil || ev.ReceiverID == userID {
		return
	}
	s.pusher.SendToUser(ev.ReceiverID, "user_typing", map[string]interface{}{
		"user_id":   userID,
		"is_typing": ev.IsTyping,
	})
}
