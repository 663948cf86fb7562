package services

import (
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newChat(db *gorm.DB, pusher *fakePusher) *ChatService {
	return NewChatService(db, NewModerationService(db), NewNotificationService(db, pusher), pusher)
}

func expectActiveReceiver(mock sqlmock.Sqlmock, id uuid.UUID) {
	mock.ExpectQuery(`SELECT "id","is_active","is_suspended" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "is_suspended"}).AddRow(id.String(), true, false))
}

func TestSendRejectsBlockedSender(t *testing.T) {
	db, mock := newMockDB(t)
	receiver := uuid.New()
	expectActiveReceiver(mock, receiver)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "blocks"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	pusher := &fakePusher{}
	_, err := newChat(db, pusher).Send(uuid.New(), &dto.SendMessageRequest{ReceiverID: receiver, Content: "Is the maize still available?"})
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Empty(t, pusher.pushes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRejectsAbusiveContent(t *testing.T) {
	db, mock := newMockDB(t)
	_, err := newChat(db, &fakePusher{}).Send(uuid.New(), &dto.SendMessageRequest{ReceiverID: uuid.New(), Content: "you scammer"})
	assert.ErrorIs(t, err, ErrContentRejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendChecksPayloadRules(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newChat(db, &fakePusher{})

	cases := map[string]*dto.SendMessageRequest{
		"script image":     {ReceiverID: uuid.New(), ImageURL: "javascript:alert(1)"},
		"long content":     {ReceiverID: uuid.New(), Content: strings.Repeat("ab", 2501)},
		"plain text image": {ReceiverID: uuid.New(), ImageURL: "not a link"},
	}
	for name, req := range cases {
		_, err := svc.Send(uuid.New(), req)
		assert.ErrorIs(t, err, ErrInvalidMessage, name)
	}

	_, err := svc.Send(uuid.New(), &dto.SendMessageRequest{ReceiverID: uuid.New(), Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendAllowsContactDetailsAndPushes(t *testing.T) {
	db, mock := newMockDB(t)
	sender, receiver := uuid.New(), uuid.New()
	expectActiveReceiver(mock, receiver)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "blocks"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "messages"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectQuery(`INSERT INTO "notifications"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	pusher := &fakePusher{}
	msg, err := newChat(db, pusher).Send(sender, &dto.SendMessageRequest{ReceiverID: receiver, Content: "Call me on 0241234567 "})
	require.NoError(t, err)
	assert.Equal(t, "Call me on 0241234567", msg.Content)
	assert.Equal(t, []string{"new_message", "notification"}, pusher.events(receiver))
	assert.Equal(t, []string{"message_sent"}, pusher.events(sender))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadTellsSender(t *testing.T) {
	db, mock := newMockDB(t)
	reader, sender, msgID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "receiver_id", "content", "is_read"}).
			AddRow(msgID.String(), sender.String(), reader.String(), "Price?", false))
	mock.ExpectExec(`UPDATE "messages" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	pusher := &fakePusher{}
	msg, err := newChat(db, pusher).MarkRead(reader, msgID)
	require.NoError(t, err)
	assert.True(t, msg.IsRead)
	assert.NotNil(t, msg.ReadAt)
	assert.Equal(t, []string{"message_read"}, pusher.events(sender))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadOnlyForReceiver(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "messages"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := newChat(db, &fakePusher{}).MarkRead(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationsNewestFirstWithUnread(t *testing.T) {
	db, mock := newMockDB(t)
	me, farmer, trucker := uuid.New(), uuid.New(), uuid.New()
	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT DISTINCT ON \(partner_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"partner_id", "id", "sender_id", "receiver_id", "content", "image_url", "is_read", "created_at"}).
			AddRow(farmer.String(), uuid.NewString(), farmer.String(), me.String(), "Yams are ready", "", false, older).
			AddRow(trucker.String(), uuid.NewString(), me.String(), trucker.String(), "See you at 4", "", true, newer))
	mock.ExpectQuery(`SELECT sender_id, COUNT\(\*\) AS unread FROM "messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id", "unread"}).AddRow(farmer.String(), 2))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id IN`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).
			AddRow(farmer.String(), "f@example.com", "FARMER").
			AddRow(trucker.String(), "t@example.com", "TRANSPORTER"))
	mock.ExpectQuery(`SELECT \* FROM "profiles"`).WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))

	convs, err := newChat(db, &fakePusher{}).Conversations(me)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, trucker, convs[0].PartnerID)
	assert.Equal(t, int64(0), convs[0].UnreadCount)
	assert.Equal(t, farmer, convs[1].PartnerID)
	assert.Equal(t, int64(2), convs[1].UnreadCount)
	assert.NotNil(t, convs[1].Partner)
	assert.NoError(t, mock.ExpectationsWereMet())
}
