package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(hub *Hub, userID uuid.UUID, buffer int, chat ChatBackend) *Client {
	return &Client{hub: hub, send: make(chan []byte, buffer), userID: userID, chat: chat}
}

func nextEvent(t *testing.T, c *Client) outbound {
	t.Helper()
	select {
	case raw := <-c.send:
		var out outbound
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	default:
		t.Fatal("no event queued")
		return outbound{}
	}
}

func TestHubDeliversToEveryConnection(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	phone, browser := testClient(hub, user, 4, nil), testClient(hub, user, 4, nil)
	hub.Register(phone)
	hub.Register(browser)

	assert.True(t, hub.IsOnline(user))
	assert.Equal(t, 1, hub.OnlineCount())
	assert.True(t, hub.SendToUser(user, "notification", map[string]string{"title": "Order confirmed"}))

	assert.Equal(t, "notification", nextEvent(t, phone).Event)
	assert.Equal(t, "notification", nextEvent(t, browser).Event)

	assert.False(t, hub.SendToUser(uuid.New(), "notification", nil))
}

func TestHubDropsFullConnection(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	slow := testClient(hub, user, 1, nil)
	hub.Register(slow)

	assert.True(t, hub.SendToUser(user, "new_message", 1))
	assert.False(t, hub.SendToUser(user, "new_message", 2))
	assert.False(t, hub.IsOnline(user))

	// buffered event is still readable, then the channel is closed
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)

	// unregistering after a drop must not close twice
	assert.NotPanics(t, func() { hub.Unregister(slow) })
}

func TestReplyAfterDropIsDiscarded(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	stalled := testClient(hub, user, 1, &fakeChat{})
	hub.Register(stalled)

	hub.SendToUser(user, "typing", 1)
	hub.SendToUser(user, "typing", 2)
	require.False(t, hub.IsOnline(user))

	assert.NotPanics(t, func() { stalled.handle([]byte("not json")) })
	assert.NotPanics(t, func() { stalled.handle([]byte(`{"event":"dance"}`)) })
}

type fakeChat struct {
	sent    []*dto.SendMessageRequest
	read    []uuid.UUID
	typing  []dto.TypingEvent
	sendErr error
}

func (f *fakeChat) Send(senderID uuid.UUID, req *dto.SendMessageRequest) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, req)
	return &models.Message{ID: uuid.New(), SenderID: senderID, ReceiverID: req.ReceiverID}, nil
}

func (f *fakeChat) MarkRead(userID, messageID uuid.UUID) (*models.Message, error) {
	f.read = append(f.read, messageID)
	return &models.Message{ID: messageID}, nil
}

func (f *fakeChat) Typing(userID uuid.UUID, ev dto.TypingEvent) {
	f.typing = append(f.typing, ev)
}

func TestClientDispatchesEvents(t *testing.T) {
	chat := &fakeChat{}
	hub := NewHub()
	c := testClient(hub, uuid.New(), 8, chat)
	hub.Register(c)
	receiver, msgID := uuid.New(), uuid.New()

	c.handle([]byte(fmt.Sprintf(`{"event":"send_message","data":{"receiver_id":%q,"content":"Is the maize still available?"}}`, receiver)))
	c.handle([]byte(fmt.Sprintf(`{"event":"typing","data":{"receiver_id":%q,"is_typing":true}}`, receiver)))
	c.handle([]byte(fmt.Sprintf(`{"event":"mark_read","data":{"message_id":%q}}`, msgID)))

	require.Len(t, chat.sent, 1)
	assert.Equal(t, receiver, chat.sent[0].ReceiverID)
	require.Len(t, chat.typing, 1)
	assert.True(t, chat.typing[0].IsTyping)
	assert.Equal(t, []uuid.UUID{msgID}, chat.read)
	assert.Len(t, c.send, 0)
}

func TestClientReportsErrors(t *testing.T) {
	chat := &fakeChat{sendErr: services.ErrBlocked}
	hub := NewHub()
	c := testClient(hub, uuid.New(), 8, chat)
	hub.Register(c)

	c.handle([]byte(`not json`))
	out := nextEvent(t, c)
	assert.Equal(t, "error", out.Event)

	c.handle([]byte(`{"event":"dance"}`))
	out = nextEvent(t, c)
	assert.Equal(t, map[string]interface{}{"message": "unknown event: dance"}, out.Data)

	c.handle([]byte(fmt.Sprintf(`{"event":"send_message","data":{"receiver_id":%q,"content":"hi"}}`, uuid.New())))
	out = nextEvent(t, c)
	assert.Equal(t, map[string]interface{}{"message": services.ErrBlocked.Error()}, out.Data)

	chat.sendErr = fmt.Errorf("pq: connection reset")
	c.handle([]byte(fmt.Sprintf(`{"event":"send_message","data":{"receiver_id":%q,"content":"hi"}}`, uuid.New())))
	out = nextEvent(t, c)
	assert.Equal(t, map[string]interface{}{"message": "something went wrong"}, out.Data)
}
