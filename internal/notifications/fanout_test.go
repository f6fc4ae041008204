package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"greenline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedFrame struct {
	kind    string // "user" or "group"
	id      uint
	payload string
}

type publisherStub struct {
	frames []publishedFrame
	err    error
}

func (p *publisherStub) PublishUser(_ context.Context, userID uint, payload string) error {
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, publishedFrame{kind: "user", id: userID, payload: payload})
	return nil
}

func (p *publisherStub) PublishGroup(_ context.Context, groupID uint, payload string) error {
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, publishedFrame{kind: "group", id: groupID, payload: payload})
	return nil
}

func eventType(t *testing.T, payload string) string {
	t.Helper()
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	return ev.Type
}

func TestFanout_DirectMessage(t *testing.T) {
	userOne, userTwo := uint(1), uint(2)
	conv := &models.Conversation{
		ID:        10,
		Type:      models.ConversationDirect,
		UserOneID: &userOne,
		UserTwoID: &userTwo,
	}
	msg := &models.Message{ID: 100, ConversationID: 10, SenderID: userOne, Content: "hi"}

	pub := &publisherStub{}
	NewFanout(pub).MessageSent(context.Background(), conv, msg, true)

	// Lifecycle first so clients can materialize the thread, then the
	// message itself; each event goes to both participants.
	require.Len(t, pub.frames, 4)
	assert.Equal(t, EventConversationCreated, eventType(t, pub.frames[0].payload))
	assert.Equal(t, EventConversationCreated, eventType(t, pub.frames[1].payload))
	assert.Equal(t, EventNewMessage, eventType(t, pub.frames[2].payload))
	assert.Equal(t, EventNewMessage, eventType(t, pub.frames[3].payload))

	for _, f := range pub.frames {
		assert.Equal(t, "user", f.kind)
	}
	assert.Equal(t, userOne, pub.frames[0].id)
	assert.Equal(t, userTwo, pub.frames[1].id)
}

func TestFanout_ExistingConversationEmitsUpdated(t *testing.T) {
	userOne, userTwo := uint(1), uint(2)
	conv := &models.Conversation{
		ID: 10, Type: models.ConversationDirect, UserOneID: &userOne, UserTwoID: &userTwo,
	}
	pub := &publisherStub{}
	NewFanout(pub).MessageSent(context.Background(), conv, &models.Message{ID: 101}, false)

	require.Len(t, pub.frames, 4)
	assert.Equal(t, EventConversationUpdated, eventType(t, pub.frames[0].payload))
	assert.Equal(t, EventNewMessage, eventType(t, pub.frames[2].payload))
}

func TestFanout_GroupMessage(t *testing.T) {
	groupID := uint(7)
	conv := &models.Conversation{ID: 11, Type: models.ConversationGroup, GroupID: &groupID}
	msg := &models.Message{ID: 102, ConversationID: 11, SenderID: 1, Content: "crew update"}

	pub := &publisherStub{}
	NewFanout(pub).MessageSent(context.Background(), conv, msg, false)

	// One frame per event, addressed to the group channel.
	require.Len(t, pub.frames, 2)
	assert.Equal(t, "group", pub.frames[0].kind)
	assert.Equal(t, groupID, pub.frames[0].id)
	assert.Equal(t, EventConversationUpdated, eventType(t, pub.frames[0].payload))
	assert.Equal(t, EventNewMessage, eventType(t, pub.frames[1].payload))
}

func TestFanout_PublishErrorsNeverSurface(t *testing.T) {
	userOne, userTwo := uint(1), uint(2)
	conv := &models.Conversation{
		ID: 10, Type: models.ConversationDirect, UserOneID: &userOne, UserTwoID: &userTwo,
	}
	pub := &publisherStub{err: errors.New("redis down")}

	assert.NotPanics(t, func() {
		NewFanout(pub).MessageSent(context.Background(), conv, &models.Message{ID: 103}, true)
	})
	assert.Empty(t, pub.frames)
}

func TestFanout_LifecyclePayloadCarriesLastMessage(t *testing.T) {
	userOne, userTwo := uint(1), uint(2)
	updatedAt := time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC)
	conv := &models.Conversation{
		ID:        10,
		Type:      models.ConversationDirect,
		UserOneID: &userOne,
		UserTwoID: &userTwo,
		UpdatedAt: updatedAt,
	}
	msg := &models.Message{ID: 100, ConversationID: 10, SenderID: userOne, Content: "permit filed"}

	pub := &publisherStub{}
	NewFanout(pub).MessageSent(context.Background(), conv, msg, false)

	var ev struct {
		Type    string            `json:"type"`
		Payload ConversationEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(pub.frames[0].payload), &ev))
	assert.Equal(t, EventConversationUpdated, ev.Type)
	require.NotNil(t, ev.Payload.Conversation)
	assert.Equal(t, conv.ID, ev.Payload.Conversation.ID)
	require.NotNil(t, ev.Payload.LastMessage)
	assert.Equal(t, msg.ID, ev.Payload.LastMessage.ID)
	assert.Equal(t, "permit filed", ev.Payload.LastMessage.Content)
	assert.True(t, ev.Payload.UpdatedAt.Equal(updatedAt))
}

func TestFanout_NewMessagePayloadIsTheMessage(t *testing.T) {
	groupID := uint(7)
	conv := &models.Conversation{ID: 11, Type: models.ConversationGroup, GroupID: &groupID}
	msg := &models.Message{ID: 102, ConversationID: 11, SenderID: 3, Content: "readings uploaded"}

	pub := &publisherStub{}
	NewFanout(pub).MessageSent(context.Background(), conv, msg, false)

	var ev struct {
		Type           string         `json:"type"`
		ConversationID uint           `json:"conversation_id"`
		Payload        models.Message `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(pub.frames[1].payload), &ev))
	assert.Equal(t, EventNewMessage, ev.Type)
	assert.Equal(t, conv.ID, ev.ConversationID)
	assert.Equal(t, msg.ID, ev.Payload.ID)
	assert.Equal(t, "readings uploaded", ev.Payload.Content)
}
