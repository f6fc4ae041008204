package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"greenline/internal/models"
	"greenline/internal/observability"
)

// Event is the envelope for every frame delivered over the websocket.
type Event struct {
	Type           string      `json:"type"`
	ConversationID uint        `json:"conversation_id"`
	Payload        interface{} `json:"payload"`
}

// Event type names as seen by clients.
const (
	EventNewMessage          = "newMessage"
	EventConversationCreated = "conversationCreated"
	EventConversationUpdated = "conversationUpdated"
)

// ConversationEvent is the payload of conversation lifecycle events. It
// carries the triggering message so clients can reorder their lists and
// render a preview without waiting for the newMessage frame.
type ConversationEvent struct {
	Conversation *models.Conversation `json:"conversation"`
	LastMessage  *models.Message      `json:"last_message"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Publisher abstracts the pub/sub transport a Fanout publishes through.
// *Notifier satisfies it.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
	PublishGroup(ctx context.Context, groupID uint, payload string) error
}

// Fanout turns committed message writes into real-time events. Direct
// conversations publish to both participants' user channels, the sender
// included so their other devices stay in sync. Group conversations publish
// once to the group channel.
//
// Delivery is best effort. Failures are counted and logged, never surfaced
// to the sender; the stored row is the source of truth and clients recover
// missed events by re-fetching history.
type Fanout struct {
	pub Publisher
}

// NewFanout returns a Fanout publishing through pub.
func NewFanout(pub Publisher) *Fanout {
	return &Fanout{pub: pub}
}

// MessageSent implements the post-commit event hook of the message service.
// A send that created its conversation emits conversationCreated first, so
// clients can materialize the thread before the message arrives; subsequent
// sends emit conversationUpdated to reorder conversation lists.
func (f *Fanout) MessageSent(ctx context.Context, conv *models.Conversation, msg *models.Message, created bool) {
	lifecycle := EventConversationUpdated
	if created {
		lifecycle = EventConversationCreated
	}

	f.publish(ctx, conv, Event{
		Type:           lifecycle,
		ConversationID: conv.ID,
		Payload: &ConversationEvent{
			Conversation: conv,
			LastMessage:  msg,
			UpdatedAt:    conv.UpdatedAt,
		},
	})
	f.publish(ctx, conv, Event{
		Type:           EventNewMessage,
		ConversationID: conv.ID,
		Payload:        msg,
	})
}

func (f *Fanout) publish(ctx context.Context, conv *models.Conversation, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		observability.FanoutErrors.WithLabelValues(ev.Type).Inc()
		slog.Error("fanout marshal failed", "event", ev.Type, "conversation_id", conv.ID, "error", err)
		return
	}
	payload := string(frame)

	switch conv.Type {
	case models.ConversationDirect:
		for _, userID := range []*uint{conv.UserOneID, conv.UserTwoID} {
			if userID == nil {
				continue
			}
			if err := f.pub.PublishUser(ctx, *userID, payload); err != nil {
				observability.FanoutErrors.WithLabelValues(ev.Type).Inc()
				slog.Error("fanout publish failed", "event", ev.Type,
					"conversation_id", conv.ID, "user_id", *userID, "error", err)
				continue
			}
			observability.FanoutEvents.WithLabelValues(ev.Type).Inc()
		}
	case models.ConversationGroup:
		if conv.GroupID == nil {
			return
		}
		if err := f.pub.PublishGroup(ctx, *conv.GroupID, payload); err != nil {
			observability.FanoutErrors.WithLabelValues(ev.Type).Inc()
			slog.Error("fanout publish failed", "event", ev.Type,
				"conversation_id", conv.ID, "group_id", *conv.GroupID, "error", err)
			return
		}
		observability.FanoutEvents.WithLabelValues(ev.Type).Inc()
	}
}
