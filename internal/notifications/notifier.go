package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes chat events into Redis channels. A nil Redis client
// turns every method into a no-op, which keeps single-node deployments and
// tests working without Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishGroup sends an event payload to a group's channel.
func (n *Notifier) PublishGroup(ctx context.Context, groupID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, GroupChannel(groupID), payload).Err()
}

// StartChatSubscriber subscribes to the chat channel patterns and calls
// onMessage for each incoming event. onMessage receives channel and payload.
func (n *Notifier) StartChatSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:user:*", "chat:group:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in chat subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "chat:user:" + strconv.FormatUint(uint64(userID), 10)
}

// GroupChannel derives the Redis channel name for a group.
func GroupChannel(groupID uint) string {
	return "chat:group:" + strconv.FormatUint(uint64(groupID), 10)
}
