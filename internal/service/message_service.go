package service

import (
	"context"
	"errors"
	"time"

	"greenline/internal/cache"
	"greenline/internal/models"
	"greenline/internal/observability"
	"greenline/internal/repository"

	"gorm.io/gorm"
)

const maxMessageContentLen = 10000 // 10K characters

// EventSink receives post-commit message events for real-time delivery.
// Implementations must never block the caller on transport failures; the
// persisted row is authoritative and a dropped event only costs latency.
type EventSink interface {
	MessageSent(ctx context.Context, conv *models.Conversation, msg *models.Message, created bool)
}

// MessageService provides the message send/read/delete business logic.
type MessageService struct {
	resolver  *Resolver
	msgRepo   repository.MessageRepository
	convRepo  repository.ConversationRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	fanout    EventSink
}

// NewMessageService returns a new MessageService. fanout may be nil when no
// real-time transport is wired (e.g. in tests).
func NewMessageService(
	resolver *Resolver,
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	fanout EventSink,
) *MessageService {
	return &MessageService{
		resolver:  resolver,
		msgRepo:   msgRepo,
		convRepo:  convRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		fanout:    fanout,
	}
}

// Attachment references an already-stored binary by URL plus its type tag.
type Attachment struct {
	URL  string
	Type models.AttachmentType
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	SenderID    uint
	Type        models.ConversationType
	RecipientID uint
	GroupID     uint
	Content     string
	Attachment  *Attachment
}

// SendMessage resolves the target conversation, persists the message and
// hands the committed result to the fanout. The returned flag reports
// whether the conversation was created by this send.
func (s *MessageService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, *models.Conversation, bool, error) {
	if in.Content == "" && in.Attachment == nil {
		return nil, nil, false, models.NewValidationError("Message requires content or an attachment")
	}
	if len(in.Content) > maxMessageContentLen {
		return nil, nil, false, models.NewValidationError("Message content too long (max 10000 characters)")
	}

	var (
		conv    *models.Conversation
		created bool
		err     error
	)
	switch in.Type {
	case models.ConversationDirect:
		if in.RecipientID == 0 {
			return nil, nil, false, models.NewValidationError("to_user_id is required for direct messages")
		}
		conv, created, err = s.resolver.ResolveDirect(ctx, in.SenderID, in.RecipientID)
	case models.ConversationGroup:
		if in.GroupID == 0 {
			return nil, nil, false, models.NewValidationError("group_id is required for group messages")
		}
		conv, created, err = s.resolver.ResolveGroup(ctx, in.SenderID, in.GroupID)
	default:
		return nil, nil, false, models.NewValidationError("Message type must be DIRECT or GROUP")
	}
	if err != nil {
		return nil, nil, false, err
	}

	message := &models.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		CreatedAt:      time.Now().UTC(),
	}
	if in.Attachment != nil {
		message.AttachmentURL = in.Attachment.URL
		message.AttachmentType = in.Attachment.Type
	}
	if err := s.msgRepo.Append(ctx, message); err != nil {
		return nil, nil, false, err
	}
	conv.UpdatedAt = message.CreatedAt
	observability.MessagesStored.WithLabelValues(string(conv.Type)).Inc()

	if sender, err := s.cachedUser(ctx, in.SenderID); err == nil {
		message.Sender = sender
	}

	// The write is committed; delivery failures from here on are the
	// fanout's problem, never the caller's.
	if s.fanout != nil {
		s.fanout.MessageSent(ctx, conv, message, created)
	}

	return message, conv, created, nil
}

// GetMessages returns one chronological page of history for a conversation
// the user can access, plus the cursor for the next (older) page. Reading
// history moves the caller's read cursor to now.
func (s *MessageService) GetMessages(ctx context.Context, convID, userID uint, limit int, cursor uint) ([]*models.Message, *uint, error) {
	conv, err := s.getConversation(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkAccess(ctx, conv, userID); err != nil {
		return nil, nil, err
	}

	messages, err := s.msgRepo.Page(ctx, convID, limit, cursor)
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *uint
	if len(messages) == limit {
		// Oldest message returned; a null cursor signals exhausted history.
		oldest := messages[0].ID
		nextCursor = &oldest
	}

	if err := s.msgRepo.UpsertRead(ctx, convID, userID, time.Now().UTC()); err != nil {
		return nil, nil, err
	}

	return messages, nextCursor, nil
}

// MarkRead moves the user's read cursor for the conversation to now.
// Idempotent; never blocks writes.
func (s *MessageService) MarkRead(ctx context.Context, convID, userID uint) error {
	conv, err := s.getConversation(ctx, convID)
	if err != nil {
		return err
	}
	if err := s.checkAccess(ctx, conv, userID); err != nil {
		return err
	}
	return s.msgRepo.UpsertRead(ctx, convID, userID, time.Now().UTC())
}

// DeleteMessage hard-deletes a message. Only the original sender may delete.
func (s *MessageService) DeleteMessage(ctx context.Context, msgID, userID uint) error {
	msg, err := s.msgRepo.GetByID(ctx, msgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Message", msgID)
		}
		return err
	}
	if msg.SenderID != userID {
		return models.NewUnauthorizedError("Only the sender can delete a message")
	}
	return s.msgRepo.Delete(ctx, msgID)
}

// ConversationSummary is one row of the caller's conversation list.
type ConversationSummary struct {
	ID          uint                    `json:"id"`
	Type        models.ConversationType `json:"type"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Peer        *models.UserSummary     `json:"peer,omitempty"`
	Group       *GroupSummary           `json:"group,omitempty"`
	LastMessage *models.Message         `json:"last_message,omitempty"`
	UnreadCount int64                   `json:"unread_count"`
}

// GroupSummary is the compact group shape embedded in conversation lists and
// events.
type GroupSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// ListConversations returns every conversation visible to the user with its
// last message and unread count, most recently active first.
func (s *MessageService) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	conversations, err := s.convRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary := ConversationSummary{
			ID:        conv.ID,
			Type:      conv.Type,
			UpdatedAt: conv.UpdatedAt,
		}

		if conv.Type == models.ConversationDirect {
			peer := conv.UserOne
			if peer != nil && peer.ID == userID {
				peer = conv.UserTwo
			}
			if peer != nil {
				ps := peer.Summary()
				summary.Peer = &ps
			}
		} else if conv.Group != nil {
			summary.Group = &GroupSummary{
				ID:      conv.Group.ID,
				Name:    conv.Group.Name,
				Avatar:  conv.Group.Avatar,
				Deleted: conv.Group.DeletedAt.Valid,
			}
		}

		last, err := s.msgRepo.LastMessage(ctx, conv.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		summary.LastMessage = last

		unread, err := s.msgRepo.UnreadCount(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// UnreadCount returns the number of unread messages in one conversation.
func (s *MessageService) UnreadCount(ctx context.Context, convID, userID uint) (int64, error) {
	conv, err := s.getConversation(ctx, convID)
	if err != nil {
		return 0, err
	}
	if err := s.checkAccess(ctx, conv, userID); err != nil {
		return 0, err
	}
	return s.msgRepo.UnreadCount(ctx, convID, userID)
}

func (s *MessageService) getConversation(ctx context.Context, convID uint) (*models.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", convID)
		}
		return nil, err
	}
	return conv, nil
}

// checkAccess verifies the user may read the conversation: a direct
// participant, or a member of the conversation's group. Membership in a
// soft-deleted group still grants read access to the history.
func (s *MessageService) checkAccess(ctx context.Context, conv *models.Conversation, userID uint) error {
	switch conv.Type {
	case models.ConversationDirect:
		if !conv.HasDirectParticipant(userID) {
			return models.NewUnauthorizedError("You are not a participant in this conversation")
		}
		return nil
	case models.ConversationGroup:
		if conv.GroupID == nil {
			return models.NewUnauthorizedError("You are not a participant in this conversation")
		}
		if _, err := s.groupRepo.GetMember(ctx, *conv.GroupID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewUnauthorizedError("You are not a member of this group")
			}
			return err
		}
		return nil
	}
	return models.NewUnauthorizedError("You are not a participant in this conversation")
}

// cachedUser resolves sender display fields through the cache-aside helper.
func (s *MessageService) cachedUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(userID), &user, cache.UserTTL, func() error {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
