package repository

import (
	"context"
	"errors"
	"time"

	"greenline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines the interface for message and read-cursor data operations
type MessageRepository interface {
	Append(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	Page(ctx context.Context, convID uint, limit int, cursor uint) ([]*models.Message, error)
	LastMessage(ctx context.Context, convID uint) (*models.Message, error)
	Delete(ctx context.Context, id uint) error
	UpsertRead(ctx context.Context, convID, userID uint, at time.Time) error
	GetRead(ctx context.Context, convID, userID uint) (*models.ConversationRead, error)
	UnreadCount(ctx context.Context, convID, userID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append writes the message and bumps the parent conversation's last-activity
// timestamp in one transaction. Either both land or neither does, so the
// conversation ordering timestamp is never stale relative to its messages.
func (r *messageRepository) Append(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender").Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).Preload("Sender").First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Page returns up to limit messages strictly older than the cursor message
// (cursor 0 means "from the newest"), in chronological order. Messages are
// fetched newest-first so the page always holds the latest history, then
// reversed because clients render oldest -> newest.
func (r *messageRepository) Page(ctx context.Context, convID uint, limit int, cursor uint) ([]*models.Message, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var messages []*models.Message
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) LastMessage(ctx context.Context, convID uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	// Hard delete; messages are leaves so nothing cascades.
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Message{}, id).Error
}

// UpsertRead moves the user's read cursor to at. The cursor only ever moves
// forward: a stale timestamp never overwrites a newer one.
func (r *messageRepository) UpsertRead(ctx context.Context, convID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_read_at": gorm.Expr(
				"CASE WHEN excluded.last_read_at > conversation_reads.last_read_at" +
					" THEN excluded.last_read_at ELSE conversation_reads.last_read_at END"),
		}),
	}).Create(&models.ConversationRead{
		ConversationID: convID,
		UserID:         userID,
		LastReadAt:     at,
	}).Error
}

func (r *messageRepository) GetRead(ctx context.Context, convID, userID uint) (*models.ConversationRead, error) {
	var read models.ConversationRead
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		First(&read).Error
	if err != nil {
		return nil, err
	}
	return &read, nil
}

// UnreadCount counts messages from other senders newer than the user's read
// cursor. A missing cursor counts from the epoch, i.e. everything.
func (r *messageRepository) UnreadCount(ctx context.Context, convID, userID uint) (int64, error) {
	since := time.Unix(0, 0).UTC()
	if read, err := r.GetRead(ctx, convID, userID); err == nil {
		since = read.LastReadAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND created_at > ?", convID, userID, since).
		Count(&count).Error
	return count, err
}
