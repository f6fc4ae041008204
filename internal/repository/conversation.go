package repository

import (
	"context"

	"greenline/internal/models"

	"gorm.io/gorm"
)

// ConversationRepository defines the interface for conversation data operations
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	FindDirect(ctx context.Context, userA, userB uint) (*models.Conversation, error)
	FindByGroup(ctx context.Context, groupID uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]*models.Conversation, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create inserts the conversation row. The pair_key and group_id unique
// indexes make concurrent first-sends collide here; callers treat a
// duplicated-key error as "someone else won the race" and re-read.
func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("UserOne").
		Preload("UserTwo").
		First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirect looks up the DIRECT conversation for an unordered user pair.
// The normalized pair key covers both storage orderings in one indexed read.
func (r *conversationRepository) FindDirect(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("type = ? AND pair_key = ?", models.ConversationDirect, models.DirectPairKey(userA, userB)).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByGroup(ctx context.Context, groupID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("type = ? AND group_id = ?", models.ConversationGroup, groupID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns every conversation visible to the user: direct
// conversations the user participates in and group conversations for groups
// the user is a member of, most recently active first. Soft-deleted groups
// stay listed so their history remains reachable.
func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Where(
			"(type = ? AND (user_one_id = ? OR user_two_id = ?)) OR (type = ? AND group_id IN (?))",
			models.ConversationDirect, userID, userID,
			models.ConversationGroup,
			r.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID),
		).
		Preload("UserOne").
		Preload("UserTwo").
		Preload("Group", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}
