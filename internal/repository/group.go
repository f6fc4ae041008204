package repository

import (
	"context"
	"time"

	"greenline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository defines the interface for group and membership data operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetByIDIncludingDeleted(ctx context.Context, id uint) (*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	SoftDelete(ctx context.Context, groupID, deletedBy uint) error
	ListForUser(ctx context.Context, userID uint) ([]*models.Group, error)

	GetMember(ctx context.Context, groupID, userID uint) (*models.GroupMember, error)
	AddMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID uint) error
	UpdateMemberRole(ctx context.Context, groupID, userID uint, role models.GroupRole) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create inserts the group together with its OWNER member row. Both succeed
// or neither does, so a group can never exist without its owner membership.
func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(group).Error; err != nil {
			return err
		}
		owner := models.GroupMember{
			GroupID: group.ID,
			UserID:  group.CreatedBy,
			Role:    models.RoleOwner,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		group.Members = append([]models.GroupMember{owner}, group.Members...)
		return nil
	})
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("Members.User").
		First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByIDIncludingDeleted also returns soft-deleted groups. Used by read
// paths where historical messages must stay addressable.
func (r *groupRepository) GetByIDIncludingDeleted(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Unscoped().
		Preload("Members").
		Preload("Members.User").
		First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) Update(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Omit("Members").Save(group).Error
}

func (r *groupRepository) SoftDelete(ctx context.Context, groupID, deletedBy uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Group{}).
			Where("id = ?", groupID).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, groupID).Error
	})
}

func (r *groupRepository) ListForUser(ctx context.Context, userID uint) ([]*models.Group, error) {
	var groups []*models.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members gm ON gm.group_id = groups.id").
		Where("gm.user_id = ?", userID).
		Preload("Members").
		Preload("Members.User").
		Order("groups.name ASC").
		Find(&groups).Error
	return groups, err
}

func (r *groupRepository) GetMember(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *groupRepository) AddMember(ctx context.Context, member *models.GroupMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	// Re-adding an existing member is a no-op rather than an error.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{}).Error
}

func (r *groupRepository) UpdateMemberRole(ctx context.Context, groupID, userID uint, role models.GroupRole) error {
	return r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("role", role).Error
}
