package service

import (
	"context"
	"errors"

	"greenline/internal/cache"
	"greenline/internal/models"
	"greenline/internal/repository"

	"gorm.io/gorm"
)

// GroupService provides group lifecycle and membership business logic.
type GroupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
}

// NewGroupService returns a new GroupService.
func NewGroupService(groupRepo repository.GroupRepository, userRepo repository.UserRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo, userRepo: userRepo}
}

// CreateGroupInput is the input for creating a group.
type CreateGroupInput struct {
	CreatorID   uint
	Name        string
	Description string
	MemberIDs   []uint
}

// CreateGroup creates the group with the creator as its OWNER member, then
// adds the requested members with the MEMBER role.
func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	if in.Name == "" {
		return nil, models.NewValidationError("Group name is required")
	}

	group := &models.Group{
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   in.CreatorID,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	for _, memberID := range in.MemberIDs {
		if memberID == in.CreatorID {
			continue
		}
		if _, err := s.userRepo.GetByID(ctx, memberID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("User", memberID)
			}
			return nil, err
		}
		if err := s.groupRepo.AddMember(ctx, &models.GroupMember{
			GroupID: group.ID,
			UserID:  memberID,
			Role:    models.RoleMember,
		}); err != nil {
			return nil, err
		}
	}

	return s.groupRepo.GetByID(ctx, group.ID)
}

// GetGroup returns the group with members, for members only.
func (s *GroupService) GetGroup(ctx context.Context, groupID, userID uint) (*models.Group, error) {
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	var group models.Group
	err := cache.Aside(ctx, cache.GroupKey(groupID), &group, cache.GroupTTL, func() error {
		g, err := s.groupRepo.GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		group = *g
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", groupID)
		}
		return nil, err
	}
	return &group, nil
}

// ListGroups returns the live groups the user belongs to.
func (s *GroupService) ListGroups(ctx context.Context, userID uint) ([]*models.Group, error) {
	return s.groupRepo.ListForUser(ctx, userID)
}

// UpdateGroup renames or re-describes a group. Owner or admin only.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID, actorID uint, name, description string) (*models.Group, error) {
	if err := s.requireManager(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, models.NewValidationError("Group name is required")
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", groupID)
		}
		return nil, err
	}

	group.Name = name
	group.Description = description
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}
	cache.InvalidateGroup(ctx, groupID)

	return group, nil
}

// AddMember adds a user to a group. Owner or admin only; the OWNER role can
// never be granted.
func (s *GroupService) AddMember(ctx context.Context, groupID, actorID, userID uint, role models.GroupRole) error {
	if err := s.requireManager(ctx, groupID, actorID); err != nil {
		return err
	}
	if role == "" {
		role = models.RoleMember
	}
	if role == models.RoleOwner {
		return models.NewConflictError("Owner role cannot be assigned")
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return models.NewValidationError("Role must be MEMBER or ADMIN")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", userID)
		}
		return err
	}
	if !user.Active {
		return models.NewValidationError("User is not active")
	}

	if err := s.groupRepo.AddMember(ctx, &models.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	}); err != nil {
		return err
	}
	cache.InvalidateGroup(ctx, groupID)
	return nil
}

// RemoveMember removes a member. Members may remove themselves; otherwise
// owner or admin only. The owner can never be removed.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, userID uint) error {
	target, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleOwner {
		return models.NewConflictError("Group owner cannot be removed")
	}
	if actorID != userID {
		if err := s.requireManager(ctx, groupID, actorID); err != nil {
			return err
		}
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	cache.InvalidateGroup(ctx, groupID)
	return nil
}

// ChangeRole switches a member between MEMBER and ADMIN. Owner or admin
// only; the owner's role is immutable.
func (s *GroupService) ChangeRole(ctx context.Context, groupID, actorID, userID uint, role models.GroupRole) error {
	if err := s.requireManager(ctx, groupID, actorID); err != nil {
		return err
	}
	if role == models.RoleOwner {
		return models.NewConflictError("Owner role cannot be assigned")
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return models.NewValidationError("Role must be MEMBER or ADMIN")
	}

	target, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleOwner {
		return models.NewConflictError("Group owner role cannot be changed")
	}

	if err := s.groupRepo.UpdateMemberRole(ctx, groupID, userID, role); err != nil {
		return err
	}
	cache.InvalidateGroup(ctx, groupID)
	return nil
}

// DeleteGroup soft-deletes a group. Owner only. Historical messages remain
// addressable; new sends are rejected once the group is gone.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, actorID uint) error {
	member, err := s.requireMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleOwner {
		return models.NewUnauthorizedError("Only the group owner can delete the group")
	}

	if err := s.groupRepo.SoftDelete(ctx, groupID, actorID); err != nil {
		return err
	}
	cache.InvalidateGroup(ctx, groupID)
	return nil
}

// requireMember loads the membership row, translating existence failures to
// the API error taxonomy. The group itself must be live.
func (s *GroupService) requireMember(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", groupID)
		}
		return nil, err
	}
	member, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("You are not a member of this group")
		}
		return nil, err
	}
	return member, nil
}

func (s *GroupService) requireManager(ctx context.Context, groupID, actorID uint) error {
	member, err := s.requireMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if !member.Role.CanManage() {
		return models.NewUnauthorizedError("You do not have permission to manage this group")
	}
	return nil
}
