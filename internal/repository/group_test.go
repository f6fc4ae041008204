package repository

import (
	"context"
	"testing"

	"greenline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGroupRepository_CreateWithOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	group := &models.Group{Name: "Wetland Survey", CreatedBy: owner.ID}
	require.NoError(t, repo.Create(ctx, group))

	fetched, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Members, 1)
	assert.Equal(t, owner.ID, fetched.Members[0].UserID)
	assert.Equal(t, models.RoleOwner, fetched.Members[0].Role)
	require.NotNil(t, fetched.Members[0].User)
	assert.Equal(t, "owner", fetched.Members[0].User.Username)
}

func TestGroupRepository_Membership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	member := seedUser(t, db, "member")
	group := &models.Group{Name: "Field Ops", CreatedBy: owner.ID}
	require.NoError(t, repo.Create(ctx, group))

	t.Run("AddMember is idempotent", func(t *testing.T) {
		m := &models.GroupMember{GroupID: group.ID, UserID: member.ID, Role: models.RoleMember}
		require.NoError(t, repo.AddMember(ctx, m))
		// Re-adding must not error or change the stored role.
		require.NoError(t, repo.AddMember(ctx, &models.GroupMember{
			GroupID: group.ID, UserID: member.ID, Role: models.RoleAdmin,
		}))

		stored, err := repo.GetMember(ctx, group.ID, member.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, stored.Role)
	})

	t.Run("UpdateMemberRole", func(t *testing.T) {
		require.NoError(t, repo.UpdateMemberRole(ctx, group.ID, member.ID, models.RoleAdmin))
		stored, err := repo.GetMember(ctx, group.ID, member.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, stored.Role)
	})

	t.Run("RemoveMember", func(t *testing.T) {
		require.NoError(t, repo.RemoveMember(ctx, group.ID, member.ID))
		_, err := repo.GetMember(ctx, group.ID, member.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("ListForUser", func(t *testing.T) {
		groups, err := repo.ListForUser(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "Field Ops", groups[0].Name)

		groups, err = repo.ListForUser(ctx, member.ID)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})
}

func TestGroupRepository_SoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	group := &models.Group{Name: "Site Crew", CreatedBy: owner.ID}
	require.NoError(t, repo.Create(ctx, group))
	require.NoError(t, repo.SoftDelete(ctx, group.ID, owner.ID))

	_, err := repo.GetByID(ctx, group.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dead, err := repo.GetByIDIncludingDeleted(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, dead.DeletedAt.Valid)
	require.NotNil(t, dead.DeletedBy)
	assert.Equal(t, owner.ID, *dead.DeletedBy)

	// Membership rows survive so history access checks keep working.
	member, err := repo.GetMember(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, member.Role)

	groups, err := repo.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
