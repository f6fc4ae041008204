package models

import (
	"time"

	"gorm.io/gorm"
)

// GroupRole is the role a member holds inside a group.
type GroupRole string

const (
	// RoleOwner is reserved for the group creator. Exactly one OWNER row
	// exists per group and it can never be reassigned or removed.
	RoleOwner  GroupRole = "OWNER"
	RoleAdmin  GroupRole = "ADMIN"
	RoleMember GroupRole = "MEMBER"
)

// Group is a named collection of users, e.g. a project team or site crew.
// Groups are soft-deleted only; their conversation history stays readable.
type Group struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Avatar      string         `json:"avatar"`
	CreatedBy   uint           `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy   *uint          `json:"deleted_by,omitempty"`

	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// GroupMember joins a user to a group with a role. The creator is stored as
// an ordinary row carrying the reserved OWNER role, so membership queries
// never special-case the owner.
type GroupMember struct {
	GroupID  uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Role     GroupRole `gorm:"type:varchar(10);not null;default:'MEMBER'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for GORM.
func (GroupMember) TableName() string {
	return "group_members"
}

// CanManage reports whether the role may mutate group membership and metadata.
func (r GroupRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}
