package models

import (
	"fmt"
	"time"
)

// ConversationType distinguishes direct pairs from group channels.
type ConversationType string

const (
	ConversationDirect ConversationType = "DIRECT"
	ConversationGroup  ConversationType = "GROUP"
)

// Conversation is exactly one channel of communication: a unique unordered
// pair of two users (DIRECT) or a single group (GROUP). Created lazily on the
// first message and never deleted.
//
// UserOne holds the user who sent the first message; PairKey carries the
// unordered-pair uniqueness constraint so (A,B) and (B,A) collide at the
// database rather than in application code.
type Conversation struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Type      ConversationType `gorm:"type:varchar(10);not null;index" json:"type"`
	UserOneID *uint            `json:"user_one_id,omitempty"`
	UserTwoID *uint            `json:"user_two_id,omitempty"`
	PairKey   *string          `gorm:"uniqueIndex" json:"-"`
	GroupID   *uint            `gorm:"uniqueIndex" json:"group_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `gorm:"index" json:"updated_at"`

	UserOne *User  `gorm:"foreignKey:UserOneID" json:"user_one,omitempty"`
	UserTwo *User  `gorm:"foreignKey:UserTwoID" json:"user_two,omitempty"`
	Group   *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// DirectPairKey normalizes an unordered user pair into the unique key stored
// on DIRECT conversations.
func DirectPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// OtherParticipant returns the direct-conversation participant that is not
// the given user. Returns 0 for group conversations.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if c.Type != ConversationDirect || c.UserOneID == nil || c.UserTwoID == nil {
		return 0
	}
	if *c.UserOneID == userID {
		return *c.UserTwoID
	}
	return *c.UserOneID
}

// HasDirectParticipant reports whether the user is one of the two direct
// participants.
func (c *Conversation) HasDirectParticipant(userID uint) bool {
	return c.Type == ConversationDirect &&
		((c.UserOneID != nil && *c.UserOneID == userID) ||
			(c.UserTwoID != nil && *c.UserTwoID == userID))
}

// ConversationRead is the per-(conversation, user) cursor recording the
// timestamp through which the user has read messages. Upserted on read
// actions; only ever moves forward.
type ConversationRead struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	LastReadAt     time.Time `gorm:"not null" json:"last_read_at"`
}

// TableName specifies the table name for GORM.
func (ConversationRead) TableName() string {
	return "conversation_reads"
}
