package models

import "time"

// AttachmentType tags the kind of binary referenced by a message.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
)

// Message is an atomic unit of communication in exactly one conversation.
// A message carries text content and/or exactly one attachment; it is
// immutable once created and hard-deletable only by its sender.
type Message struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ConversationID uint           `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint           `gorm:"not null;index" json:"sender_id"`
	Content        string         `gorm:"type:text" json:"content,omitempty"`
	AttachmentURL  string         `json:"attachment_url,omitempty"`
	AttachmentType AttachmentType `gorm:"type:varchar(10)" json:"attachment_type,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// HasBody reports whether the message carries at least one of content or
// attachment, the minimum a valid message must hold.
func (m *Message) HasBody() bool {
	return m.Content != "" || m.AttachmentURL != ""
}
