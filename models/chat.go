package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat message types. System messages carry the fixed synthetic sender.
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"

	SystemSenderID   = "system"
	SystemSenderName = "System"
)

// ChatMessage is one entry in a team's append-only chat log. Sender name
// and avatar are stamped at send time, not joined at read time, so the log
// keeps the name the sender had when they wrote.
type ChatMessage struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID     string    `gorm:"type:uuid;index;not null" json:"-"`
	UserID     string    `gorm:"not null" json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar"`
	Message    string    `gorm:"not null" json:"message"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
	Type       string    `gorm:"column:message_type;default:'text'" json:"type"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
