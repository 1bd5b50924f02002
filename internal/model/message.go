// internal/model/message.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted note left through POST /api/send.
// ID is assigned by the database on insert and never changes afterwards.
type Message struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"type:text" json:"name"`
	Content string `gorm:"type:text" json:"content"`
}

// TableName overrides the table name used by GORM
func (Message) TableName() string {
	return "messages"
}

// MessageCreated is the event body published after a message is stored.
type MessageCreated struct {
	EventID    uuid.UUID `json:"event_id"`
	MessageID  int64     `json:"message_id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMessageCreated builds the event for a freshly stored message.
func NewMessageCreated(m Message, at time.Time) MessageCreated {
	return MessageCreated{
		EventID:    uuid.New(),
		MessageID:  m.ID,
		Name:       m.Name,
		Content:    m.Content,
		OccurredAt: at.UTC(),
	}
}
