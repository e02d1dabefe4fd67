package model

import (
	"time"

	"gorm.io/datatypes"
)

type Conversation struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64         `gorm:"not null;index" json:"-"`
	User      *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title     string        `gorm:"type:varchar(255);not null" json:"title"`
	Messages  []ChatMessage `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ChatMessage struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64             `gorm:"not null;index" json:"conversation_id"`
	Content        string            `gorm:"type:text;not null" json:"content"`
	IsBot          bool              `gorm:"not null;default:false" json:"is_bot"`
	Metadata       datatypes.JSONMap `json:"metadata"`
	Timestamp      time.Time         `gorm:"not null;autoCreateTime;index" json:"timestamp"`
}
