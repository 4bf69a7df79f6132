package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText     MessageType = "TEXT"
	MessageSystem   MessageType = "SYSTEM"
	MessageImage    MessageType = "IMAGE"
	MessageLocation MessageType = "LOCATION"
	MessagePoll     MessageType = "POLL"
)

type TripMessage struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	TripID        uuid.UUID   `gorm:"type:uuid;not null;index:idx_message_trip_created"`
	SenderUserID  *uuid.UUID  `gorm:"type:uuid"` // nil for system messages
	Type          MessageType `gorm:"size:20;not null"`
	Content       string      `gorm:"type:text"`
	AttachmentURL string
	ReplyToID     *uuid.UUID `gorm:"type:uuid"`
	IsEdited      bool
	EditedAt      *time.Time
	CreatedAt     time.Time `gorm:"index:idx_message_trip_created"`
}

func (m *TripMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Request structs
type SendMessageRequest struct {
	Type          string `json:"type" binding:"omitempty,oneof=TEXT IMAGE LOCATION POLL"`
	Content       string `json:"content" binding:"max=4000"`
	AttachmentURL string `json:"attachment_url" binding:"omitempty,url"`
	ReplyToID     string `json:"reply_to_id" binding:"omitempty,uuid"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

type MessageQuery struct {
	Limit  int    `form:"limit,default=50"`
	Before string `form:"before" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type MessageResponse struct {
	ID            uuid.UUID   `json:"id"`
	TripID        uuid.UUID   `json:"trip_id"`
	SenderUserID  *uuid.UUID  `json:"sender_user_id,omitempty"`
	SenderName    string      `json:"sender_name,omitempty"`
	Type          MessageType `json:"type"`
	Content       string      `json:"content"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	ReplyToID     *uuid.UUID  `json:"reply_to_id,omitempty"`
	IsEdited      bool        `json:"is_edited"`
	EditedAt      *time.Time  `json:"edited_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (m *TripMessage) ToResponse() MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		TripID:        m.TripID,
		SenderUserID:  m.SenderUserID,
		Type:          m.Type,
		Content:       m.Content,
		AttachmentURL: m.AttachmentURL,
		ReplyToID:     m.ReplyToID,
		IsEdited:      m.IsEdited,
		EditedAt:      m.EditedAt,
		CreatedAt:     m.CreatedAt,
	}
}
