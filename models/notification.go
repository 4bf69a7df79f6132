package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotifyTripInvitation  NotificationKind = "TRIP_INVITATION"
	NotifyTripUpdate      NotificationKind = "TRIP_UPDATE"
	NotifyPaymentReminder NotificationKind = "PAYMENT_REMINDER"
	NotifyGeneral         NotificationKind = "GENERAL"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityMedium NotificationPriority = "MEDIUM"
	PriorityHigh   NotificationPriority = "HIGH"
)

type Notification struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID            `gorm:"type:uuid;not null;index:idx_notification_user_read"`
	Kind              NotificationKind     `gorm:"size:30;not null"`
	Title             string               `gorm:"size:200;not null"`
	Message           string               `gorm:"type:text"`
	RelatedEntityType string               `gorm:"size:30"`
	RelatedEntityID   *uuid.UUID           `gorm:"type:uuid"`
	Priority          NotificationPriority `gorm:"size:10;not null"`
	ActionURL         string
	IsRead            bool `gorm:"index:idx_notification_user_read"`
	ReadAt            *time.Time
	CreatedAt         time.Time
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	return nil
}

type NotificationResponse struct {
	ID                uuid.UUID            `json:"id"`
	Kind              NotificationKind     `json:"kind"`
	Title             string               `json:"title"`
	Message           string               `json:"message"`
	RelatedEntityType string               `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID           `json:"related_entity_id,omitempty"`
	Priority          NotificationPriority `json:"priority"`
	ActionURL         string               `json:"action_url,omitempty"`
	IsRead            bool                 `json:"is_read"`
	ReadAt            *time.Time           `json:"read_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:                n.ID,
		Kind:              n.Kind,
		Title:             n.Title,
		Message:           n.Message,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		Priority:          n.Priority,
		ActionURL:         n.ActionURL,
		IsRead:            n.IsRead,
		ReadAt:            n.ReadAt,
		CreatedAt:         n.CreatedAt,
	}
}

type NotificationQuery struct {
	UnreadOnly bool `form:"unread"`
	Page       int  `form:"page,default=1"`
	Limit      int  `form:"limit,default=20"`
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Destination{},
		&SubDestination{},
		&Accommodation{},
		&Transport{},
		&Trip{},
		&TripMember{},
		&TripInvitation{},
		&TripSubDestination{},
		&TripAccommodation{},
		&TripTransport{},
		&Expense{},
		&ExpenseSettlement{},
		&TripMessage{},
		&Notification{},
		&Activity{},
	}
}
