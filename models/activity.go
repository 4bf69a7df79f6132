package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID      uuid.UUID `gorm:"type:uuid;index"`
	UserID      uuid.UUID `gorm:"type:uuid;index"`
	Type        string    `gorm:"not null;size:40"` // event kind, e.g. expense.created, invitation.accepted
	ReferenceID uuid.UUID `gorm:"type:uuid"`
	Description string
	CreatedAt   time.Time `gorm:"index"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type ActivityResponse struct {
	ID          uuid.UUID `json:"id"`
	TripID      uuid.UUID `json:"trip_id"`
	TripName    string    `json:"trip_name,omitempty"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	Type        string    `json:"type"`
	ReferenceID uuid.UUID `json:"reference_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Activity) ToResponse() ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		TripID:      a.TripID,
		UserID:      a.UserID,
		Type:        a.Type,
		ReferenceID: a.ReferenceID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
}
