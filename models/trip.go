package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TripStatus string

const (
	TripPlanning  TripStatus = "PLANNING"
	TripConfirmed TripStatus = "CONFIRMED"
	TripOngoing   TripStatus = "ONGOING"
	TripCompleted TripStatus = "COMPLETED"
	TripCancelled TripStatus = "CANCELLED"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripPlanning, TripConfirmed, TripOngoing, TripCompleted, TripCancelled:
		return true
	}
	return false
}

type MemberRole string

const (
	RoleCreator MemberRole = "CREATOR"
	RoleAdmin   MemberRole = "ADMIN"
	RoleMember  MemberRole = "MEMBER"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "PENDING"
	MemberAccepted MemberStatus = "ACCEPTED"
	MemberDeclined MemberStatus = "DECLINED"
	MemberRemoved  MemberStatus = "REMOVED"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

type Trip struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name          string          `gorm:"not null;size:150"`
	DestinationID *uuid.UUID      `gorm:"type:uuid;index"`
	CreatorUserID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PhotoURL      string
	Budget        decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Currency      string          `gorm:"size:3;not null"`
	StartDate     time.Time       `gorm:"type:date;not null"`
	EndDate       time.Time       `gorm:"type:date;not null"`
	Status        TripStatus      `gorm:"size:20;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TripMember is keyed by (trip, user) so a user holds at most one membership row per trip.
type TripMember struct {
	TripID      uuid.UUID    `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID    `gorm:"type:uuid;primaryKey;index"`
	Role        MemberRole   `gorm:"size:20;not null"`
	Status      MemberStatus `gorm:"size:20;not null"`
	InvitedBy   *uuid.UUID   `gorm:"type:uuid"`
	InvitedAt   time.Time
	RespondedAt *time.Time
}

func (m *TripMember) IsActive() bool { return m.Status == MemberAccepted }

func (m *TripMember) CanEdit() bool {
	return m.IsActive() && (m.Role == RoleCreator || m.Role == RoleAdmin)
}

type TripInvitation struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TripID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	InviterUserID uuid.UUID        `gorm:"type:uuid;not null"`
	InviteeUserID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Message       string           `gorm:"size:500"`
	Status        InvitationStatus `gorm:"size:20;not null;index"`
	InvitedAt     time.Time
	RespondedAt   *time.Time
	ExpiresAt     *time.Time
}

func (i *TripInvitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *TripInvitation) ExpiredAt(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// Request structs
type CreateTripRequest struct {
	Name          string          `json:"name" binding:"required,max=150"`
	DestinationID string          `json:"destination_id" binding:"omitempty,uuid"`
	PhotoURL      string          `json:"photo_url" binding:"omitempty,url"`
	Budget        decimal.Decimal `json:"budget"`
	Currency      string          `json:"currency" binding:"omitempty,currency"`
	StartDate     string          `json:"start_date" binding:"required,datetime=2006-01-02"` // YYYY-MM-DD
	EndDate       string          `json:"end_date" binding:"required,datetime=2006-01-02"`
	Status        string          `json:"status" binding:"omitempty,oneof=PLANNING CONFIRMED ONGOING COMPLETED CANCELLED"`
}

type UpdateTripRequest struct {
	Name      *string          `json:"name" binding:"omitempty,min=1,max=150"`
	PhotoURL  *string          `json:"photo_url" binding:"omitempty,url"`
	Budget    *decimal.Decimal `json:"budget"`
	StartDate *string          `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   *string          `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Status    *string          `json:"status" binding:"omitempty,oneof=PLANNING CONFIRMED ONGOING COMPLETED CANCELLED"`
}

type InviteUserRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid"`
	Message string `json:"message" binding:"max=500"`
}

type SetMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN MEMBER"`
}

// Response structs
type TripResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	DestinationID *uuid.UUID      `json:"destination_id,omitempty"`
	CreatorUserID uuid.UUID       `json:"creator_user_id"`
	PhotoURL      string          `json:"photo_url,omitempty"`
	Budget        decimal.Decimal `json:"budget"`
	Currency      string          `json:"currency"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Status        TripStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (t *Trip) ToResponse() TripResponse {
	return TripResponse{
		ID:            t.ID,
		Name:          t.Name,
		DestinationID: t.DestinationID,
		CreatorUserID: t.CreatorUserID,
		PhotoURL:      t.PhotoURL,
		Budget:        t.Budget,
		Currency:      t.Currency,
		StartDate:     t.StartDate.Format(DateLayout),
		EndDate:       t.EndDate.Format(DateLayout),
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
	}
}

type MemberResponse struct {
	UserID      uuid.UUID    `json:"user_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	Role        MemberRole   `json:"role"`
	Status      MemberStatus `json:"status"`
	InvitedBy   *uuid.UUID   `json:"invited_by,omitempty"`
	InvitedAt   time.Time    `json:"invited_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty"`
}

func (m *TripMember) ToResponse(u *User) MemberResponse {
	r := MemberResponse{
		UserID:      m.UserID,
		Role:        m.Role,
		Status:      m.Status,
		InvitedBy:   m.InvitedBy,
		InvitedAt:   m.InvitedAt,
		RespondedAt: m.RespondedAt,
	}
	if u != nil {
		r.Name = u.Name
		r.Email = u.Email
		r.AvatarURL = u.AvatarURL
	}
	return r
}

type InvitationResponse struct {
	ID            uuid.UUID        `json:"id"`
	TripID        uuid.UUID        `json:"trip_id"`
	TripName      string           `json:"trip_name,omitempty"`
	InviterUserID uuid.UUID        `json:"inviter_user_id"`
	InviterName   string           `json:"inviter_name,omitempty"`
	InviteeUserID uuid.UUID        `json:"invitee_user_id"`
	Message       string           `json:"message,omitempty"`
	Status        InvitationStatus `json:"status"`
	InvitedAt     time.Time        `json:"invited_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
}

func (i *TripInvitation) ToResponse() InvitationResponse {
	return InvitationResponse{
		ID:            i.ID,
		TripID:        i.TripID,
		InviterUserID: i.InviterUserID,
		InviteeUserID: i.InviteeUserID,
		Message:       i.Message,
		Status:        i.Status,
		InvitedAt:     i.InvitedAt,
		RespondedAt:   i.RespondedAt,
		ExpiresAt:     i.ExpiresAt,
	}
}

// TripDetailResponse is the full trip view returned to members and pending invitees.
type TripDetailResponse struct {
	TripResponse
	Members         []MemberResponse             `json:"members"`
	SubDestinations []TripSubDestinationResponse `json:"sub_destinations"`
	Accommodations  []TripAccommodationResponse  `json:"accommodations"`
	Transports      []TripTransportResponse      `json:"transports"`
	Expenses        []ExpenseResponse            `json:"expenses"`
	MemberCount     int64                        `json:"member_count"`
	TotalExpenses   decimal.Decimal              `json:"total_expenses"`
	CostByCurrency  map[string]decimal.Decimal   `json:"cost_by_currency"`
}

const DateLayout = "2006-01-02"
