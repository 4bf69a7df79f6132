package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget levels a destination can be tagged with.
const (
	BudgetLevelBudget   = "BUDGET"
	BudgetLevelMidRange = "MID_RANGE"
	BudgetLevelLuxury   = "LUXURY"
	BudgetLevelPremium  = "PREMIUM"
)

func ValidBudgetLevel(level string) bool {
	switch level {
	case BudgetLevelBudget, BudgetLevelMidRange, BudgetLevelLuxury, BudgetLevelPremium:
		return true
	}
	return false
}

type Destination struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null;size:150;index" json:"name"`
	Country     string    `gorm:"size:100;index" json:"country"`
	BudgetLevel string    `gorm:"size:20" json:"budget_level,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d *Destination) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type SubDestination struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	DestinationID uuid.UUID           `gorm:"type:uuid;not null;index" json:"destination_id"`
	Name          string              `gorm:"not null;size:150" json:"name"`
	Category      string              `gorm:"size:50" json:"category,omitempty"`
	Description   string              `json:"description,omitempty"`
	EntryFee      decimal.NullDecimal `gorm:"type:decimal(12,3)" json:"entry_fee"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (s *SubDestination) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Accommodation struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DestinationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"destination_id"`
	Name          string          `gorm:"not null;size:150" json:"name"`
	Type          string          `gorm:"size:50" json:"type,omitempty"` // hotel, resort, hostel...
	PricePerNight decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"price_per_night"`
	Currency      string          `gorm:"size:3" json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (a *Accommodation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Transport struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DestinationID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"destination_id"`
	Type            string          `gorm:"size:30;not null" json:"type"` // bus, train, flight, launch...
	Operator        string          `gorm:"size:100" json:"operator,omitempty"`
	RouteFrom       string          `gorm:"size:100" json:"route_from,omitempty"`
	RouteTo         string          `gorm:"size:100" json:"route_to,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	Price           decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"price"`
	Currency        string          `gorm:"size:3" json:"currency"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (t *Transport) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Trip plan association rows, one per (trip, item).
type TripSubDestination struct {
	TripID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SubDestinationID uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EstimatedCost    decimal.NullDecimal `gorm:"type:decimal(12,3)"`
	VisitDate        *time.Time          `gorm:"type:date"`
	Notes            string              `gorm:"size:500"`
	CreatedAt        time.Time
}

type TripAccommodation struct {
	TripID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	AccommodationID uuid.UUID           `gorm:"type:uuid;primaryKey"`
	NumberOfRooms   int                 `gorm:"not null"`
	TotalCost       decimal.NullDecimal `gorm:"type:decimal(12,3)"`
	BookingStatus   string              `gorm:"size:20"`
	CreatedAt       time.Time
}

type TripTransport struct {
	TripID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TransportID        uuid.UUID           `gorm:"type:uuid;primaryKey"`
	NumberOfPassengers int                 `gorm:"not null"`
	TotalCost          decimal.NullDecimal `gorm:"type:decimal(12,3)"`
	BookingStatus      string              `gorm:"size:20"`
	CreatedAt          time.Time
}

// Request structs
type CreateDestinationRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Country     string `json:"country" binding:"max=100"`
	BudgetLevel string `json:"budget_level" binding:"omitempty,oneof=BUDGET MID_RANGE LUXURY PREMIUM"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
}

type UpdateDestinationRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=150"`
	Country     *string `json:"country" binding:"omitempty,max=100"`
	BudgetLevel *string `json:"budget_level" binding:"omitempty,oneof=BUDGET MID_RANGE LUXURY PREMIUM"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url" binding:"omitempty,url"`
}

type DestinationQuery struct {
	Search      string `form:"search"`
	Country     string `form:"country"`
	BudgetLevel string `form:"budget_level"`
}

// DestinationFiltersResponse lists the values the catalog can be filtered by.
type DestinationFiltersResponse struct {
	Countries    []string `json:"countries"`
	BudgetLevels []string `json:"budget_levels"`
}

type CreateSubDestinationRequest struct {
	Name        string              `json:"name" binding:"required,max=150"`
	Category    string              `json:"category" binding:"max=50"`
	Description string              `json:"description"`
	EntryFee    decimal.NullDecimal `json:"entry_fee"`
}

type CreateAccommodationRequest struct {
	Name          string          `json:"name" binding:"required,max=150"`
	Type          string          `json:"type" binding:"max=50"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	Currency      string          `json:"currency" binding:"omitempty,currency"`
}

type CreateTransportRequest struct {
	Type            string          `json:"type" binding:"required,max=30"`
	Operator        string          `json:"operator" binding:"max=100"`
	RouteFrom       string          `json:"route_from" binding:"max=100"`
	RouteTo         string          `json:"route_to" binding:"max=100"`
	DurationMinutes int             `json:"duration_minutes" binding:"gte=0"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency" binding:"omitempty,currency"`
}

type AddSubDestinationsRequest struct {
	Items []struct {
		SubDestinationID string              `json:"sub_destination_id" binding:"required,uuid"`
		EstimatedCost    decimal.NullDecimal `json:"estimated_cost"`
		VisitDate        string              `json:"visit_date" binding:"omitempty,datetime=2006-01-02"`
		Notes            string              `json:"notes" binding:"max=500"`
	} `json:"items" binding:"required,min=1,dive"`
}

type AddAccommodationsRequest struct {
	Items []struct {
		AccommodationID string              `json:"accommodation_id" binding:"required,uuid"`
		NumberOfRooms   int                 `json:"number_of_rooms" binding:"gte=0"`
		TotalCost       decimal.NullDecimal `json:"total_cost"`
		BookingStatus   string              `json:"booking_status" binding:"max=20"`
	} `json:"items" binding:"required,min=1,dive"`
}

type AddTransportsRequest struct {
	Items []struct {
		TransportID        string              `json:"transport_id" binding:"required,uuid"`
		NumberOfPassengers int                 `json:"number_of_passengers" binding:"gte=0"`
		TotalCost          decimal.NullDecimal `json:"total_cost"`
		BookingStatus      string              `json:"booking_status" binding:"max=20"`
	} `json:"items" binding:"required,min=1,dive"`
}

// Response structs
type DestinationDetailResponse struct {
	Destination
	SubDestinations []SubDestination `json:"sub_destinations"`
	Accommodations  []Accommodation  `json:"accommodations"`
	Transports      []Transport      `json:"transports"`
}

type TripSubDestinationResponse struct {
	SubDestination
	EstimatedCost decimal.NullDecimal `json:"estimated_cost"`
	VisitDate     *time.Time          `json:"visit_date,omitempty"`
	Notes         string              `json:"notes,omitempty"`
}

type TripAccommodationResponse struct {
	Accommodation
	NumberOfRooms int                 `json:"number_of_rooms"`
	TotalCost     decimal.NullDecimal `json:"total_cost"`
	BookingStatus string              `json:"booking_status,omitempty"`
}

type TripTransportResponse struct {
	Transport
	NumberOfPassengers int                 `json:"number_of_passengers"`
	TotalCost          decimal.NullDecimal `json:"total_cost"`
	BookingStatus      string              `json:"booking_status,omitempty"`
}
