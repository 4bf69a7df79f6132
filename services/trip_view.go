package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tripplanner-backend/models"
)

// daysPerAccommodationEstimate is the stay length assumed for accommodations
// without a recorded total cost.
const daysPerAccommodationEstimate = 7

type PlannedSubDestination struct {
	models.SubDestination
	Plan models.TripSubDestination
}

type PlannedAccommodation struct {
	models.Accommodation
	Plan models.TripAccommodation
}

type PlannedTransport struct {
	models.Transport
	Plan models.TripTransport
}

// TripView is the aggregate returned by GetTripView.
type TripView struct {
	Trip            models.Trip
	Members         []MemberView
	SubDestinations []PlannedSubDestination
	Accommodations  []PlannedAccommodation
	Transports      []PlannedTransport
	Expenses        []models.Expense
	MemberCount     int64
	// TotalExpenses is the estimate in the trip's currency; CostByCurrency
	// holds it for every currency the plan and expenses use.
	TotalExpenses  decimal.Decimal
	CostByCurrency map[string]decimal.Decimal
}

// GetTripView loads the full trip for an accepted member or a user holding a
// PENDING invitation to it.
func (s *TripService) GetTripView(ctx context.Context, tripID, requesterID uuid.UUID) (*TripView, error) {
	db := s.db.WithContext(ctx)
	view := &TripView{}
	if err := loadTrip(db, tripID, &view.Trip); err != nil {
		return nil, err
	}

	allowed, err := s.canView(db, tripID, requesterID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, forbidden("you do not have access to this trip")
	}

	if view.Members, err = listMembers(db, tripID); err != nil {
		return nil, err
	}
	view.MemberCount = int64(len(view.Members))

	if view.SubDestinations, err = plannedSubDestinations(db, tripID); err != nil {
		return nil, err
	}
	if view.Accommodations, err = plannedAccommodations(db, tripID); err != nil {
		return nil, err
	}
	if view.Transports, err = plannedTransports(db, tripID); err != nil {
		return nil, err
	}
	if err := db.Where("trip_id = ?", tripID).Order("expense_date DESC, created_at DESC").
		Find(&view.Expenses).Error; err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	view.CostByCurrency = estimateTripCost(view)
	view.TotalExpenses = view.CostByCurrency[view.Trip.Currency]
	return view, nil
}

func (s *TripService) canView(db *gorm.DB, tripID, userID uuid.UUID) (bool, error) {
	m, err := findMember(db, tripID, userID)
	if err != nil {
		return false, err
	}
	if m != nil && m.IsActive() {
		return true, nil
	}
	var n int64
	err = db.Model(&models.TripInvitation{}).
		Where("trip_id = ? AND invitee_user_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			tripID, userID, models.InvitationPending, s.now()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check invitation: %w", err)
	}
	return n > 0, nil
}

// estimateTripCost adds recorded expenses to the planned cost of the trip's
// accommodations, transports and sub-destinations, per currency. Items without
// a currency and entry fees count in the trip's currency.
func estimateTripCost(v *TripView) map[string]decimal.Decimal {
	totals := map[string]decimal.Decimal{v.Trip.Currency: decimal.Zero}
	add := func(currency string, amount decimal.Decimal) {
		if currency == "" {
			currency = v.Trip.Currency
		}
		totals[currency] = totals[currency].Add(amount)
	}
	for _, e := range v.Expenses {
		add(e.Currency, e.Amount)
	}
	for _, a := range v.Accommodations {
		if a.Plan.TotalCost.Valid {
			add(a.Currency, a.Plan.TotalCost.Decimal)
			continue
		}
		rooms := int64(a.Plan.NumberOfRooms)
		if rooms < 1 {
			rooms = 1
		}
		add(a.Currency, a.PricePerNight.Mul(decimal.NewFromInt(rooms*daysPerAccommodationEstimate)))
	}
	for _, t := range v.Transports {
		if t.Plan.TotalCost.Valid {
			add(t.Currency, t.Plan.TotalCost.Decimal)
			continue
		}
		passengers := int64(t.Plan.NumberOfPassengers)
		if passengers < 1 {
			passengers = 1
		}
		add(t.Currency, t.Price.Mul(decimal.NewFromInt(passengers)))
	}
	for _, sd := range v.SubDestinations {
		switch {
		case sd.Plan.EstimatedCost.Valid:
			add("", sd.Plan.EstimatedCost.Decimal)
		case sd.EntryFee.Valid:
			add("", sd.EntryFee.Decimal)
		}
	}
	return totals
}
