package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

// CatalogService manages the destination catalog and attaches catalog items
// to trip plans.
type CatalogService struct {
	db     *gorm.DB
	events Publisher
}

func NewCatalogService(db *gorm.DB, events Publisher) *CatalogService {
	return &CatalogService{db: db, events: events}
}

// DestinationFilter narrows ListDestinations. Search matches name or country;
// Country and BudgetLevel match exactly.
type DestinationFilter struct {
	Search      string
	Country     string
	BudgetLevel string
}

func (s *CatalogService) ListDestinations(ctx context.Context, f DestinationFilter, offset, limit int) ([]models.Destination, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Destination{})
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(country) LIKE ? ESCAPE '\\'", pattern, pattern)
	}
	if country := strings.TrimSpace(f.Country); country != "" {
		q = q.Where("country = ?", country)
	}
	if level := strings.ToUpper(strings.TrimSpace(f.BudgetLevel)); level != "" {
		q = q.Where("budget_level = ?", level)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count destinations: %w", err)
	}
	var out []models.Destination
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list destinations: %w", err)
	}
	return out, total, nil
}

// DestinationFilters returns the distinct countries and budget levels in use.
func (s *CatalogService) DestinationFilters(ctx context.Context) (*models.DestinationFiltersResponse, error) {
	db := s.db.WithContext(ctx)
	out := &models.DestinationFiltersResponse{Countries: []string{}, BudgetLevels: []string{}}
	if err := db.Model(&models.Destination{}).Distinct("country").
		Where("country IS NOT NULL AND country <> ''").Order("country ASC").
		Pluck("country", &out.Countries).Error; err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	if err := db.Model(&models.Destination{}).Distinct("budget_level").
		Where("budget_level IS NOT NULL AND budget_level <> ''").Order("budget_level ASC").
		Pluck("budget_level", &out.BudgetLevels).Error; err != nil {
		return nil, fmt.Errorf("list budget levels: %w", err)
	}
	return out, nil
}

func (s *CatalogService) GetDestination(ctx context.Context, id uuid.UUID) (*models.DestinationDetailResponse, error) {
	db := s.db.WithContext(ctx)
	out := &models.DestinationDetailResponse{}
	if err := db.Take(&out.Destination, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("destination not found")
		}
		return nil, fmt.Errorf("load destination: %w", err)
	}
	if err := db.Where("destination_id = ?", id).Order("name ASC").Find(&out.SubDestinations).Error; err != nil {
		return nil, fmt.Errorf("list sub-destinations: %w", err)
	}
	if err := db.Where("destination_id = ?", id).Order("price_per_night ASC").Find(&out.Accommodations).Error; err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	if err := db.Where("destination_id = ?", id).Order("price ASC").Find(&out.Transports).Error; err != nil {
		return nil, fmt.Errorf("list transports: %w", err)
	}
	return out, nil
}

func (s *CatalogService) CreateDestination(ctx context.Context, actorID uuid.UUID, d *models.Destination) error {
	db := s.db.WithContext(ctx)
	if err := requireAdmin(db, actorID); err != nil {
		return err
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return invalid("destination name is required")
	}
	d.BudgetLevel = strings.ToUpper(strings.TrimSpace(d.BudgetLevel))
	if d.BudgetLevel != "" && !models.ValidBudgetLevel(d.BudgetLevel) {
		return invalid("unknown budget level %q", d.BudgetLevel)
	}
	if err := db.Create(d).Error; err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	return nil
}

// UpdateDestinationParams carries optional changes; nil fields are left alone.
type UpdateDestinationParams struct {
	Name        *string
	Country     *string
	BudgetLevel *string
	Description *string
	ImageURL    *string
}

func (s *CatalogService) UpdateDestination(ctx context.Context, actorID, id uuid.UUID, p UpdateDestinationParams) (*models.Destination, error) {
	db := s.db.WithContext(ctx)
	if err := requireAdmin(db, actorID); err != nil {
		return nil, err
	}
	var d models.Destination
	if err := db.Take(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("destination not found")
		}
		return nil, fmt.Errorf("load destination: %w", err)
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("destination name is required")
		}
		d.Name = name
	}
	if p.Country != nil {
		d.Country = strings.TrimSpace(*p.Country)
	}
	if p.BudgetLevel != nil {
		level := strings.ToUpper(strings.TrimSpace(*p.BudgetLevel))
		if level != "" && !models.ValidBudgetLevel(level) {
			return nil, invalid("unknown budget level %q", level)
		}
		d.BudgetLevel = level
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.ImageURL != nil {
		d.ImageURL = *p.ImageURL
	}
	if err := db.Model(&models.Destination{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":         d.Name,
		"country":      d.Country,
		"budget_level": d.BudgetLevel,
		"description":  d.Description,
		"image_url":    d.ImageURL,
		"updated_at":   time.Now().UTC(),
	}).Error; err != nil {
		return nil, fmt.Errorf("update destination: %w", err)
	}
	return &d, nil
}

// DeleteDestination removes a destination with its catalog items and takes
// those items off every trip plan.
func (s *CatalogService) DeleteDestination(ctx context.Context, actorID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAdmin(tx, actorID); err != nil {
			return err
		}
		if err := exists(tx, &models.Destination{}, "id = ?", id); err != nil {
			return err
		}
		subs := tx.Model(&models.SubDestination{}).Select("id").Where("destination_id = ?", id)
		stays := tx.Model(&models.Accommodation{}).Select("id").Where("destination_id = ?", id)
		rides := tx.Model(&models.Transport{}).Select("id").Where("destination_id = ?", id)
		steps := []struct {
			what  string
			model interface{}
			query string
			arg   interface{}
		}{
			{"planned sub-destinations", &models.TripSubDestination{}, "sub_destination_id IN (?)", subs},
			{"planned accommodations", &models.TripAccommodation{}, "accommodation_id IN (?)", stays},
			{"planned transports", &models.TripTransport{}, "transport_id IN (?)", rides},
			{"sub-destinations", &models.SubDestination{}, "destination_id = ?", id},
			{"accommodations", &models.Accommodation{}, "destination_id = ?", id},
			{"transports", &models.Transport{}, "destination_id = ?", id},
			{"destination", &models.Destination{}, "id = ?", id},
		}
		for _, st := range steps {
			if err := tx.Where(st.query, st.arg).Delete(st.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", st.what, err)
			}
		}
		return nil
	})
}

func (s *CatalogService) CreateSubDestination(ctx context.Context, actorID, destinationID uuid.UUID, sd *models.SubDestination) error {
	return s.createItem(ctx, actorID, destinationID, func(db *gorm.DB) error {
		if strings.TrimSpace(sd.Name) == "" {
			return invalid("name is required")
		}
		if sd.EntryFee.Valid && sd.EntryFee.Decimal.IsNegative() {
			return invalid("entry fee cannot be negative")
		}
		sd.DestinationID = destinationID
		return db.Create(sd).Error
	})
}

func (s *CatalogService) CreateAccommodation(ctx context.Context, actorID, destinationID uuid.UUID, a *models.Accommodation) error {
	return s.createItem(ctx, actorID, destinationID, func(db *gorm.DB) error {
		if strings.TrimSpace(a.Name) == "" {
			return invalid("name is required")
		}
		currency, err := catalogPrice(a.PricePerNight, a.Currency)
		if err != nil {
			return err
		}
		a.DestinationID, a.Currency = destinationID, currency
		return db.Create(a).Error
	})
}

func (s *CatalogService) CreateTransport(ctx context.Context, actorID, destinationID uuid.UUID, t *models.Transport) error {
	return s.createItem(ctx, actorID, destinationID, func(db *gorm.DB) error {
		if strings.TrimSpace(t.Type) == "" {
			return invalid("transport type is required")
		}
		if t.DurationMinutes < 0 {
			return invalid("duration cannot be negative")
		}
		currency, err := catalogPrice(t.Price, t.Currency)
		if err != nil {
			return err
		}
		t.DestinationID, t.Currency = destinationID, currency
		return db.Create(t).Error
	})
}

func (s *CatalogService) createItem(ctx context.Context, actorID, destinationID uuid.UUID, create func(*gorm.DB) error) error {
	db := s.db.WithContext(ctx)
	if err := requireAdmin(db, actorID); err != nil {
		return err
	}
	if err := exists(db, &models.Destination{}, "id = ?", destinationID); err != nil {
		return err
	}
	if err := create(db); err != nil {
		if isServiceError(err) {
			return err
		}
		return fmt.Errorf("create catalog item: %w", err)
	}
	return nil
}

type SubDestinationPlan struct {
	SubDestinationID uuid.UUID
	EstimatedCost    decimal.NullDecimal
	VisitDate        *time.Time
	Notes            string
}

type AccommodationPlan struct {
	AccommodationID uuid.UUID
	NumberOfRooms   int
	TotalCost       decimal.NullDecimal
	BookingStatus   string
}

type TransportPlan struct {
	TransportID        uuid.UUID
	NumberOfPassengers int
	TotalCost          decimal.NullDecimal
	BookingStatus      string
}

// AddSubDestinations attaches sub-destinations to a trip. Items already on the
// plan are left untouched; the count of newly attached items is returned.
func (s *CatalogService) AddSubDestinations(ctx context.Context, tripID, userID uuid.UUID, items []SubDestinationPlan) (int64, error) {
	if len(items) == 0 {
		return 0, invalid("no items to add")
	}
	rows := make([]models.TripSubDestination, len(items))
	for i, it := range items {
		if err := nonNegative(it.EstimatedCost, "estimated cost"); err != nil {
			return 0, err
		}
		rows[i] = models.TripSubDestination{
			TripID:           tripID,
			SubDestinationID: it.SubDestinationID,
			EstimatedCost:    it.EstimatedCost,
			VisitDate:        it.VisitDate,
			Notes:            it.Notes,
		}
	}
	return s.attach(ctx, tripID, userID, "sub-destinations", func(tx *gorm.DB) (int64, error) {
		for _, r := range rows {
			if err := exists(tx, &models.SubDestination{}, "id = ?", r.SubDestinationID); err != nil {
				return 0, err
			}
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		return res.RowsAffected, res.Error
	})
}

func (s *CatalogService) AddAccommodations(ctx context.Context, tripID, userID uuid.UUID, items []AccommodationPlan) (int64, error) {
	if len(items) == 0 {
		return 0, invalid("no items to add")
	}
	rows := make([]models.TripAccommodation, len(items))
	for i, it := range items {
		if it.NumberOfRooms < 0 {
			return 0, invalid("number of rooms cannot be negative")
		}
		if err := nonNegative(it.TotalCost, "total cost"); err != nil {
			return 0, err
		}
		rows[i] = models.TripAccommodation{
			TripID:          tripID,
			AccommodationID: it.AccommodationID,
			NumberOfRooms:   it.NumberOfRooms,
			TotalCost:       it.TotalCost,
			BookingStatus:   it.BookingStatus,
		}
	}
	return s.attach(ctx, tripID, userID, "accommodations", func(tx *gorm.DB) (int64, error) {
		for _, r := range rows {
			if err := exists(tx, &models.Accommodation{}, "id = ?", r.AccommodationID); err != nil {
				return 0, err
			}
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		return res.RowsAffected, res.Error
	})
}

func (s *CatalogService) AddTransports(ctx context.Context, tripID, userID uuid.UUID, items []TransportPlan) (int64, error) {
	if len(items) == 0 {
		return 0, invalid("no items to add")
	}
	rows := make([]models.TripTransport, len(items))
	for i, it := range items {
		if it.NumberOfPassengers < 0 {
			return 0, invalid("number of passengers cannot be negative")
		}
		if err := nonNegative(it.TotalCost, "total cost"); err != nil {
			return 0, err
		}
		rows[i] = models.TripTransport{
			TripID:             tripID,
			TransportID:        it.TransportID,
			NumberOfPassengers: it.NumberOfPassengers,
			TotalCost:          it.TotalCost,
			BookingStatus:      it.BookingStatus,
		}
	}
	return s.attach(ctx, tripID, userID, "transports", func(tx *gorm.DB) (int64, error) {
		for _, r := range rows {
			if err := exists(tx, &models.Transport{}, "id = ?", r.TransportID); err != nil {
				return 0, err
			}
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		return res.RowsAffected, res.Error
	})
}

func (s *CatalogService) attach(ctx context.Context, tripID, userID uuid.UUID, what string, insert func(*gorm.DB) (int64, error)) (int64, error) {
	var trip models.Trip
	var added int64
	var recipients []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTrip(tx, tripID, &trip); err != nil {
			return err
		}
		if err := requireEditor(tx, tripID, userID); err != nil {
			return err
		}
		n, err := insert(tx)
		if err != nil {
			if isServiceError(err) {
				return err
			}
			return fmt.Errorf("add %s: %w", what, err)
		}
		added = n
		if added > 0 {
			recipients, err = memberIDs(tx, tripID)
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	if added > 0 {
		s.events.Publish(ctx, Event{
			Kind:        EventTripUpdated,
			TripID:      trip.ID,
			TripName:    trip.Name,
			ActorID:     userID,
			ActorName:   userName(ctx, s.db, userID),
			ReferenceID: trip.ID,
			Summary:     fmt.Sprintf("Added %d %s to the plan", added, what),
			Recipients:  without(recipients, userID),
		})
	}
	return added, nil
}

func requireAdmin(db *gorm.DB, userID uuid.UUID) error {
	var user models.User
	if err := db.Select("id", "role").Take(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return forbidden("admin access required")
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !user.IsAdmin() {
		return forbidden("admin access required")
	}
	return nil
}

func catalogPrice(price decimal.Decimal, currency string) (string, error) {
	currency = strings.ToUpper(currency)
	if currency == "" {
		currency = utils.DefaultCurrency
	}
	if !utils.ValidCurrency(currency) {
		return "", invalid("unsupported currency %q", currency)
	}
	if price.IsNegative() {
		return "", invalid("price cannot be negative")
	}
	return currency, nil
}

func nonNegative(v decimal.NullDecimal, field string) error {
	if v.Valid && v.Decimal.IsNegative() {
		return invalid("%s cannot be negative", field)
	}
	return nil
}
