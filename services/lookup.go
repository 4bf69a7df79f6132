package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripplanner-backend/models"
)

func loadTrip(tx *gorm.DB, tripID uuid.UUID, trip *models.Trip) error {
	if err := tx.First(trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("trip not found")
		}
		return fmt.Errorf("load trip: %w", err)
	}
	return nil
}

// exists returns a NotFound error when no row of model matches.
func exists(tx *gorm.DB, model interface{}, query string, args ...interface{}) error {
	var n int64
	if err := tx.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return fmt.Errorf("lookup %s: %w", entityName(model), err)
	}
	if n == 0 {
		return notFound("%s not found", entityName(model))
	}
	return nil
}

func entityName(model interface{}) string {
	switch model.(type) {
	case *models.Trip:
		return "trip"
	case *models.User:
		return "user"
	case *models.Destination:
		return "destination"
	case *models.SubDestination:
		return "sub-destination"
	case *models.Accommodation:
		return "accommodation"
	case *models.Transport:
		return "transport"
	case *models.Expense:
		return "expense"
	case *models.TripMessage:
		return "message"
	}
	return "record"
}

func findMember(tx *gorm.DB, tripID, userID uuid.UUID) (*models.TripMember, error) {
	var m models.TripMember
	err := tx.Where("trip_id = ? AND user_id = ?", tripID, userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &m, nil
}

func requireMember(tx *gorm.DB, tripID, userID uuid.UUID) error {
	m, err := findMember(tx, tripID, userID)
	if err != nil {
		return err
	}
	if m == nil || !m.IsActive() {
		return forbidden("you are not a member of this trip")
	}
	return nil
}

func requireEditor(tx *gorm.DB, tripID, userID uuid.UUID) error {
	m, err := findMember(tx, tripID, userID)
	if err != nil {
		return err
	}
	if m == nil || !m.CanEdit() {
		return forbidden("only the trip creator or an admin can do this")
	}
	return nil
}

// memberIDs lists ACCEPTED members in join order.
func memberIDs(tx *gorm.DB, tripID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.Model(&models.TripMember{}).
		Where("trip_id = ? AND status = ?", tripID, models.MemberAccepted).
		Order("invited_at ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	return ids, nil
}

func listMembers(tx *gorm.DB, tripID uuid.UUID) ([]MemberView, error) {
	var members []models.TripMember
	if err := tx.Where("trip_id = ? AND status = ?", tripID, models.MemberAccepted).
		Order("invited_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := usersByID(tx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, len(members))
	for i, m := range members {
		out[i] = MemberView{TripMember: m, User: users[m.UserID]}
	}
	return out, nil
}

func usersByID(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	out := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// userName is best effort; event payloads fall back to an empty name.
func userName(ctx context.Context, db *gorm.DB, id uuid.UUID) string {
	var u models.User
	if err := db.WithContext(ctx).Select("name").First(&u, "id = ?", id).Error; err != nil {
		return ""
	}
	return u.Name
}

func without(ids []uuid.UUID, exclude uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

// createForTrip inserts row only while the trip still exists and reports
// whether it did. The shared lock on the trip row serializes it with DeleteTrip.
func createForTrip(db *gorm.DB, tripID uuid.UUID, row interface{}) (bool, error) {
	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var trips []models.Trip
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").Where("id = ?", tripID).Limit(1).Find(&trips).Error; err != nil {
			return fmt.Errorf("lookup trip: %w", err)
		}
		if len(trips) == 0 {
			return nil
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
