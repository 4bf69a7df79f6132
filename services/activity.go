package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tripplanner-backend/models"
)

type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

func (s *ActivityService) Record(ctx context.Context, a *models.Activity) error {
	if _, err := createForTrip(s.db.WithContext(ctx), a.TripID, a); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ListForUser returns recent activity across every trip the user belongs to.
func (s *ActivityService) ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.ActivityResponse, error) {
	db := s.db.WithContext(ctx)
	tripIDs := db.Model(&models.TripMember{}).Select("trip_id").
		Where("user_id = ? AND status = ?", userID, models.MemberAccepted)

	var activities []models.Activity
	if err := db.Where("trip_id IN (?)", tripIDs).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return s.describe(db, activities)
}

func (s *ActivityService) ListForTrip(ctx context.Context, tripID, requesterID uuid.UUID, offset, limit int) ([]models.ActivityResponse, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return nil, err
	}
	if err := requireMember(db, tripID, requesterID); err != nil {
		return nil, err
	}
	var activities []models.Activity
	if err := db.Where("trip_id = ?", tripID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return s.describe(db, activities)
}

func (s *ActivityService) describe(db *gorm.DB, activities []models.Activity) ([]models.ActivityResponse, error) {
	var tripIDs, userIDs []uuid.UUID
	for _, a := range activities {
		tripIDs = append(tripIDs, a.TripID)
		userIDs = append(userIDs, a.UserID)
	}
	tripNames := make(map[uuid.UUID]string)
	if len(tripIDs) > 0 {
		var trips []models.Trip
		if err := db.Select("id", "name").Where("id IN ?", tripIDs).Find(&trips).Error; err != nil {
			return nil, fmt.Errorf("load trips: %w", err)
		}
		for _, t := range trips {
			tripNames[t.ID] = t.Name
		}
	}
	users, err := usersByID(db, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.ActivityResponse, len(activities))
	for i := range activities {
		out[i] = activities[i].ToResponse()
		out[i].TripName = tripNames[activities[i].TripID]
		if u := users[activities[i].UserID]; u != nil {
			out[i].UserName = u.Name
		}
	}
	return out, nil
}
