package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

// TripService owns trips, memberships and invitations.
type TripService struct {
	db            *gorm.DB
	events        Publisher
	log           logrus.FieldLogger
	invitationTTL time.Duration
	now           func() time.Time
}

func NewTripService(db *gorm.DB, events Publisher, log logrus.FieldLogger, invitationTTL time.Duration) *TripService {
	return &TripService{
		db:            db,
		events:        events,
		log:           log,
		invitationTTL: invitationTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type CreateTripParams struct {
	Name          string
	DestinationID *uuid.UUID
	PhotoURL      string
	Budget        decimal.Decimal
	Currency      string
	StartDate     time.Time
	EndDate       time.Time
	Status        models.TripStatus
}

type UpdateTripParams struct {
	Name      *string
	PhotoURL  *string
	Budget    *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
	Status    *models.TripStatus
}

// CreateTrip persists the trip and its CREATOR membership in one transaction.
func (s *TripService) CreateTrip(ctx context.Context, ownerID uuid.UUID, p CreateTripParams) (*models.Trip, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, invalid("trip name is required")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return nil, invalid("start and end dates are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, invalid("end date must not be before start date")
	}
	if p.Budget.IsNegative() {
		return nil, invalid("budget cannot be negative")
	}
	if p.Status == "" {
		p.Status = models.TripPlanning
	}
	if !p.Status.Valid() {
		return nil, invalid("unknown trip status %q", p.Status)
	}
	if p.Currency == "" {
		p.Currency = utils.DefaultCurrency
	}

	now := s.now()
	trip := &models.Trip{
		Name:          p.Name,
		DestinationID: p.DestinationID,
		CreatorUserID: ownerID,
		PhotoURL:      p.PhotoURL,
		Budget:        p.Budget,
		Currency:      p.Currency,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Status:        p.Status,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.DestinationID != nil {
			if err := exists(tx, &models.Destination{}, "id = ?", *p.DestinationID); err != nil {
				return err
			}
		}
		if err := tx.Create(trip).Error; err != nil {
			return fmt.Errorf("create trip: %w", err)
		}
		member := &models.TripMember{
			TripID:      trip.ID,
			UserID:      ownerID,
			Role:        models.RoleCreator,
			Status:      models.MemberAccepted,
			InvitedAt:   now,
			RespondedAt: &now,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("create creator membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, Event{
		Kind:        EventTripCreated,
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     ownerID,
		ActorName:   userName(ctx, s.db, ownerID),
		ReferenceID: trip.ID,
	})
	return trip, nil
}

// InviteUser records a PENDING invitation. Only CREATOR or ADMIN members may invite.
func (s *TripService) InviteUser(ctx context.Context, tripID, inviterID, inviteeID uuid.UUID, message string) (*models.TripInvitation, error) {
	if inviterID == inviteeID {
		return nil, invalid("you cannot invite yourself")
	}
	now := s.now()
	var trip models.Trip
	var invitation *models.TripInvitation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTrip(tx, tripID, &trip); err != nil {
			return err
		}
		if err := requireEditor(tx, tripID, inviterID); err != nil {
			return err
		}
		if err := exists(tx, &models.User{}, "id = ?", inviteeID); err != nil {
			return err
		}

		member, err := findMember(tx, tripID, inviteeID)
		if err != nil {
			return err
		}
		if member != nil && member.IsActive() {
			return conflict("user is already a member of this trip")
		}

		var pending []models.TripInvitation
		if err := tx.Where("trip_id = ? AND invitee_user_id = ? AND status = ?", tripID, inviteeID, models.InvitationPending).
			Find(&pending).Error; err != nil {
			return fmt.Errorf("find pending invitations: %w", err)
		}
		for i := range pending {
			if !pending[i].ExpiredAt(now) {
				return conflict("user already has a pending invitation to this trip")
			}
			if err := expireInvitation(tx, &pending[i]); err != nil {
				return err
			}
		}

		expires := now.Add(s.invitationTTL)
		invitation = &models.TripInvitation{
			TripID:        tripID,
			InviterUserID: inviterID,
			InviteeUserID: inviteeID,
			Message:       strings.TrimSpace(message),
			Status:        models.InvitationPending,
			InvitedAt:     now,
			ExpiresAt:     &expires,
		}
		if err := tx.Create(invitation).Error; err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, Event{
		Kind:        EventInvitationSent,
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     inviterID,
		ActorName:   userName(ctx, s.db, inviterID),
		SubjectID:   inviteeID,
		SubjectName: userName(ctx, s.db, inviteeID),
		ReferenceID: invitation.ID,
		Summary:     invitation.Message,
		Recipients:  []uuid.UUID{inviteeID},
	})
	return invitation, nil
}

// RespondToInvitation accepts or declines a PENDING invitation on behalf of
// its invitee. Repeating the response already recorded is a no-op.
func (s *TripService) RespondToInvitation(ctx context.Context, invitationID, responderID uuid.UUID, accept bool) (*models.TripInvitation, error) {
	now := s.now()
	var inv models.TripInvitation
	var trip models.Trip
	var expired, joined, changed bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, "id = ?", invitationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("invitation not found")
			}
			return fmt.Errorf("load invitation: %w", err)
		}
		if inv.InviteeUserID != responderID {
			return forbidden("only the invited user can respond to this invitation")
		}
		if err := loadTrip(tx, inv.TripID, &trip); err != nil {
			return err
		}

		switch inv.Status {
		case models.InvitationPending:
		case models.InvitationAccepted:
			if accept {
				return nil
			}
			return conflict("invitation has already been accepted")
		case models.InvitationDeclined:
			if !accept {
				return nil
			}
			return conflict("invitation has already been declined")
		default:
			return invalid("invitation has expired")
		}

		if inv.ExpiredAt(now) {
			expired = true
			return expireInvitation(tx, &inv)
		}

		status := models.InvitationDeclined
		if accept {
			status = models.InvitationAccepted
		}
		res := tx.Model(&models.TripInvitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
			Updates(map[string]interface{}{"status": status, "responded_at": now})
		if res.Error != nil {
			return fmt.Errorf("update invitation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("invitation was answered concurrently")
		}
		inv.Status = status
		inv.RespondedAt = &now
		changed = true

		if !accept {
			return nil
		}
		var err error
		joined, err = s.addMember(tx, inv.TripID, responderID, inv.InviterUserID, inv.InvitedAt, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, invalid("invitation has expired")
	}
	if !changed {
		return &inv, nil
	}

	ev := Event{
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     responderID,
		ActorName:   userName(ctx, s.db, responderID),
		SubjectID:   inv.InviterUserID,
		ReferenceID: inv.ID,
		Recipients:  []uuid.UUID{inv.InviterUserID},
	}
	if accept {
		if !joined {
			return &inv, nil
		}
		ev.Kind = EventInvitationAccepted
	} else {
		ev.Kind = EventInvitationDeclined
	}
	s.events.Publish(ctx, ev)
	return &inv, nil
}

// addMember makes userID an ACCEPTED MEMBER. The insert tolerates a concurrent
// duplicate; an existing non-accepted row is reactivated. It reports whether
// the user became a member through this call.
func (s *TripService) addMember(tx *gorm.DB, tripID, userID, invitedBy uuid.UUID, invitedAt, now time.Time) (bool, error) {
	member := &models.TripMember{
		TripID:      tripID,
		UserID:      userID,
		Role:        models.RoleMember,
		Status:      models.MemberAccepted,
		InvitedBy:   &invitedBy,
		InvitedAt:   invitedAt,
		RespondedAt: &now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trip_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member)
	if res.Error != nil {
		return false, fmt.Errorf("add member: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = tx.Model(&models.TripMember{}).
		Where("trip_id = ? AND user_id = ? AND status <> ?", tripID, userID, models.MemberAccepted).
		Updates(map[string]interface{}{
			"role":         models.RoleMember,
			"status":       models.MemberAccepted,
			"invited_by":   invitedBy,
			"invited_at":   invitedAt,
			"responded_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("reactivate member: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IsMember reports whether userID is an ACCEPTED member of tripID.
func (s *TripService) IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	m, err := findMember(s.db.WithContext(ctx), tripID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.IsActive(), nil
}

// CanEdit reports whether userID is an ACCEPTED CREATOR or ADMIN of tripID.
func (s *TripService) CanEdit(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	m, err := findMember(s.db.WithContext(ctx), tripID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.CanEdit(), nil
}

// RequireMember returns ErrNotFound for a missing trip and ErrForbidden for a non-member.
func (s *TripService) RequireMember(ctx context.Context, tripID, userID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return err
	}
	return requireMember(db, tripID, userID)
}

func (s *TripService) RequireEditor(ctx context.Context, tripID, userID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return err
	}
	return requireEditor(db, tripID, userID)
}

func (s *TripService) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := loadTrip(s.db.WithContext(ctx), tripID, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// ListUserTrips returns the trips the user has joined, newest first.
func (s *TripService) ListUserTrips(ctx context.Context, userID uuid.UUID) ([]models.Trip, error) {
	var trips []models.Trip
	err := s.db.WithContext(ctx).
		Joins("JOIN trip_members ON trip_members.trip_id = trips.id").
		Where("trip_members.user_id = ? AND trip_members.status = ?", userID, models.MemberAccepted).
		Order("trips.start_date DESC, trips.created_at DESC").
		Find(&trips).Error
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

func (s *TripService) UpdateTrip(ctx context.Context, tripID, userID uuid.UUID, p UpdateTripParams) (*models.Trip, error) {
	var trip models.Trip
	var recipients []uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTrip(tx, tripID, &trip); err != nil {
			return err
		}
		if err := requireEditor(tx, tripID, userID); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return invalid("trip name is required")
			}
			trip.Name = name
			updates["name"] = name
		}
		if p.PhotoURL != nil {
			trip.PhotoURL = *p.PhotoURL
			updates["photo_url"] = *p.PhotoURL
		}
		if p.Budget != nil {
			if p.Budget.IsNegative() {
				return invalid("budget cannot be negative")
			}
			trip.Budget = *p.Budget
			updates["budget"] = *p.Budget
		}
		if p.StartDate != nil {
			trip.StartDate = *p.StartDate
			updates["start_date"] = *p.StartDate
		}
		if p.EndDate != nil {
			trip.EndDate = *p.EndDate
			updates["end_date"] = *p.EndDate
		}
		if trip.EndDate.Before(trip.StartDate) {
			return invalid("end date must not be before start date")
		}
		if p.Status != nil {
			if !p.Status.Valid() {
				return invalid("unknown trip status %q", *p.Status)
			}
			trip.Status = *p.Status
			updates["status"] = *p.Status
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Trip{}).Where("id = ?", tripID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update trip: %w", err)
		}

		var err error
		recipients, err = memberIDs(tx, tripID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if recipients != nil {
		s.events.Publish(ctx, Event{
			Kind:        EventTripUpdated,
			TripID:      trip.ID,
			TripName:    trip.Name,
			ActorID:     userID,
			ActorName:   userName(ctx, s.db, userID),
			ReferenceID: trip.ID,
			Summary:     "Trip details were updated",
			Recipients:  without(recipients, userID),
		})
	}
	return &trip, nil
}

// DeleteTrip removes the trip and everything hanging off it. Creator only.
func (s *TripService) DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error {
	var trip models.Trip
	var recipients []uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock pairs with createForTrip so late side effects cannot outlive the trip.
		if err := loadTrip(tx.Clauses(clause.Locking{Strength: "UPDATE"}), tripID, &trip); err != nil {
			return err
		}
		if trip.CreatorUserID != userID {
			return forbidden("only the trip creator can delete the trip")
		}
		var err error
		if recipients, err = memberIDs(tx, tripID); err != nil {
			return err
		}

		expenseIDs := tx.Model(&models.Expense{}).Select("id").Where("trip_id = ?", tripID)
		steps := []struct {
			what  string
			model interface{}
			query string
			arg   interface{}
		}{
			{"settlements", &models.ExpenseSettlement{}, "expense_id IN (?)", expenseIDs},
			{"expenses", &models.Expense{}, "trip_id = ?", tripID},
			{"messages", &models.TripMessage{}, "trip_id = ?", tripID},
			{"activity", &models.Activity{}, "trip_id = ?", tripID},
			{"sub-destinations", &models.TripSubDestination{}, "trip_id = ?", tripID},
			{"accommodations", &models.TripAccommodation{}, "trip_id = ?", tripID},
			{"transports", &models.TripTransport{}, "trip_id = ?", tripID},
			{"invitations", &models.TripInvitation{}, "trip_id = ?", tripID},
			{"members", &models.TripMember{}, "trip_id = ?", tripID},
			{"trip", &models.Trip{}, "id = ?", tripID},
		}
		for _, st := range steps {
			if err := tx.Where(st.query, st.arg).Delete(st.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", st.what, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, Event{
		Kind:       EventTripDeleted,
		TripID:     trip.ID,
		TripName:   trip.Name,
		ActorID:    userID,
		ActorName:  userName(ctx, s.db, userID),
		Recipients: without(recipients, userID),
	})
	return nil
}

// MemberView pairs a membership row with the member's profile.
type MemberView struct {
	models.TripMember
	User *models.User
}

func (s *TripService) ListMembers(ctx context.Context, tripID, requesterID uuid.UUID) ([]MemberView, error) {
	if err := s.RequireMember(ctx, tripID, requesterID); err != nil {
		return nil, err
	}
	return listMembers(s.db.WithContext(ctx), tripID)
}

// ListUserInvitations returns the user's unexpired PENDING invitations.
func (s *TripService) ListUserInvitations(ctx context.Context, userID uuid.UUID) ([]models.TripInvitation, error) {
	var invitations []models.TripInvitation
	err := s.db.WithContext(ctx).
		Where("invitee_user_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)", userID, models.InvitationPending, s.now()).
		Order("invited_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// SetMemberRole promotes or demotes an accepted member. Creator only.
func (s *TripService) SetMemberRole(ctx context.Context, tripID, actorID, targetID uuid.UUID, role models.MemberRole) error {
	if role != models.RoleAdmin && role != models.RoleMember {
		return invalid("role must be ADMIN or MEMBER")
	}
	var trip models.Trip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTrip(tx, tripID, &trip); err != nil {
			return err
		}
		if trip.CreatorUserID != actorID {
			return forbidden("only the trip creator can change roles")
		}
		target, err := findMember(tx, tripID, targetID)
		if err != nil {
			return err
		}
		if target == nil || !target.IsActive() {
			return notFound("member not found")
		}
		if target.Role == models.RoleCreator {
			return invalid("the creator's role cannot be changed")
		}
		return tx.Model(&models.TripMember{}).
			Where("trip_id = ? AND user_id = ?", tripID, targetID).
			Update("role", role).Error
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, Event{
		Kind:        EventMemberRoleChanged,
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     actorID,
		ActorName:   userName(ctx, s.db, actorID),
		SubjectID:   targetID,
		SubjectName: userName(ctx, s.db, targetID),
		Summary:     string(role),
		Recipients:  []uuid.UUID{targetID},
	})
	return nil
}

// RemoveMember marks a membership REMOVED. Members may remove themselves;
// the creator may remove anyone else; admins may remove plain members.
func (s *TripService) RemoveMember(ctx context.Context, tripID, actorID, targetID uuid.UUID) error {
	var trip models.Trip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTrip(tx, tripID, &trip); err != nil {
			return err
		}
		target, err := findMember(tx, tripID, targetID)
		if err != nil {
			return err
		}
		if target == nil || !target.IsActive() {
			return notFound("member not found")
		}
		if target.Role == models.RoleCreator {
			return invalid("the trip creator cannot be removed")
		}
		if actorID != targetID {
			actor, err := findMember(tx, tripID, actorID)
			if err != nil {
				return err
			}
			if actor == nil || !actor.CanEdit() {
				return forbidden("you do not have permission to remove members")
			}
			if actor.Role == models.RoleAdmin && target.Role != models.RoleMember {
				return forbidden("admins can only remove regular members")
			}
		}
		now := s.now()
		return tx.Model(&models.TripMember{}).
			Where("trip_id = ? AND user_id = ?", tripID, targetID).
			Updates(map[string]interface{}{"status": models.MemberRemoved, "responded_at": now}).Error
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, Event{
		Kind:        EventMemberRemoved,
		TripID:      trip.ID,
		TripName:    trip.Name,
		ActorID:     actorID,
		ActorName:   userName(ctx, s.db, actorID),
		SubjectID:   targetID,
		SubjectName: userName(ctx, s.db, targetID),
		Recipients:  []uuid.UUID{targetID},
	})
	return nil
}

// ExpireInvitations marks overdue PENDING invitations EXPIRED and returns how many changed.
func (s *TripService) ExpireInvitations(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.TripInvitation{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.InvitationPending, s.now()).
		Update("status", models.InvitationExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire invitations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// InvitationView adds display names to an invitation.
type InvitationView struct {
	models.TripInvitation
	TripName    string
	InviterName string
}

func (s *TripService) DescribeInvitations(ctx context.Context, invitations []models.TripInvitation) ([]InvitationView, error) {
	tripIDs := make([]uuid.UUID, 0, len(invitations))
	userIDs := make([]uuid.UUID, 0, len(invitations))
	for _, inv := range invitations {
		tripIDs = append(tripIDs, inv.TripID)
		userIDs = append(userIDs, inv.InviterUserID)
	}
	db := s.db.WithContext(ctx)

	var trips []models.Trip
	if len(tripIDs) > 0 {
		if err := db.Where("id IN ?", tripIDs).Find(&trips).Error; err != nil {
			return nil, fmt.Errorf("load trips: %w", err)
		}
	}
	names := make(map[uuid.UUID]string, len(trips))
	for _, t := range trips {
		names[t.ID] = t.Name
	}
	users, err := usersByID(db, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]InvitationView, len(invitations))
	for i, inv := range invitations {
		out[i] = InvitationView{TripInvitation: inv, TripName: names[inv.TripID]}
		if u := users[inv.InviterUserID]; u != nil {
			out[i].InviterName = u.Name
		}
	}
	return out, nil
}

func expireInvitation(tx *gorm.DB, inv *models.TripInvitation) error {
	if err := tx.Model(&models.TripInvitation{}).
		Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
		Update("status", models.InvitationExpired).Error; err != nil {
		return fmt.Errorf("expire invitation: %w", err)
	}
	inv.Status = models.InvitationExpired
	return nil
}
