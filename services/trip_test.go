package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner-backend/models"
)

func TestCreateTripAddsCreatorMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")

	trip := newTrip(t, env.trips, alice.ID)
	assert.Equal(t, models.TripPlanning, trip.Status)
	assert.True(t, trip.Budget.Equal(decimal.NewFromInt(1000)))

	members, err := env.trips.ListMembers(ctx, trip.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, alice.ID, members[0].UserID)
	assert.Equal(t, models.RoleCreator, members[0].Role)
	assert.Equal(t, models.MemberAccepted, members[0].Status)
	assert.Equal(t, []EventKind{EventTripCreated}, env.events.kinds())
}

func TestCreateTripValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")

	cases := map[string]CreateTripParams{
		"blank name":     {Name: "  ", StartDate: date("2025-01-01"), EndDate: date("2025-01-02")},
		"missing dates":  {Name: "x"},
		"reversed dates": {Name: "x", StartDate: date("2025-01-05"), EndDate: date("2025-01-01")},
		"negative":       {Name: "x", StartDate: date("2025-01-01"), EndDate: date("2025-01-02"), Budget: decimal.NewFromInt(-1)},
		"bad status":     {Name: "x", StartDate: date("2025-01-01"), EndDate: date("2025-01-02"), Status: "DREAMING"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.trips.CreateTrip(ctx, alice.ID, p)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	missing := uuid.New()
	_, err := env.trips.CreateTrip(ctx, alice.ID, CreateTripParams{
		Name: "x", DestinationID: &missing, StartDate: date("2025-01-01"), EndDate: date("2025-01-02"),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteAndAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	trip := newTrip(t, env.trips, alice.ID)

	inv, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "come along")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
	require.NotNil(t, inv.ExpiresAt)

	pending, err := env.trips.ListUserInvitations(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	views, err := env.trips.DescribeInvitations(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", views[0].TripName)
	assert.Equal(t, "alice", views[0].InviterName)

	// A pending invitee may look at the trip before answering.
	_, err = env.trips.GetTripView(ctx, trip.ID, bob.ID)
	require.NoError(t, err)

	accepted, err := env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)

	members, err := env.trips.ListMembers(ctx, trip.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleCreator, members[0].Role)
	assert.Equal(t, bob.ID, members[1].UserID)
	assert.Equal(t, models.RoleMember, members[1].Role)
	assert.Equal(t, "bob", members[1].User.Name)

	ev := env.events.last()
	assert.Equal(t, EventInvitationAccepted, ev.Kind)
	assert.Equal(t, []uuid.UUID{alice.ID}, ev.Recipients)

	ok, err := env.trips.IsMember(ctx, trip.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.trips.CanEdit(ctx, trip.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRespondToInvitationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	trip := newTrip(t, env.trips, alice.ID)

	inv, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, true)
	require.NoError(t, err)
	published := len(env.events.kinds())

	again, err := env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, again.Status)
	assert.Len(t, env.events.kinds(), published)

	var n int64
	require.NoError(t, env.db.Model(&models.TripMember{}).Where("trip_id = ?", trip.ID).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	_, err = env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, false)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeclineInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	trip := newTrip(t, env.trips, alice.ID)

	inv, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	require.NoError(t, err)
	declined, err := env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, declined.Status)
	assert.Equal(t, EventInvitationDeclined, env.events.last().Kind)

	ok, err := env.trips.IsMember(ctx, trip.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, true)
	assert.ErrorIs(t, err, ErrConflict)

	// A declined invitee can be invited again.
	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	assert.NoError(t, err)
}

func TestInviteUserRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	carol := createUser(t, env.db, "carol")
	trip := newTrip(t, env.trips, alice.ID)

	_, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, alice.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.trips.InviteUser(ctx, uuid.New(), alice.ID, bob.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	assert.ErrorIs(t, err, ErrConflict, "duplicate pending invitation")

	join(t, env.trips, trip.ID, alice.ID, carol.ID)
	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, carol.ID, "")
	assert.ErrorIs(t, err, ErrConflict, "already a member")

	// Plain members cannot invite.
	dave := createUser(t, env.db, "dave")
	_, err = env.trips.InviteUser(ctx, trip.ID, carol.ID, dave.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOnlyInviteeMayRespond(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	trip := newTrip(t, env.trips, alice.ID)

	inv, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	require.NoError(t, err)

	_, err = env.trips.RespondToInvitation(ctx, inv.ID, alice.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.trips.RespondToInvitation(ctx, uuid.New(), bob.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	carol := createUser(t, env.db, "carol")
	trip := newTrip(t, env.trips, alice.ID)

	inv, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, carol.ID, "")
	require.NoError(t, err)

	_, err = env.trips.GetTripView(ctx, trip.ID, carol.ID)
	require.NoError(t, err, "pending invitees may look at the trip")

	later := inv.InvitedAt.Add(8 * 24 * time.Hour)
	env.trips.now = func() time.Time { return later }

	_, err = env.trips.GetTripView(ctx, trip.ID, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden, "a lapsed invitation grants nothing before the sweep runs")

	_, err = env.trips.RespondToInvitation(ctx, inv.ID, bob.ID, true)
	assert.ErrorIs(t, err, ErrValidation)

	var stored models.TripInvitation
	require.NoError(t, env.db.First(&stored, "id = ?", inv.ID).Error)
	assert.Equal(t, models.InvitationExpired, stored.Status)

	pending, err := env.trips.ListUserInvitations(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := env.trips.ExpireInvitations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Expired invitations do not block a fresh one.
	_, err = env.trips.InviteUser(ctx, trip.ID, alice.ID, bob.ID, "")
	assert.NoError(t, err)
}

func TestAdminCanInviteAfterPromotion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	carol := createUser(t, env.db, "carol")
	trip := newTrip(t, env.trips, alice.ID)
	join(t, env.trips, trip.ID, alice.ID, bob.ID)

	assert.ErrorIs(t, env.trips.SetMemberRole(ctx, trip.ID, bob.ID, bob.ID, models.RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, env.trips.SetMemberRole(ctx, trip.ID, alice.ID, alice.ID, models.RoleMember), ErrValidation)
	assert.ErrorIs(t, env.trips.SetMemberRole(ctx, trip.ID, alice.ID, bob.ID, models.RoleCreator), ErrValidation)
	assert.ErrorIs(t, env.trips.SetMemberRole(ctx, trip.ID, alice.ID, carol.ID, models.RoleAdmin), ErrNotFound)

	require.NoError(t, env.trips.SetMemberRole(ctx, trip.ID, alice.ID, bob.ID, models.RoleAdmin))
	assert.Equal(t, EventMemberRoleChanged, env.events.last().Kind)

	ok, err := env.trips.CanEdit(ctx, trip.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = env.trips.InviteUser(ctx, trip.ID, bob.ID, carol.ID, "")
	assert.NoError(t, err)
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	carol := createUser(t, env.db, "carol")
	dave := createUser(t, env.db, "dave")
	trip := newTrip(t, env.trips, alice.ID)
	join(t, env.trips, trip.ID, alice.ID, bob.ID)
	join(t, env.trips, trip.ID, alice.ID, carol.ID)
	join(t, env.trips, trip.ID, alice.ID, dave.ID)
	require.NoError(t, env.trips.SetMemberRole(ctx, trip.ID, alice.ID, bob.ID, models.RoleAdmin))

	assert.ErrorIs(t, env.trips.RemoveMember(ctx, trip.ID, bob.ID, alice.ID), ErrValidation, "creator cannot be removed")
	assert.ErrorIs(t, env.trips.RemoveMember(ctx, trip.ID, carol.ID, dave.ID), ErrForbidden, "members cannot remove others")

	require.NoError(t, env.trips.RemoveMember(ctx, trip.ID, bob.ID, carol.ID))
	ev := env.events.last()
	assert.Equal(t, EventMemberRemoved, ev.Kind)
	assert.Equal(t, carol.ID, ev.SubjectID)

	var m models.TripMember
	require.NoError(t, env.db.First(&m, "trip_id = ? AND user_id = ?", trip.ID, carol.ID).Error)
	assert.Equal(t, models.MemberRemoved, m.Status)

	require.NoError(t, env.trips.RemoveMember(ctx, trip.ID, dave.ID, dave.ID), "members may leave")
	assert.ErrorIs(t, env.trips.RemoveMember(ctx, trip.ID, dave.ID, dave.ID), ErrNotFound)

	// A removed member can be invited back and rejoins as a MEMBER.
	join(t, env.trips, trip.ID, alice.ID, carol.ID)
	ok, err := env.trips.IsMember(ctx, trip.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	trip := newTrip(t, env.trips, alice.ID)
	join(t, env.trips, trip.ID, alice.ID, bob.ID)

	name := "Porto"
	_, err := env.trips.UpdateTrip(ctx, trip.ID, bob.ID, UpdateTripParams{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	early := date("2024-12-01")
	_, err = env.trips.UpdateTrip(ctx, trip.ID, alice.ID, UpdateTripParams{EndDate: &early})
	assert.ErrorIs(t, err, ErrValidation)

	status := models.TripConfirmed
	updated, err := env.trips.UpdateTrip(ctx, trip.ID, alice.ID, UpdateTripParams{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Porto", updated.Name)
	assert.Equal(t, models.TripConfirmed, updated.Status)

	ev := env.events.last()
	assert.Equal(t, EventTripUpdated, ev.Kind)
	assert.Equal(t, []uuid.UUID{bob.ID}, ev.Recipients)

	trips, err := env.trips.ListUserTrips(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "Porto", trips[0].Name)
}

func TestDeleteTripCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	carol := createUser(t, env.db, "carol")
	trip := newTrip(t, env.trips, alice.ID)
	join(t, env.trips, trip.ID, alice.ID, bob.ID)
	_, err := env.trips.InviteUser(ctx, trip.ID, alice.ID, carol.ID, "")
	require.NoError(t, err)
	_, _, err = env.expenses.CreateExpense(ctx, trip.ID, alice.ID, CreateExpenseParams{
		Description: "Dinner", Amount: decimal.NewFromInt(60), IsShared: true,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.trips.DeleteTrip(ctx, trip.ID, bob.ID), ErrForbidden)
	require.NoError(t, env.trips.DeleteTrip(ctx, trip.ID, alice.ID))
	assert.Equal(t, EventTripDeleted, env.events.last().Kind)

	for _, m := range []interface{}{
		&models.Trip{}, &models.TripMember{}, &models.TripInvitation{},
		&models.Expense{}, &models.ExpenseSettlement{},
	} {
		var n int64
		require.NoError(t, env.db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
	_, err = env.trips.GetTrip(ctx, trip.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetTripViewAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	mallory := createUser(t, env.db, "mallory")
	trip := newTrip(t, env.trips, alice.ID)

	_, err := env.trips.GetTripView(ctx, trip.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.trips.GetTripView(ctx, uuid.New(), alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	view, err := env.trips.GetTripView(ctx, trip.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, view.MemberCount)
	assert.True(t, view.TotalExpenses.IsZero())
}

func TestRequireMemberDistinguishesMissingTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	trip := newTrip(t, env.trips, alice.ID)

	assert.NoError(t, env.trips.RequireMember(ctx, trip.ID, alice.ID))
	assert.ErrorIs(t, env.trips.RequireMember(ctx, trip.ID, bob.ID), ErrForbidden)
	assert.ErrorIs(t, env.trips.RequireMember(ctx, uuid.New(), alice.ID), ErrNotFound)
	assert.ErrorIs(t, env.trips.RequireEditor(ctx, trip.ID, bob.ID), ErrForbidden)
}
