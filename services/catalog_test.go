package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner-backend/models"
)

type catalogFixture struct {
	dest  *models.Destination
	sight *models.SubDestination
	hotel *models.Accommodation
	ferry *models.Transport
}

func seedCatalog(t *testing.T, svc *CatalogService, adminID uuid.UUID) catalogFixture {
	t.Helper()
	ctx := context.Background()
	f := catalogFixture{
		dest:  &models.Destination{Name: "Azores", Country: "Portugal", BudgetLevel: "mid_range"},
		sight: &models.SubDestination{Name: "Sete Cidades", EntryFee: decimal.NewNullDecimal(d("5"))},
		hotel: &models.Accommodation{Name: "Casa Azul", PricePerNight: d("80")},
		ferry: &models.Transport{Type: "ferry", Price: d("20")},
	}
	require.NoError(t, svc.CreateDestination(ctx, adminID, f.dest))
	require.NoError(t, svc.CreateSubDestination(ctx, adminID, f.dest.ID, f.sight))
	require.NoError(t, svc.CreateAccommodation(ctx, adminID, f.dest.ID, f.hotel))
	require.NoError(t, svc.CreateTransport(ctx, adminID, f.dest.ID, f.ferry))
	return f
}

func newAdmin(t *testing.T, env *testEnv) *models.User {
	admin := &models.User{Email: "root@example.com", Name: "root", PasswordHash: "x", Role: models.UserRoleAdmin}
	require.NoError(t, env.db.Create(admin).Error)
	return admin
}

func TestCatalogAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCatalogService(env.db, env.events)
	alice := createUser(t, env.db, "alice")
	admin := newAdmin(t, env)

	assert.ErrorIs(t, svc.CreateDestination(ctx, alice.ID, &models.Destination{Name: "x"}), ErrForbidden)
	assert.ErrorIs(t, svc.CreateDestination(ctx, admin.ID, &models.Destination{Name: " "}), ErrValidation)

	f := seedCatalog(t, svc, admin.ID)
	assert.Equal(t, "USD", f.hotel.Currency)
	assert.ErrorIs(t, svc.CreateAccommodation(ctx, admin.ID, uuid.New(), &models.Accommodation{Name: "x"}), ErrNotFound)
	assert.ErrorIs(t, svc.CreateTransport(ctx, admin.ID, f.dest.ID, &models.Transport{Type: "bus", Price: d("-1")}), ErrValidation)

	list, total, err := svc.ListDestinations(ctx, DestinationFilter{Search: "azo"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)

	detail, err := svc.GetDestination(ctx, f.dest.ID)
	require.NoError(t, err)
	assert.Len(t, detail.SubDestinations, 1)
	assert.Len(t, detail.Accommodations, 1)
	assert.Len(t, detail.Transports, 1)

	_, err = svc.GetDestination(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTripPlanAssociationsAndCostEstimate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCatalogService(env.db, env.events)
	admin := newAdmin(t, env)
	alice := createUser(t, env.db, "alice")
	bob := createUser(t, env.db, "bob")
	f := seedCatalog(t, svc, admin.ID)
	trip := newTrip(t, env.trips, alice.ID)
	join(t, env.trips, trip.ID, alice.ID, bob.ID)

	_, err := svc.AddAccommodations(ctx, trip.ID, bob.ID, []AccommodationPlan{{AccommodationID: f.hotel.ID, NumberOfRooms: 2}})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.AddTransports(ctx, trip.ID, alice.ID, []TransportPlan{{TransportID: uuid.New()}})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AddTransports(ctx, trip.ID, alice.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)

	n, err := svc.AddAccommodations(ctx, trip.ID, alice.ID, []AccommodationPlan{{AccommodationID: f.hotel.ID, NumberOfRooms: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	ev := env.events.last()
	assert.Equal(t, EventTripUpdated, ev.Kind)
	assert.Equal(t, []uuid.UUID{bob.ID}, ev.Recipients)

	n, err = svc.AddAccommodations(ctx, trip.ID, alice.ID, []AccommodationPlan{{AccommodationID: f.hotel.ID, NumberOfRooms: 5}})
	require.NoError(t, err)
	assert.Zero(t, n, "already on the plan")

	_, err = svc.AddTransports(ctx, trip.ID, alice.ID, []TransportPlan{{TransportID: f.ferry.ID, NumberOfPassengers: 2}})
	require.NoError(t, err)
	_, err = svc.AddSubDestinations(ctx, trip.ID, alice.ID, []SubDestinationPlan{{SubDestinationID: f.sight.ID}})
	require.NoError(t, err)
	_, _, err = env.expenses.CreateExpense(ctx, trip.ID, alice.ID, CreateExpenseParams{Description: "Snacks", Amount: d("15")})
	require.NoError(t, err)

	view, err := env.trips.GetTripView(ctx, trip.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, view.Accommodations, 1)
	assert.Equal(t, 2, view.Accommodations[0].Plan.NumberOfRooms)
	require.Len(t, view.Transports, 1)
	require.Len(t, view.SubDestinations, 1)
	require.Len(t, view.Expenses, 1)

	// 15 expense + 80*2 rooms*7 nights + 20*2 passengers + 5 entry fee
	assert.True(t, view.TotalExpenses.Equal(d("1180")), view.TotalExpenses.String())
}

func TestDestinationFiltersUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCatalogService(env.db, env.events)
	admin := newAdmin(t, env)
	alice := createUser(t, env.db, "alice")
	f := seedCatalog(t, svc, admin.ID)
	assert.Equal(t, models.BudgetLevelMidRange, f.dest.BudgetLevel)
	require.NoError(t, svc.CreateDestination(ctx, admin.ID, &models.Destination{Name: "Kyoto", Country: "Japan", BudgetLevel: "LUXURY"}))
	require.NoError(t, svc.CreateDestination(ctx, admin.ID, &models.Destination{Name: "Porto", Country: "Portugal"}))
	assert.ErrorIs(t, svc.CreateDestination(ctx, admin.ID, &models.Destination{Name: "x", BudgetLevel: "CHEAP"}), ErrValidation)

	filters, err := svc.DestinationFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Japan", "Portugal"}, filters.Countries)
	assert.Equal(t, []string{"LUXURY", "MID_RANGE"}, filters.BudgetLevels)

	list, total, err := svc.ListDestinations(ctx, DestinationFilter{Country: "Portugal", BudgetLevel: "mid_range"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Azores", list[0].Name)

	name, level := "Azores Islands", "budget"
	_, err = svc.UpdateDestination(ctx, alice.ID, f.dest.ID, UpdateDestinationParams{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateDestination(ctx, admin.ID, uuid.New(), UpdateDestinationParams{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	blank := " "
	_, err = svc.UpdateDestination(ctx, admin.ID, f.dest.ID, UpdateDestinationParams{Name: &blank})
	assert.ErrorIs(t, err, ErrValidation)
	updated, err := svc.UpdateDestination(ctx, admin.ID, f.dest.ID, UpdateDestinationParams{Name: &name, BudgetLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, "Azores Islands", updated.Name)
	assert.Equal(t, models.BudgetLevelBudget, updated.BudgetLevel)
	assert.Equal(t, "Portugal", updated.Country)

	trip := newTrip(t, env.trips, alice.ID)
	_, err = svc.AddAccommodations(ctx, trip.ID, alice.ID, []AccommodationPlan{{AccommodationID: f.hotel.ID, NumberOfRooms: 1}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteDestination(ctx, alice.ID, f.dest.ID), ErrForbidden)
	require.NoError(t, svc.DeleteDestination(ctx, admin.ID, f.dest.ID))
	assert.ErrorIs(t, svc.DeleteDestination(ctx, admin.ID, f.dest.ID), ErrNotFound)

	_, err = svc.GetDestination(ctx, f.dest.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var planned, stays int64
	require.NoError(t, env.db.Model(&models.TripAccommodation{}).Where("trip_id = ?", trip.ID).Count(&planned).Error)
	require.NoError(t, env.db.Model(&models.Accommodation{}).Where("id = ?", f.hotel.ID).Count(&stays).Error)
	assert.Zero(t, planned, "deleted items leave the trip plan")
	assert.Zero(t, stays)
}
