package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripplanner-backend/database"
	"tripplanner-backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type broadcast struct {
	TripID  uuid.UUID
	UserID  uuid.UUID
	Event   string
	Payload interface{}
}

type fakeRooms struct {
	mu   sync.Mutex
	sent []broadcast
}

func (f *fakeRooms) Broadcast(_ context.Context, tripID uuid.UUID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, broadcast{TripID: tripID, Event: event, Payload: payload})
	return nil
}

func (f *fakeRooms) SendToUser(_ context.Context, userID uuid.UUID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, broadcast{UserID: userID, Event: event, Payload: payload})
	return nil
}

func (f *fakeRooms) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, b := range f.sent {
		out[i] = b.Event
	}
	return out
}

type fakePusher struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (f *fakePusher) Push(_ context.Context, token, _, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, e Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return f.err
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Email:        name + "@example.com",
		Name:         name,
		PasswordHash: "x",
		Currency:     "USD",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTrip(t *testing.T, svc *TripService, owner uuid.UUID) *models.Trip {
	t.Helper()
	trip, err := svc.CreateTrip(context.Background(), owner, CreateTripParams{
		Name:      "Lisbon",
		Budget:    decimal.NewFromInt(1000),
		Currency:  "USD",
		StartDate: date("2025-01-01"),
		EndDate:   date("2025-01-05"),
	})
	require.NoError(t, err)
	return trip
}

// join invites userID on behalf of inviter and accepts on the user's behalf.
func join(t *testing.T, svc *TripService, tripID, inviter, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	inv, err := svc.InviteUser(ctx, tripID, inviter, userID, "")
	require.NoError(t, err)
	_, err = svc.RespondToInvitation(ctx, inv.ID, userID, true)
	require.NoError(t, err)
}

// clock returns a time source that advances one second per call so ordering
// by timestamp is deterministic.
func clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type testEnv struct {
	db       *gorm.DB
	events   *recorder
	trips    *TripService
	expenses *ExpenseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	events := &recorder{}
	now := clock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))

	trips := NewTripService(db, events, quietLogger(), 7*24*time.Hour)
	trips.now = now
	expenses := NewExpenseService(db, events, quietLogger())
	expenses.now = now
	return &testEnv{db: db, events: events, trips: trips, expenses: expenses}
}
