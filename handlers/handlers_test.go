package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripplanner-backend/database"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := utils.RegisterValidators(); err != nil {
		panic(err)
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	log := logrus.New()
	log.SetOutput(io.Discard)

	events := services.NewDispatcher(log, false)
	users := services.NewUserService(db)
	chat := services.NewChatService(db, nil, log)
	notify := services.NewNotificationService(db, nil, nil, nil, log)
	activity := services.NewActivityService(db)
	services.NewEventConsumers(chat, notify, activity, "TripPlanner", "http://localhost").Register(events)

	h := New(Deps{
		DB:       db,
		Users:    users,
		Trips:    services.NewTripService(db, events, log, 7*24*time.Hour),
		Expenses: services.NewExpenseService(db, events, log),
		Catalog:  services.NewCatalogService(db, events),
		Chat:     chat,
		Notify:   notify,
		Activity: activity,
		Tokens:   utils.NewTokenManager("test-secret", time.Hour, "test"),
		Log:      log,
		AppName:  "TripPlanner",
	})
	return &testServer{t: t, router: NewRouter(h, RouterConfig{CORSOrigins: []string{"*"}}), db: db}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, apiEnvelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

func (s *testServer) register(name string) session {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/auth/register", "", gin.H{
		"name": name, "email": name + "@example.com", "password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	var out session
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out
}

func decode[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	assert.NotEmpty(t, alice.Token)

	code, _ := s.do(http.MethodPost, "/auth/register", "", gin.H{
		"name": "alice", "email": "alice@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "x", "email": "nope", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, alice.User.ID, decode[session](t, env).User.ID)

	code, _ = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, env = s.do(http.MethodGet, "/api/users/me", alice.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	me := decode[struct {
		Name string `json:"name"`
	}](t, env)
	assert.Equal(t, "alice", me.Name)
}

func TestTripExpenseFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	code, env := s.do(http.MethodPost, "/api/trips", alice.Token, gin.H{
		"name": "Lisbon", "budget": "1000", "currency": "USD",
		"start_date": "2025-01-01", "end_date": "2025-01-05",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	trip := decode[struct {
		ID string `json:"id"`
	}](t, env)
	tripPath := "/api/trips/" + trip.ID

	code, _ = s.do(http.MethodGet, tripPath, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, code, "strangers cannot view the trip")

	code, env = s.do(http.MethodPost, tripPath+"/invitations", alice.Token, gin.H{"user_id": bob.User.ID})
	require.Equal(t, http.StatusCreated, code, env.Message)
	inv := decode[struct {
		ID string `json:"id"`
	}](t, env)

	code, _ = s.do(http.MethodPost, tripPath+"/invitations", alice.Token, gin.H{"user_id": bob.User.ID})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodGet, "/api/invitations", bob.Token, nil)
	require.Equal(t, http.StatusOK, code)
	pending := decode[[]struct {
		TripName    string `json:"trip_name"`
		InviterName string `json:"inviter_name"`
	}](t, env)
	require.Len(t, pending, 1)
	assert.Equal(t, "Lisbon", pending[0].TripName)
	assert.Equal(t, "alice", pending[0].InviterName)

	code, _ = s.do(http.MethodPost, "/api/invitations/"+inv.ID+"/accept", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, code, "only the invitee responds")
	code, _ = s.do(http.MethodPost, "/api/invitations/"+inv.ID+"/accept", bob.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodPost, tripPath+"/expenses", alice.Token, gin.H{
		"description": "Dinner", "amount": "100", "is_shared": true,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	expense := decode[struct {
		ID          string `json:"id"`
		Settlements []struct {
			ID        string `json:"id"`
			UserID    string `json:"user_id"`
			IsChecked bool   `json:"is_checked"`
		} `json:"settlements"`
	}](t, env)
	require.Len(t, expense.Settlements, 2)

	var bobSettlement string
	for _, st := range expense.Settlements {
		if st.UserID == bob.User.ID {
			bobSettlement = st.ID
			assert.False(t, st.IsChecked)
		}
	}
	require.NotEmpty(t, bobSettlement)

	code, env = s.do(http.MethodGet, "/api/settlements/"+bobSettlement+"/can-update", alice.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"can_update":false}`, string(env.Data))

	code, _ = s.do(http.MethodPost, "/api/settlements/"+bobSettlement+"/paid", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodPost, "/api/settlements/"+bobSettlement+"/paid", bob.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, tripPath+"/expenses/summary", bob.Token, nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[struct {
		Currency         string `json:"currency"`
		TotalExpenses    string `json:"total_expenses"`
		TotalPaid        string `json:"total_paid"`
		RemainingBalance string `json:"remaining_balance"`
		ByCurrency       []struct {
			Currency string `json:"currency"`
		} `json:"by_currency"`
	}](t, env)
	assert.Equal(t, "USD", summary.Currency)
	assert.Equal(t, "100", summary.TotalExpenses)
	assert.Equal(t, "100", summary.TotalPaid)
	assert.Equal(t, "0", summary.RemainingBalance)
	require.Len(t, summary.ByCurrency, 1)

	code, env = s.do(http.MethodGet, "/api/users/me/expenses", bob.Token, nil)
	require.Equal(t, http.StatusOK, code)
	mine := decode[[]struct {
		ID        string `json:"id"`
		PayerName string `json:"payer_name"`
	}](t, env)
	require.Len(t, mine, 1)
	assert.Equal(t, expense.ID, mine[0].ID)
	assert.Equal(t, "alice", mine[0].PayerName)

	code, env = s.do(http.MethodGet, tripPath+"/activity", bob.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, "[]", string(env.Data))

	code, _ = s.do(http.MethodDelete, "/api/expenses/"+expense.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, tripPath, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, tripPath, alice.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, tripPath, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBadPathParams(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	code, env := s.do(http.MethodGet, "/api/trips/not-a-uuid", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestHandleErrorHidesInternalErrors(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := New(Deps{Log: log})

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&services.Error{Kind: services.ErrNotFound, Msg: "trip not found"}, http.StatusNotFound, "trip not found"},
		{fmt.Errorf("wrapped: %w", &services.Error{Kind: services.ErrConflict, Msg: "dup"}), http.StatusConflict, "dup"},
		{&services.Error{Kind: services.ErrUnauthenticated, Msg: "bad login"}, http.StatusUnauthorized, "bad login"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.HandleError(c, tc.err)
		assert.Equal(t, tc.status, w.Code)
		assert.Contains(t, w.Body.String(), tc.msg)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCatalogRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	code, _ := s.do(http.MethodPost, "/api/destinations", alice.Token, gin.H{"name": "Azores"})
	assert.Equal(t, http.StatusForbidden, code)

	require.NoError(t, s.db.Exec("UPDATE users SET role = 'ADMIN' WHERE email = ?", "alice@example.com").Error)
	code, _ = s.do(http.MethodPost, "/api/destinations", alice.Token, gin.H{"name": "Azores"})
	assert.Equal(t, http.StatusCreated, code)

	code, env := s.do(http.MethodGet, "/api/destinations?search=azo", alice.Token, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Total        int64 `json:"total"`
		Destinations []struct {
			ID string `json:"id"`
		} `json:"destinations"`
	}](t, env)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Destinations, 1)
	destPath := "/api/destinations/" + list.Destinations[0].ID

	code, _ = s.do(http.MethodPut, destPath, alice.Token, gin.H{"budget_level": "CHEAP"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPut, destPath, alice.Token, gin.H{"country": "Portugal", "budget_level": "LUXURY"})
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/destinations/filters", alice.Token, nil)
	require.Equal(t, http.StatusOK, code)
	filters := decode[struct {
		Countries    []string `json:"countries"`
		BudgetLevels []string `json:"budget_levels"`
	}](t, env)
	assert.Equal(t, []string{"Portugal"}, filters.Countries)
	assert.Equal(t, []string{"LUXURY"}, filters.BudgetLevels)

	bob := s.register("bob")
	code, _ = s.do(http.MethodDelete, destPath, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, destPath, alice.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, destPath, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
