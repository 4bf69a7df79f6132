package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewHub(nil, []string{"*"}, log)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tripID := uuid.MustParse(r.URL.Query().Get("trip"))
		userID := uuid.MustParse(r.URL.Query().Get("user"))
		_ = hub.Serve(w, r, tripID, userID)
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, tripID, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?trip=" + tripID.String() + "&user=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestBroadcastReachesTripRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	trip, other := uuid.New(), uuid.New()
	alice, bob := uuid.New(), uuid.New()

	inRoom := dial(t, srv, trip, alice)
	outside := dial(t, srv, other, bob)
	require.Eventually(t, func() bool { return hub.RoomSize(trip) == 1 && hub.RoomSize(other) == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(context.Background(), trip, "message.created", map[string]string{"content": "hi"}))

	env := readEnvelope(t, inRoom)
	assert.Equal(t, "message.created", env.Event)
	assert.Equal(t, trip, env.TripID)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "hi", payload["content"])

	require.NoError(t, outside.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := outside.ReadMessage()
	assert.Error(t, err, "clients in other rooms get nothing")
}

func TestSendToUserReachesEverySocket(t *testing.T) {
	hub, srv := newTestHub(t)
	alice := uuid.New()
	first := dial(t, srv, uuid.New(), alice)
	second := dial(t, srv, uuid.New(), alice)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.users[alice]) == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.SendToUser(context.Background(), alice, "notification.created", map[string]int{"n": 1}))
	assert.Equal(t, "notification.created", readEnvelope(t, first).Event)
	assert.Equal(t, "notification.created", readEnvelope(t, second).Event)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	trip := uuid.New()
	conn := dial(t, srv, trip, uuid.New())
	require.Eventually(t, func() bool { return hub.RoomSize(trip) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()
	assert.Eventually(t, func() bool { return hub.RoomSize(trip) == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcastWithoutListeners(t *testing.T) {
	hub, _ := newTestHub(t)
	assert.NoError(t, hub.Broadcast(context.Background(), uuid.New(), "trip.event", nil))
	assert.NoError(t, hub.Run(context.Background()), "no relay configured")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req), "non-browser clients send no origin")
	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
	assert.True(t, originChecker([]string{"*"})(req))
}
