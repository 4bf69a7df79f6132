// Package realtime pushes trip events to websocket clients. With a redis
// client configured, events travel through redis pub/sub so every instance
// behind the load balancer delivers them to its own sockets.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tripplanner-backend/metrics"
)

const (
	relayChannel = "tripplanner:realtime"

	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	sendBuffer  = 64
	maxReadSize = 512
)

// Envelope is the frame written to clients and relayed over redis.
type Envelope struct {
	TripID  uuid.UUID       `json:"trip_id,omitempty"`
	UserID  uuid.UUID       `json:"user_id,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	tripID uuid.UUID
	userID uuid.UUID
	once   sync.Once
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*client]struct{}
	users map[uuid.UUID]map[*client]struct{}

	redis    *redis.Client
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewHub builds a hub. rdb may be nil for a single instance deployment.
// An origin of "*" or an empty list accepts every origin.
func NewHub(rdb *redis.Client, allowedOrigins []string, log logrus.FieldLogger) *Hub {
	h := &Hub{
		rooms: make(map[uuid.UUID]map[*client]struct{}),
		users: make(map[uuid.UUID]map[*client]struct{}),
		redis: rdb,
		log:   log.WithField("component", "realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run consumes the redis relay until ctx is cancelled. It returns at once
// when no redis client is configured.
func (h *Hub) Run(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}
	sub := h.redis.Subscribe(ctx, relayChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", relayChannel, err)
	}
	h.log.Info("realtime relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.WithError(err).Warn("dropping malformed relay message")
				continue
			}
			h.deliver(env, []byte(msg.Payload))
		}
	}
}

// Broadcast sends an event to every client watching the trip.
func (h *Hub) Broadcast(ctx context.Context, tripID uuid.UUID, event string, payload interface{}) error {
	return h.publish(ctx, Envelope{TripID: tripID, Event: event}, payload)
}

// SendToUser sends an event to every socket the user has open, whatever trip
// it is watching.
func (h *Hub) SendToUser(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error {
	return h.publish(ctx, Envelope{UserID: userID, Event: event}, payload)
}

func (h *Hub) publish(ctx context.Context, env Envelope, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", env.Event, err)
	}
	env.Payload = raw
	env.SentAt = time.Now().UTC()
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if h.redis != nil {
		if err := h.redis.Publish(ctx, relayChannel, frame).Err(); err != nil {
			return fmt.Errorf("relay %s: %w", env.Event, err)
		}
		return nil
	}
	h.deliver(env, frame)
	return nil
}

// deliver holds the read lock while sending so unregister, which closes
// send under the write lock, never races a send.
func (h *Hub) deliver(env Envelope, frame []byte) {
	var slow []*client
	offer := func(set map[*client]struct{}) {
		for c := range set {
			select {
			case c.send <- frame:
			default:
				slow = append(slow, c)
			}
		}
	}

	h.mu.RLock()
	if env.TripID != uuid.Nil {
		offer(h.rooms[env.TripID])
	}
	if env.UserID != uuid.Nil {
		offer(h.users[env.UserID])
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithFields(logrus.Fields{"trip_id": c.tripID, "user_id": c.userID}).
			Warn("client too slow, disconnecting")
		h.unregister(c)
	}
}

// Serve upgrades the request and blocks until the socket closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tripID, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		tripID: tripID,
		userID: userID,
	}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
	return nil
}

// RoomSize reports how many sockets are watching the trip.
func (h *Hub) RoomSize(tripID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tripID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if h.rooms[c.tripID] == nil {
		h.rooms[c.tripID] = make(map[*client]struct{})
	}
	h.rooms[c.tripID][c] = struct{}{}
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
	h.mu.Unlock()

	metrics.WebsocketClients.Inc()
	h.log.WithFields(logrus.Fields{"trip_id": c.tripID, "user_id": c.userID}).Debug("client connected")
}

func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		removeClient(h.rooms, c.tripID, c)
		removeClient(h.users, c.userID, c)
		close(c.send)
		h.mu.Unlock()
		metrics.WebsocketClients.Dec()
	})
}

func removeClient(index map[uuid.UUID]map[*client]struct{}, key uuid.UUID, c *client) {
	set := index[key]
	delete(set, c)
	if len(set) == 0 {
		delete(index, key)
	}
}

// readPump only services control frames; clients send chat through the REST API.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket read")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
