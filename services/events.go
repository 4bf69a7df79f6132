package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tripplanner-backend/metrics"
)

type EventKind string

const (
	EventTripCreated        EventKind = "trip.created"
	EventTripUpdated        EventKind = "trip.updated"
	EventTripDeleted        EventKind = "trip.deleted"
	EventInvitationSent     EventKind = "invitation.sent"
	EventInvitationAccepted EventKind = "invitation.accepted"
	EventInvitationDeclined EventKind = "invitation.declined"
	EventMemberRemoved      EventKind = "member.removed"
	EventMemberRoleChanged  EventKind = "member.role_changed"
	EventExpenseCreated     EventKind = "expense.created"
	EventExpenseUpdated     EventKind = "expense.updated"
	EventExpenseDeleted     EventKind = "expense.deleted"
	EventSettlementUpdated  EventKind = "settlement.updated"
	EventPaymentReminder    EventKind = "payment.reminder"
)

// Event describes a committed domain change. Consumers must not assume more
// than the fields set for its Kind.
type Event struct {
	Kind        EventKind
	TripID      uuid.UUID
	TripName    string
	ActorID     uuid.UUID
	ActorName   string
	SubjectID   uuid.UUID // invitee, removed member, settlement debtor
	SubjectName string
	ReferenceID uuid.UUID // invitation, expense or settlement id
	Summary     string
	Currency    string
	// Recipients are the users a notification consumer should address.
	Recipients []uuid.UUID
	// Amounts holds per-user money values, e.g. each debtor's share of a new expense.
	Amounts    map[uuid.UUID]decimal.Decimal
	OccurredAt time.Time
}

// Publisher is the side-effect boundary domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type EventHandler func(ctx context.Context, ev Event) error

type subscription struct {
	name    string
	handler EventHandler
	kinds   map[EventKind]bool // nil means every kind
}

// Dispatcher fans events out to subscribers. Handler failures are logged and
// counted, never returned to the publisher.
type Dispatcher struct {
	mu    sync.RWMutex
	subs  []subscription
	async bool
	log   logrus.FieldLogger
	wg    sync.WaitGroup
}

func NewDispatcher(log logrus.FieldLogger, async bool) *Dispatcher {
	return &Dispatcher{log: log, async: async}
}

// Subscribe registers h for the given kinds, or for all kinds when none are given.
func (d *Dispatcher) Subscribe(name string, h EventHandler, kinds ...EventKind) {
	sub := subscription{name: name, handler: h}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}
	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()
}

func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Kind)).Inc()

	d.mu.RLock()
	subs := make([]subscription, 0, len(d.subs))
	for _, s := range d.subs {
		if s.kinds == nil || s.kinds[ev.Kind] {
			subs = append(subs, s)
		}
	}
	d.mu.RUnlock()

	if !d.async {
		for _, s := range subs {
			d.run(ctx, s, ev)
		}
		return
	}

	// Handlers outlive the request that triggered them.
	detached := context.WithoutCancel(ctx)
	for _, s := range subs {
		d.wg.Add(1)
		go func(s subscription) {
			defer d.wg.Done()
			d.run(detached, s, ev)
		}(s)
	}
}

// Wait blocks until in-flight asynchronous handlers finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(s, ev, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.handler(ctx, ev); err != nil {
		d.fail(s, ev, err)
	}
}

func (d *Dispatcher) fail(s subscription, ev Event, err error) {
	metrics.EventHandlerFailures.WithLabelValues(string(ev.Kind), s.name).Inc()
	d.log.WithFields(logrus.Fields{
		"event":   ev.Kind,
		"handler": s.name,
		"trip_id": ev.TripID,
	}).WithError(err).Warn("event handler failed")
}
