// Package jobs runs the periodic maintenance work: expiring stale
// invitations and reminding debtors about unpaid shares.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tripplanner-backend/metrics"
	"tripplanner-backend/services"
)

const jobTimeout = 5 * time.Minute

type InvitationExpirer interface {
	ExpireInvitations(ctx context.Context) (int64, error)
}

type OutstandingLister interface {
	ListOutstandingSettlements(ctx context.Context) ([]services.OutstandingSettlement, error)
}

type Scheduler struct {
	cron        *cron.Cron
	invitations InvitationExpirer
	ledger      OutstandingLister
	events      services.Publisher
	log         logrus.FieldLogger
}

func NewScheduler(invitations InvitationExpirer, ledger OutstandingLister, events services.Publisher, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		invitations: invitations,
		ledger:      ledger,
		events:      events,
		log:         log.WithField("component", "jobs"),
	}
}

// Schedule registers both jobs. An empty spec disables that job.
func (s *Scheduler) Schedule(invitationSpec, reminderSpec string) error {
	if invitationSpec != "" {
		if _, err := s.cron.AddFunc(invitationSpec, s.wrap("expire_invitations", s.ExpireInvitations)); err != nil {
			return fmt.Errorf("schedule invitation sweep %q: %w", invitationSpec, err)
		}
	}
	if reminderSpec != "" {
		if _, err := s.cron.AddFunc(reminderSpec, s.wrap("payment_reminders", s.SendPaymentReminders)); err != nil {
			return fmt.Errorf("schedule payment reminders %q: %w", reminderSpec, err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
}

// Stop prevents new runs and waits up to ctx for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		err := run(ctx)
		metrics.JobRuns.WithLabelValues(name, metrics.Outcome(err)).Inc()
		entry := s.log.WithFields(logrus.Fields{"job": name, "elapsed": time.Since(start).String()})
		if err != nil {
			entry.WithError(err).Error("job failed")
			return
		}
		entry.Debug("job finished")
	}
}

func (s *Scheduler) ExpireInvitations(ctx context.Context) error {
	n, err := s.invitations.ExpireInvitations(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.WithField("count", n).Info("expired stale invitations")
	}
	return nil
}

// SendPaymentReminders publishes one reminder per outstanding settlement.
func (s *Scheduler) SendPaymentReminders(ctx context.Context) error {
	outstanding, err := s.ledger.ListOutstandingSettlements(ctx)
	if err != nil {
		return err
	}
	for _, o := range outstanding {
		st := o.Settlement
		s.events.Publish(ctx, services.Event{
			Kind:        services.EventPaymentReminder,
			TripID:      o.Expense.TripID,
			TripName:    o.TripName,
			ActorID:     o.Expense.PaidByUserID,
			SubjectID:   st.UserID,
			SubjectName: o.DebtorName,
			ReferenceID: st.ID,
			Summary:     o.Expense.Description,
			Currency:    o.Expense.Currency,
			Amounts:     map[uuid.UUID]decimal.Decimal{st.UserID: st.Outstanding()},
		})
	}
	if len(outstanding) > 0 {
		s.log.WithField("count", len(outstanding)).Info("payment reminders queued")
	}
	return nil
}
