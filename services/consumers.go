package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

// EventConsumers turns domain events into chat messages, notifications and
// activity feed entries.
type EventConsumers struct {
	chat     *ChatService
	notify   *NotificationService
	activity *ActivityService
	appName  string
	appURL   string
}

func NewEventConsumers(chat *ChatService, notify *NotificationService, activity *ActivityService, appName, appURL string) *EventConsumers {
	return &EventConsumers{
		chat:     chat,
		notify:   notify,
		activity: activity,
		appName:  appName,
		appURL:   strings.TrimRight(appURL, "/"),
	}
}

func (c *EventConsumers) Register(d *Dispatcher) {
	d.Subscribe("chat", c.relayToChat)
	d.Subscribe("notifications", c.relayToNotifications)
	d.Subscribe("activity", c.recordActivity)
}

func (c *EventConsumers) relayToChat(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventTripCreated:
		return c.chat.PostSystemMessage(ctx, ev.TripID, fmt.Sprintf("Welcome to %s! Start planning your adventure together.", ev.TripName))
	case EventInvitationSent, EventInvitationAccepted, EventMemberRemoved:
		return c.chat.PostSystemMessage(ctx, ev.TripID, describeEvent(ev))
	case EventTripDeleted, EventPaymentReminder, EventInvitationDeclined:
		return nil
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		c.chat.Broadcast(ctx, ev.TripID, RealtimeExpenseChanged, realtimePayload(ev))
	case EventSettlementUpdated:
		c.chat.Broadcast(ctx, ev.TripID, RealtimeSettlementChange, realtimePayload(ev))
	default:
		c.chat.Broadcast(ctx, ev.TripID, RealtimeTripEvent, realtimePayload(ev))
	}
	return nil
}

func (c *EventConsumers) relayToNotifications(ctx context.Context, ev Event) error {
	tripURL := c.appURL + "/trips/" + ev.TripID.String()
	ref := ev.ReferenceID

	var errs []error
	send := func(userID uuid.UUID, kind models.NotificationKind, p NotificationPayload) {
		if _, err := c.notify.Notify(ctx, userID, kind, p); err != nil {
			errs = append(errs, err)
		}
	}

	switch ev.Kind {
	case EventInvitationSent:
		actionURL := c.appURL + "/invitations/" + ref.String()
		html, err := renderEmail(invitationEmail, invitationEmailData{
			AppName:     c.appName,
			InviteeName: ev.SubjectName,
			InviterName: ev.ActorName,
			TripName:    ev.TripName,
			Message:     ev.Summary,
			ActionURL:   actionURL,
		})
		var email *Email
		if err == nil {
			email = &Email{
				Subject: fmt.Sprintf("%s invited you to join \"%s\" on %s", ev.ActorName, ev.TripName, c.appName),
				HTML:    html,
				Text:    fmt.Sprintf("%s invited you to join %s. Open %s to respond.", ev.ActorName, ev.TripName, actionURL),
			}
		} else {
			errs = append(errs, err)
		}
		send(ev.SubjectID, models.NotifyTripInvitation, NotificationPayload{
			Title:             "Trip invitation",
			Message:           fmt.Sprintf("%s invited you to join %s", ev.ActorName, ev.TripName),
			RelatedEntityType: "INVITATION",
			RelatedEntityID:   &ref,
			Priority:          models.PriorityHigh,
			ActionURL:         actionURL,
			Email:             email,
		})

	case EventInvitationAccepted, EventInvitationDeclined:
		verb := "accepted"
		if ev.Kind == EventInvitationDeclined {
			verb = "declined"
		}
		for _, id := range ev.Recipients {
			send(id, models.NotifyGeneral, NotificationPayload{
				Title:             "Invitation " + verb,
				Message:           fmt.Sprintf("%s %s your invitation to %s", ev.ActorName, verb, ev.TripName),
				RelatedEntityType: "TRIP",
				RelatedEntityID:   &ev.TripID,
				ActionURL:         tripURL,
			})
		}

	case EventTripUpdated, EventTripDeleted, EventMemberRemoved, EventMemberRoleChanged:
		if ev.Kind == EventMemberRemoved && ev.ActorID == ev.SubjectID {
			break
		}
		for _, id := range ev.Recipients {
			send(id, models.NotifyTripUpdate, NotificationPayload{
				Title:             ev.TripName,
				Message:           describeEvent(ev),
				RelatedEntityType: "TRIP",
				RelatedEntityID:   &ev.TripID,
				ActionURL:         tripURL,
			})
		}

	case EventExpenseCreated, EventExpenseUpdated:
		for _, id := range ev.Recipients {
			owed, ok := ev.Amounts[id]
			if !ok || owed.IsZero() {
				continue
			}
			verb := "added"
			if ev.Kind == EventExpenseUpdated {
				verb = "updated"
			}
			send(id, models.NotifyPaymentReminder, NotificationPayload{
				Title:             fmt.Sprintf("%s %s an expense", ev.ActorName, verb),
				Message:           fmt.Sprintf("You owe %s for \"%s\" in %s", utils.FormatMoney(owed, ev.Currency), ev.Summary, ev.TripName),
				RelatedEntityType: "EXPENSE",
				RelatedEntityID:   &ref,
				ActionURL:         tripURL + "/expenses",
			})
		}

	case EventSettlementUpdated:
		for _, id := range ev.Recipients {
			send(id, models.NotifyGeneral, NotificationPayload{
				Title:             "Payment recorded",
				Message:           describeEvent(ev),
				RelatedEntityType: "SETTLEMENT",
				RelatedEntityID:   &ref,
				ActionURL:         tripURL + "/expenses",
			})
		}

	case EventPaymentReminder:
		outstanding := utils.FormatMoney(ev.Amounts[ev.SubjectID], ev.Currency)
		actionURL := tripURL + "/expenses"
		html, err := renderEmail(paymentReminderEmail, reminderEmailData{
			AppName:     c.appName,
			DebtorName:  ev.SubjectName,
			Description: ev.Summary,
			TripName:    ev.TripName,
			Outstanding: outstanding,
			ActionURL:   actionURL,
		})
		var email *Email
		if err == nil {
			email = &Email{
				Subject: fmt.Sprintf("Reminder: you owe %s in %s", outstanding, ev.TripName),
				HTML:    html,
				Text:    fmt.Sprintf("You still owe %s for %s in %s.", outstanding, ev.Summary, ev.TripName),
			}
		} else {
			errs = append(errs, err)
		}
		send(ev.SubjectID, models.NotifyPaymentReminder, NotificationPayload{
			Title:             "Payment reminder",
			Message:           fmt.Sprintf("You still owe %s for \"%s\" in %s", outstanding, ev.Summary, ev.TripName),
			RelatedEntityType: "SETTLEMENT",
			RelatedEntityID:   &ref,
			ActionURL:         actionURL,
			Email:             email,
		})
	}
	return errors.Join(errs...)
}

func (c *EventConsumers) recordActivity(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventTripDeleted, EventPaymentReminder:
		return nil
	}
	return c.activity.Record(ctx, &models.Activity{
		TripID:      ev.TripID,
		UserID:      ev.ActorID,
		Type:        string(ev.Kind),
		ReferenceID: ev.ReferenceID,
		Description: describeEvent(ev),
	})
}

func describeEvent(ev Event) string {
	actor := nameOr(ev.ActorName, "Someone")
	subject := nameOr(ev.SubjectName, "a member")
	switch ev.Kind {
	case EventTripCreated:
		return fmt.Sprintf("%s created %s", actor, ev.TripName)
	case EventTripUpdated:
		return fmt.Sprintf("%s updated the trip details", actor)
	case EventTripDeleted:
		return fmt.Sprintf("%s deleted %s", actor, ev.TripName)
	case EventInvitationSent:
		return fmt.Sprintf("%s invited %s to join the trip", actor, subject)
	case EventInvitationAccepted:
		return fmt.Sprintf("%s joined the trip!", actor)
	case EventInvitationDeclined:
		return fmt.Sprintf("%s declined the invitation", actor)
	case EventMemberRemoved:
		if ev.ActorID == ev.SubjectID {
			return fmt.Sprintf("%s left the trip", subject)
		}
		return fmt.Sprintf("%s removed %s from the trip", actor, subject)
	case EventMemberRoleChanged:
		return fmt.Sprintf("%s made %s %s", actor, subject, strings.ToLower(ev.Summary))
	case EventExpenseCreated:
		return fmt.Sprintf("%s added \"%s\"", actor, ev.Summary)
	case EventExpenseUpdated:
		return fmt.Sprintf("%s updated \"%s\"", actor, ev.Summary)
	case EventExpenseDeleted:
		return fmt.Sprintf("%s deleted \"%s\"", actor, ev.Summary)
	case EventSettlementUpdated:
		return fmt.Sprintf("%s paid %s for \"%s\"", actor, utils.FormatMoney(ev.Amounts[ev.ActorID], ev.Currency), ev.Summary)
	}
	return string(ev.Kind)
}

func realtimePayload(ev Event) map[string]interface{} {
	return map[string]interface{}{
		"kind":         ev.Kind,
		"trip_id":      ev.TripID,
		"actor_id":     ev.ActorID,
		"reference_id": ev.ReferenceID,
		"description":  describeEvent(ev),
		"occurred_at":  ev.OccurredAt,
	}
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
