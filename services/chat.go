package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tripplanner-backend/models"
)

// Broadcaster fans realtime events out to connected clients. Delivery is best effort.
type Broadcaster interface {
	Broadcast(ctx context.Context, tripID uuid.UUID, event string, payload interface{}) error
	SendToUser(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error
}

const maxMessageLength = 4000

// Realtime event names.
const (
	RealtimeMessageCreated   = "message.created"
	RealtimeMessageUpdated   = "message.updated"
	RealtimeMessageDeleted   = "message.deleted"
	RealtimeNotification     = "notification.created"
	RealtimeTripEvent        = "trip.event"
	RealtimeExpenseChanged   = "expense.changed"
	RealtimeSettlementChange = "settlement.updated"
)

type ChatService struct {
	db    *gorm.DB
	rooms Broadcaster
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewChatService(db *gorm.DB, rooms Broadcaster, log logrus.FieldLogger) *ChatService {
	return &ChatService{db: db, rooms: rooms, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type SendMessageParams struct {
	Type          models.MessageType
	Content       string
	AttachmentURL string
	ReplyToID     *uuid.UUID
}

// ListMessages returns up to limit messages older than before (or the newest
// when before is zero), oldest first.
func (s *ChatService) ListMessages(ctx context.Context, tripID, requesterID uuid.UUID, limit int, before time.Time) ([]models.TripMessage, map[uuid.UUID]*models.User, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return nil, nil, err
	}
	if err := requireMember(db, tripID, requesterID); err != nil {
		return nil, nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := db.Where("trip_id = ?", tripID)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}
	var messages []models.TripMessage
	if err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	var senders []uuid.UUID
	for _, m := range messages {
		if m.SenderUserID != nil {
			senders = append(senders, *m.SenderUserID)
		}
	}
	users, err := usersByID(db, senders)
	if err != nil {
		return nil, nil, err
	}
	return messages, users, nil
}

func (s *ChatService) SendMessage(ctx context.Context, tripID, senderID uuid.UUID, p SendMessageParams) (*models.TripMessage, error) {
	if p.Type == "" {
		p.Type = models.MessageText
	}
	switch p.Type {
	case models.MessageText, models.MessageImage, models.MessageLocation, models.MessagePoll:
	default:
		return nil, invalid("unsupported message type %q", p.Type)
	}
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" && p.AttachmentURL == "" {
		return nil, invalid("message content is required")
	}
	if len(p.Content) > maxMessageLength {
		return nil, invalid("message is longer than %d characters", maxMessageLength)
	}

	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return nil, err
	}
	if err := requireMember(db, tripID, senderID); err != nil {
		return nil, err
	}
	if p.ReplyToID != nil {
		if err := exists(db, &models.TripMessage{}, "id = ? AND trip_id = ?", *p.ReplyToID, tripID); err != nil {
			return nil, err
		}
	}

	msg := &models.TripMessage{
		TripID:        tripID,
		SenderUserID:  &senderID,
		Type:          p.Type,
		Content:       p.Content,
		AttachmentURL: p.AttachmentURL,
		ReplyToID:     p.ReplyToID,
	}
	if err := db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.broadcast(ctx, tripID, RealtimeMessageCreated, s.describe(ctx, msg))
	return msg, nil
}

func (s *ChatService) EditMessage(ctx context.Context, messageID, userID uuid.UUID, content string) (*models.TripMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, invalid("message is longer than %d characters", maxMessageLength)
	}
	msg, err := s.ownMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.TripMessage{}).Where("id = ?", msg.ID).
		Updates(map[string]interface{}{"content": content, "is_edited": true, "edited_at": now}).Error; err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &now
	s.broadcast(ctx, msg.TripID, RealtimeMessageUpdated, s.describe(ctx, msg))
	return msg, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, messageID, userID uuid.UUID) error {
	msg, err := s.ownMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.TripMessage{}, "id = ?", msg.ID).Error; err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	s.broadcast(ctx, msg.TripID, RealtimeMessageDeleted, map[string]interface{}{"id": msg.ID, "trip_id": msg.TripID})
	return nil
}

// PostSystemMessage stores a SYSTEM message on the trip and broadcasts it.
func (s *ChatService) PostSystemMessage(ctx context.Context, tripID uuid.UUID, text string) error {
	msg := &models.TripMessage{
		TripID:  tripID,
		Type:    models.MessageSystem,
		Content: text,
	}
	created, err := createForTrip(s.db.WithContext(ctx), tripID, msg)
	if err != nil {
		return fmt.Errorf("create system message: %w", err)
	}
	if !created {
		s.log.WithField("trip_id", tripID).Debug("trip gone, system message dropped")
		return nil
	}
	s.broadcast(ctx, tripID, RealtimeMessageCreated, msg.ToResponse())
	return nil
}

// Broadcast relays an arbitrary trip event to the trip room.
func (s *ChatService) Broadcast(ctx context.Context, tripID uuid.UUID, event string, payload interface{}) {
	s.broadcast(ctx, tripID, event, payload)
}

func (s *ChatService) ownMessage(ctx context.Context, messageID, userID uuid.UUID) (*models.TripMessage, error) {
	var msg models.TripMessage
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("message not found")
		}
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg.SenderUserID == nil || *msg.SenderUserID != userID {
		return nil, forbidden("you can only change your own messages")
	}
	return &msg, nil
}

func (s *ChatService) describe(ctx context.Context, msg *models.TripMessage) models.MessageResponse {
	r := msg.ToResponse()
	if msg.SenderUserID != nil {
		r.SenderName = userName(ctx, s.db, *msg.SenderUserID)
	}
	return r
}

func (s *ChatService) broadcast(ctx context.Context, tripID uuid.UUID, event string, payload interface{}) {
	if s.rooms == nil {
		return
	}
	if err := s.rooms.Broadcast(ctx, tripID, event, payload); err != nil {
		s.log.WithFields(logrus.Fields{"trip_id": tripID, "event": event}).WithError(err).Warn("broadcast failed")
	}
}
