package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tripplanner-backend/metrics"
	"tripplanner-backend/models"
)

// Pusher delivers a mobile push notification to one device token.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// Mailer sends one transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

type Email struct {
	ToAddress string
	ToName    string
	Subject   string
	HTML      string
	Text      string
}

// NotificationPayload is what a consumer wants to tell a user.
type NotificationPayload struct {
	Title             string
	Message           string
	RelatedEntityType string
	RelatedEntityID   *uuid.UUID
	Priority          models.NotificationPriority
	ActionURL         string
	// Email, when set, is sent in addition to the stored and pushed notification.
	Email *Email
}

// NotificationService persists notifications and fans them out over the
// realtime socket, FCM push and email. Only the database write can fail the call.
type NotificationService struct {
	db     *gorm.DB
	rooms  Broadcaster
	pusher Pusher
	mailer Mailer
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewNotificationService accepts nil pusher or mailer to disable that channel.
func NewNotificationService(db *gorm.DB, rooms Broadcaster, pusher Pusher, mailer Mailer, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{
		db:     db,
		rooms:  rooms,
		pusher: pusher,
		mailer: mailer,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, p NotificationPayload) (*models.Notification, error) {
	n := &models.Notification{
		UserID:            userID,
		Kind:              kind,
		Title:             p.Title,
		Message:           p.Message,
		RelatedEntityType: p.RelatedEntityType,
		RelatedEntityID:   p.RelatedEntityID,
		Priority:          p.Priority,
		ActionURL:         p.ActionURL,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		metrics.NotificationsSent.WithLabelValues("store", "error").Inc()
		return nil, fmt.Errorf("store notification: %w", err)
	}
	metrics.NotificationsSent.WithLabelValues("store", "ok").Inc()

	log := s.log.WithFields(logrus.Fields{"user_id": userID, "kind": kind})

	if s.rooms != nil {
		err := s.rooms.SendToUser(ctx, userID, RealtimeNotification, n.ToResponse())
		metrics.NotificationsSent.WithLabelValues("socket", metrics.Outcome(err)).Inc()
		if err != nil {
			log.WithError(err).Warn("realtime notification failed")
		}
	}

	if s.pusher == nil && (s.mailer == nil || p.Email == nil) {
		return n, nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "email", "name", "fcm_token").First(&user, "id = ?", userID).Error; err != nil {
		log.WithError(err).Warn("notification recipient lookup failed")
		return n, nil
	}

	if s.pusher != nil && user.FCMToken != "" {
		data := map[string]string{"kind": string(kind), "notification_id": n.ID.String()}
		if n.RelatedEntityID != nil {
			data["entity_type"] = n.RelatedEntityType
			data["entity_id"] = n.RelatedEntityID.String()
		}
		err := s.pusher.Push(ctx, user.FCMToken, n.Title, n.Message, data)
		metrics.NotificationsSent.WithLabelValues("push", metrics.Outcome(err)).Inc()
		if err != nil {
			log.WithError(err).Warn("push notification failed")
		}
	}

	if s.mailer != nil && p.Email != nil && user.Email != "" {
		msg := *p.Email
		msg.ToAddress = user.Email
		msg.ToName = user.Name
		err := s.mailer.Send(ctx, msg)
		metrics.NotificationsSent.WithLabelValues("email", metrics.Outcome(err)).Inc()
		if err != nil {
			log.WithError(err).Warn("notification email failed")
		}
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, offset, limit int) ([]models.Notification, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	var out []models.Notification
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return out, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	n, err := s.owned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()}).Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, notificationID, userID uuid.UUID) error {
	n, err := s.owned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Notification{}, "id = ?", n.ID).Error
}

func (s *NotificationService) owned(ctx context.Context, notificationID, userID uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("notification not found")
		}
		return nil, fmt.Errorf("load notification: %w", err)
	}
	if n.UserID != userID {
		return nil, forbidden("this notification belongs to another user")
	}
	return &n, nil
}
