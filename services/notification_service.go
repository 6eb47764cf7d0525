package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhive/logger"
	"taskhive/models"
)

// NotificationService persists in-app notifications and pushes them to any
// live websocket subscribers. Dispatch is best-effort relative to the state
// transition that produced the notification: failures are logged, never
// returned to the lifecycle operation.
type NotificationService struct {
	db  *gorm.DB
	log *logger.Logger

	mu          sync.RWMutex
	subscribers map[uint][]chan models.Notification
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		db:          db,
		log:         logger.NewLogger("notification-service"),
		subscribers: make(map[uint][]chan models.Notification),
	}
}

// Notify stores a notification for the user and pushes it to live
// subscribers. invitationToken is empty for everything except invitation
// notifications, where it lets acceptance purge the stale inbox item.
func (s *NotificationService) Notify(userID uint, notificationType string, data map[string]interface{}, invitationToken string) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Error("failed to encode notification payload", "type", notificationType, "error", err)
		return
	}

	notification := models.Notification{
		ID:              uuid.New().String(),
		UserID:          userID,
		Type:            notificationType,
		Data:            string(payload),
		InvitationToken: invitationToken,
		CreatedAt:       time.Now(),
	}

	if err := s.db.Create(&notification).Error; err != nil {
		s.log.Error("failed to store notification", "type", notificationType, "user_id", userID, "error", err)
		return
	}

	s.push(notification)
}

// push delivers to websocket subscribers without blocking; a slow consumer
// drops the live update and catches up from the inbox.
func (s *NotificationService) push(notification models.Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers[notification.UserID] {
		select {
		case ch <- notification:
		default:
		}
	}
}

// Subscribe registers a live channel for the user's notifications.
func (s *NotificationService) Subscribe(userID uint) chan models.Notification {
	ch := make(chan models.Notification, 16)
	s.mu.Lock()
	s.subscribers[userID] = append(s.subscribers[userID], ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe.
func (s *NotificationService) Unsubscribe(userID uint, ch chan models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := s.subscribers[userID]
	for i, c := range channels {
		if c == ch {
			s.subscribers[userID] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(s.subscribers[userID]) == 0 {
		delete(s.subscribers, userID)
	}
}

// DeleteInvitationNotifications removes the actionable inbox items tied to
// an invitation token, so the UI never shows an accept/decline prompt for
// an invitation that is no longer pending.
func (s *NotificationService) DeleteInvitationNotifications(token string) {
	if token == "" {
		return
	}
	if err := s.db.Where("invitation_token = ?", token).
		Delete(&models.Notification{}).Error; err != nil {
		s.log.Error("failed to purge invitation notifications", "error", err)
	}
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(userID uint, unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(userID uint, notificationID string) error {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	return nil
}

// MarkAllRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now()).Error
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(userID uint, notificationID string) error {
	res := s.db.Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// PurgeRead deletes read notifications older than the retention window.
// Called by the cleanup service.
func (s *NotificationService) PurgeRead(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
