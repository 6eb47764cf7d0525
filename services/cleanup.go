package services

import (
	"time"

	"taskhive/logger"
)

// notificationRetention is how long read notifications stay in the inbox
// before the cleanup pass removes them.
const notificationRetention = 30 * 24 * time.Hour

// CleanupService periodically purges read notifications past the retention
// window. Invitation expiry is NOT swept here: expiry is a lazy state
// applied when an invitation is touched.
type CleanupService struct {
	notifier *NotificationService
	log      *logger.Logger
	stop     chan struct{}
}

var cleanupService *CleanupService

// InitCleanupService initializes and starts the singleton cleanup service.
func InitCleanupService(notifier *NotificationService) {
	cleanupService = &CleanupService{
		notifier: notifier,
		log:      logger.NewLogger("cleanup-service"),
		stop:     make(chan struct{}),
	}
	go cleanupService.run()
}

// GetCleanupService returns the initialized cleanup service.
func GetCleanupService() *CleanupService {
	return cleanupService
}

func (s *CleanupService) run() {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.PurgeReadNotifications()
		case <-s.stop:
			return
		}
	}
}

// PurgeReadNotifications removes read notifications older than the
// retention window.
func (s *CleanupService) PurgeReadNotifications() {
	purged, err := s.notifier.PurgeRead(notificationRetention)
	if err != nil {
		s.log.Error("notification purge failed", "error", err)
		return
	}
	if purged > 0 {
		s.log.Info("purged read notifications", "count", purged)
	}
}

// Stop stops the cleanup worker.
func (s *CleanupService) Stop() {
	close(s.stop)
}
