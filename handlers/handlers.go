// handlers/handlers.go - Service wiring for HTTP handlers
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"taskhive/database"
	"taskhive/middleware"
	"taskhive/services"
)

var (
	teamService         *services.TeamService
	invitationService   *services.InvitationService
	notificationService *services.NotificationService
)

// InitHandlers wires the services behind the HTTP handlers.
func InitHandlers() {
	db := database.GetDB()
	if db == nil {
		panic("Database not initialized before InitHandlers")
	}

	notificationService = services.NewNotificationService(db)
	teamService = services.NewTeamService(db, notificationService)

	mailer := services.NewMailerFromEnv()
	inviteLimiter := middleware.NewAttemptLimiter(time.Hour)
	invitationService = services.NewInvitationService(db, teamService, notificationService, mailer, inviteLimiter)

	services.InitCleanupService(notificationService)
}

// serviceError maps a service error to its HTTP response.
func serviceError(c *fiber.Ctx, err error) error {
	var rateLimited *services.RateLimitError
	if errors.As(err, &rateLimited) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success":     false,
			"error":       rateLimited.Error(),
			"retry_after": rateLimited.RetryAfter,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrOwnerImmutable),
		errors.Is(err, services.ErrSelfRemovalForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrInvalidToken):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrDuplicateInvitation),
		errors.Is(err, services.ErrCapacityExceeded),
		errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrNotPending),
		errors.Is(err, services.ErrPersonalTeam):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrWrongRecipient):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrInvitationExpired):
		status = fiber.StatusGone
	case errors.Is(err, services.ErrReminderThrottled):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, services.ErrInvalidRole):
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
