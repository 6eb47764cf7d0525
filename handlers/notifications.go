// handlers/notifications.go - In-app notification inbox + live stream
package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"taskhive/middleware"
)

// GetNotifications lists the user's notifications, newest first
// GET /api/notifications?unread=true
func GetNotifications(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := notificationService.ListForUser(userID, unreadOnly)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load notifications"})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"notifications": notifications,
	})
}

// MarkNotificationRead marks one notification as read
// PUT /api/notifications/:id/read
func MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	if err := notificationService.MarkRead(userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAllNotificationsRead marks every notification as read
// PUT /api/notifications/read-all
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	if err := notificationService.MarkAllRead(userID); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to update notifications"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteNotification removes one notification from the inbox
// DELETE /api/notifications/:id
func DeleteNotification(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	if err := notificationService.Delete(userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// NotificationStream pushes new notifications over a websocket so the
// inbox updates without polling.
// GET /ws/notifications (token via query parameter)
func NotificationStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDRaw := conn.Locals("userId")
		var userID uint
		switch v := userIDRaw.(type) {
		case float64:
			userID = uint(v)
		case uint:
			userID = v
		default:
			conn.Close()
			return
		}

		ch := notificationService.Subscribe(userID)
		defer notificationService.Unsubscribe(userID, ch)

		// Reader goroutine: drain client frames and detect disconnect.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case notification := <-ch:
				payload, err := json.Marshal(notification)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
}
