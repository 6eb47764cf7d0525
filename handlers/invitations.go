// handlers/invitations.go - Invitation lifecycle HTTP handlers
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskhive/middleware"
	"taskhive/models"
)

// InviteMember invites an email address to join a team
// POST /api/teams/:id/invitations
func InviteMember(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	var req struct {
		Email string          `json:"email"`
		Role  models.TeamRole `json:"role"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if req.Email == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Email is required"})
	}

	invitation, err := invitationService.Invite(userID, teamID, req.Email, req.Role)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success":    true,
		"message":    "Invitation sent successfully",
		"invitation": invitation,
	})
}

// BulkInviteMembers invites a batch of email addresses
// POST /api/teams/:id/invitations/bulk
func BulkInviteMembers(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	var req struct {
		Emails []string        `json:"emails"`
		Role   models.TeamRole `json:"role"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if len(req.Emails) == 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "At least one email is required"})
	}

	result, err := invitationService.BulkInvite(userID, teamID, req.Emails, req.Role)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"success_count": result.SuccessCount,
		"errors":        result.Errors,
	})
}

// ListInvitations lists a team's invitations for the settings page
// GET /api/teams/:id/invitations
func ListInvitations(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	invitations, err := invitationService.ListInvitations(userID, teamID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"invitations": invitations,
	})
}

// AcceptInvitation accepts an invitation by token
// POST /api/invitations/:token/accept
func AcceptInvitation(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	team, err := invitationService.Accept(c.Params("token"), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "You have successfully joined " + team.Name + "!",
		"team":    team,
	})
}

// DeclineInvitation declines an invitation by token
// POST /api/invitations/:token/decline
func DeclineInvitation(c *fiber.Ctx) error {
	if err := invitationService.Decline(c.Params("token")); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Invitation declined",
	})
}

// CancelInvitation revokes a pending invitation
// DELETE /api/teams/:id/invitations/:invitationId
func CancelInvitation(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	invitationID, err := paramUint(c, "invitationId")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid invitation ID"})
	}

	if err := invitationService.Cancel(userID, teamID, invitationID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Invitation cancelled successfully",
	})
}

// RemindInvitation resends the invitation email
// POST /api/teams/:id/invitations/:invitationId/remind
func RemindInvitation(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	invitationID, err := paramUint(c, "invitationId")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid invitation ID"})
	}

	if err := invitationService.Remind(userID, teamID, invitationID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Reminder sent successfully",
	})
}
