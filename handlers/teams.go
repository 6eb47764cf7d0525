// handlers/teams.go - Team and membership HTTP handlers
package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"taskhive/middleware"
	"taskhive/models"
)

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	val, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

// ================== TEAM CRUD ENDPOINTS ==================

// CreateTeam creates a new team
// POST /api/teams
func CreateTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Team name is required"})
	}

	team, err := teamService.CreateTeam(req.Name, req.Description, false, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"message": "Team created successfully",
		"team":    team,
	})
}

// GetTeam retrieves a team by ID
// GET /api/teams/:id
func GetTeam(c *fiber.Ctx) error {
	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	team, err := teamService.GetTeamByID(teamID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"team":    team,
	})
}

// GetUserTeams retrieves all teams for the authenticated user
// GET /api/teams
func GetUserTeams(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teams, err := teamService.GetUserTeams(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load teams"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"teams":   teams,
	})
}

// UpdateTeam updates team information
// PUT /api/teams/:id
func UpdateTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Team name is required"})
	}

	if err := teamService.UpdateTeam(userID, teamID, req.Name, req.Description); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Team updated successfully",
	})
}

// UpdateTeamStatus activates or deactivates a team
// PUT /api/teams/:id/status
func UpdateTeamStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	var req struct {
		Active *bool `json:"active"`
	}

	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if err := teamService.UpdateStatus(userID, teamID, *req.Active); err != nil {
		return serviceError(c, err)
	}

	message := "Team has been deactivated successfully"
	if *req.Active {
		message = "Team has been activated successfully"
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

// DeleteTeam deletes a team with all memberships and invitations
// DELETE /api/teams/:id
func DeleteTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	if err := teamService.DeleteTeam(userID, teamID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Team deleted successfully",
	})
}

// SwitchTeam changes the user's active team context
// POST /api/teams/switch
func SwitchTeam(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	var req struct {
		TeamID uint `json:"team_id"`
	}

	if err := c.BodyParser(&req); err != nil || req.TeamID == 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if err := teamService.SwitchTeam(userID, req.TeamID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Team switched successfully",
	})
}

// ================== MEMBERSHIP ENDPOINTS ==================

// GetTeamMembers lists all members of a team
// GET /api/teams/:id/members
func GetTeamMembers(c *fiber.Ctx) error {
	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	members, err := teamService.GetTeamMembers(teamID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load members"})
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"members":         members,
		"available_roles": models.AssignableRoles,
	})
}

// UpdateMemberRole changes a member's role
// PUT /api/teams/:id/members/:memberId/role
func UpdateMemberRole(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	memberID, err := paramUint(c, "memberId")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid member ID"})
	}

	var req struct {
		Role models.TeamRole `json:"role"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	if err := teamService.UpdateMemberRole(userID, teamID, memberID, req.Role); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Team member role updated successfully",
	})
}

// RemoveMember removes a member from a team
// DELETE /api/teams/:id/members/:memberId
func RemoveMember(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := paramUint(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	memberID, err := paramUint(c, "memberId")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid member ID"})
	}

	if err := teamService.RemoveMember(userID, teamID, memberID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Team member removed successfully",
	})
}

// SearchUsers finds users who can be invited to the team
// GET /api/users/search?team_id=N&query=...
func SearchUsers(c *fiber.Ctx) error {
	if _, err := middleware.GetUserID(c); err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": "Unauthorized"})
	}

	teamID, err := strconv.ParseUint(c.Query("team_id"), 10, 32)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid team ID"})
	}

	users, err := teamService.SearchInvitableUsers(uint(teamID), c.Query("query"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Search failed"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}
