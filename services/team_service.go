// services/team_service.go - Team and membership business logic
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskhive/logger"
	"taskhive/models"
)

type TeamService struct {
	db       *gorm.DB
	notifier *NotificationService
	log      *logger.Logger
}

func NewTeamService(db *gorm.DB, notifier *NotificationService) *TeamService {
	return &TeamService{
		db:       db,
		notifier: notifier,
		log:      logger.NewLogger("team-service"),
	}
}

// ================== TEAM CRUD OPERATIONS ==================

// CreateTeam creates a team and its owner membership row in one
// transaction. The owner is always a member with the owner role.
func (s *TeamService) CreateTeam(name, description string, personal bool, ownerID uint) (*models.Team, error) {
	if name == "" {
		return nil, errors.New("team name is required")
	}

	team := &models.Team{
		Name:         name,
		Description:  description,
		OwnerID:      ownerID,
		PersonalTeam: personal,
		Active:       true,
		CreatedAt:    time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		member := &models.TeamMember{
			TeamID:   team.ID,
			UserID:   ownerID,
			Role:     models.TeamRoleOwner,
			JoinedAt: time.Now(),
		}

		return tx.Create(member).Error
	})

	if err != nil {
		return nil, err
	}

	return team, nil
}

// CreatePersonalTeam creates the user's personal team and makes it their
// current team context. Called once at registration.
func (s *TeamService) CreatePersonalTeam(user *models.User) (*models.Team, error) {
	team, err := s.CreateTeam(fmt.Sprintf("%s's Team", user.Name), "", true, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("current_team_id", team.ID).Error; err != nil {
		return nil, err
	}
	user.CurrentTeamID = &team.ID

	return team, nil
}

// GetTeamByID retrieves a team with members preloaded
func (s *TeamService) GetTeamByID(teamID uint) (*models.Team, error) {
	var team models.Team
	err := s.db.Where("id = ?", teamID).
		Preload("Owner").
		Preload("Members").
		Preload("Members.User").
		First(&team).Error

	if err != nil {
		return nil, ErrTeamNotFound
	}

	return &team, nil
}

// GetUserTeams retrieves all teams a user is a member of
func (s *TeamService) GetUserTeams(userID uint) ([]models.Team, error) {
	var teams []models.Team

	err := s.db.Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ? AND teams.active = ?", userID, true).
		Preload("Owner").
		Preload("Members").
		Preload("Members.User").
		Find(&teams).Error

	return teams, err
}

// UpdateTeam updates team name and description (owner/admin only)
func (s *TeamService) UpdateTeam(actorID, teamID uint, name, description string) error {
	team, err := s.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !s.CanManageTeam(actorID, team) {
		return ErrForbidden
	}

	updates := map[string]interface{}{
		"name":        name,
		"description": description,
		"updated_at":  time.Now(),
	}

	return s.db.Model(&models.Team{}).Where("id = ?", teamID).Updates(updates).Error
}

// UpdateStatus activates or deactivates a team. Personal teams cannot be
// deactivated.
func (s *TeamService) UpdateStatus(actorID, teamID uint, active bool) error {
	team, err := s.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !s.CanManageTeam(actorID, team) {
		return ErrForbidden
	}

	if team.PersonalTeam && !active {
		return ErrPersonalTeam
	}

	return s.db.Model(&models.Team{}).Where("id = ?", teamID).
		Update("active", active).Error
}

// DeleteTeam deletes a team with its memberships and invitations as a
// single unit of work; nothing is committed if any step fails. Owner only,
// personal teams cannot be deleted. Members are notified after commit.
func (s *TeamService) DeleteTeam(actorID, teamID uint) error {
	team, err := s.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !team.IsOwnedBy(actorID) {
		return ErrForbidden
	}

	if team.PersonalTeam {
		return ErrPersonalTeam
	}

	// Snapshot membership before deletion for post-commit notifications.
	var members []models.TeamMember
	if err := s.db.Where("team_id = ?", teamID).Find(&members).Error; err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Any member whose active context points at this team falls back
		// to their personal team.
		for _, member := range members {
			if err := s.reassignCurrentTeam(tx, member.UserID, teamID); err != nil {
				return err
			}
		}

		if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}

		if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamInvitation{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Team{}, teamID).Error
	})

	if err != nil {
		s.log.Error("team deletion failed", "team_id", teamID, "error", err)
		return err
	}

	for _, member := range members {
		if member.UserID == team.OwnerID {
			continue
		}
		s.notifier.Notify(member.UserID, models.NotificationTeamDeleted, map[string]interface{}{
			"message":   fmt.Sprintf("The team %s has been deleted.", team.Name),
			"team_name": team.Name,
		}, "")
	}

	return nil
}

// ================== MEMBERSHIP OPERATIONS ==================

// UpdateMemberRole changes a member's role. Only the owner or an admin may
// do this, the owner's own row can never be altered, and only the admin and
// member roles are assignable.
func (s *TeamService) UpdateMemberRole(actorID, teamID, memberID uint, role models.TeamRole) error {
	team, err := s.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !s.CanManageTeam(actorID, team) {
		return ErrForbidden
	}

	if !role.IsAssignable() {
		return ErrInvalidRole
	}

	var member models.TeamMember
	if err := s.db.Where("id = ? AND team_id = ?", memberID, teamID).First(&member).Error; err != nil {
		return ErrMemberNotFound
	}

	if member.UserID == team.OwnerID {
		return ErrOwnerImmutable
	}

	return s.db.Model(&models.TeamMember{}).
		Where("id = ? AND team_id = ?", memberID, teamID).
		Update("role", role).Error
}

// RemoveMember removes a member from the team. The owner's row is
// immutable, and a non-owner cannot remove themselves through this path
// (self-removal is reserved for a future leave-team flow). If the removed
// user had this team as their active context, it is reassigned to their
// personal team atomically with the removal.
func (s *TeamService) RemoveMember(actorID, teamID, memberID uint) error {
	team, err := s.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !s.CanManageTeam(actorID, team) {
		return ErrForbidden
	}

	var member models.TeamMember
	if err := s.db.Where("id = ? AND team_id = ?", memberID, teamID).First(&member).Error; err != nil {
		return ErrMemberNotFound
	}

	if member.UserID == team.OwnerID {
		return ErrOwnerImmutable
	}

	if member.UserID == actorID {
		return ErrSelfRemovalForbidden
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.TeamMember{}, member.ID).Error; err != nil {
			return err
		}
		return s.reassignCurrentTeam(tx, member.UserID, teamID)
	})

	if err != nil {
		return err
	}

	s.notifier.Notify(member.UserID, models.NotificationTeamMemberRemoved, map[string]interface{}{
		"message":   fmt.Sprintf("You have been removed from %s.", team.Name),
		"team_id":   team.ID,
		"team_name": team.Name,
	}, "")

	return nil
}

// reassignCurrentTeam moves the user's active team context to their
// personal team if it currently points at the given team.
func (s *TeamService) reassignCurrentTeam(tx *gorm.DB, userID, teamID uint) error {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return err
	}

	if user.CurrentTeamID == nil || *user.CurrentTeamID != teamID {
		return nil
	}

	var personal models.Team
	if err := tx.Where("owner_id = ? AND personal_team = ?", userID, true).
		First(&personal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Model(&models.User{}).Where("id = ?", userID).
				Update("current_team_id", nil).Error
		}
		return err
	}

	return tx.Model(&models.User{}).Where("id = ?", userID).
		Update("current_team_id", personal.ID).Error
}

// SwitchTeam changes the user's active team context. The user must be a
// member of the target team.
func (s *TeamService) SwitchTeam(userID, teamID uint) error {
	if !s.IsTeamMember(userID, teamID) {
		return ErrForbidden
	}

	return s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("current_team_id", teamID).Error
}

// GetTeamMembers returns all members of a team with users preloaded
func (s *TeamService) GetTeamMembers(teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember

	err := s.db.Where("team_id = ?", teamID).
		Preload("User").
		Order("role ASC, joined_at ASC").
		Find(&members).Error

	return members, err
}

// ================== HELPER FUNCTIONS ==================

// IsTeamMember checks if a user is a member of a team
func (s *TeamService) IsTeamMember(userID, teamID uint) bool {
	var count int64
	s.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count)
	return count > 0
}

// CanManageTeam reports whether the user holds the team-management
// capability: the owner, or a member with the admin role.
func (s *TeamService) CanManageTeam(userID uint, team *models.Team) bool {
	if team.IsOwnedBy(userID) {
		return true
	}

	var count int64
	s.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND role = ?", team.ID, userID, models.TeamRoleAdmin).
		Count(&count)
	return count > 0
}

// PersonalTeamOf returns the user's personal team.
func (s *TeamService) PersonalTeamOf(userID uint) (*models.Team, error) {
	var team models.Team
	err := s.db.Where("owner_id = ? AND personal_team = ?", userID, true).
		First(&team).Error
	if err != nil {
		return nil, ErrTeamNotFound
	}
	return &team, nil
}

// SearchInvitableUsers finds users matching the query who are neither
// members of the team nor already invited to it.
func (s *TeamService) SearchInvitableUsers(teamID uint, query string) ([]models.User, error) {
	var users []models.User

	like := "%" + query + "%"
	err := s.db.
		Where("(email LIKE ? OR name LIKE ?)", like, like).
		Where("id NOT IN (?)",
			s.db.Model(&models.TeamMember{}).Select("user_id").Where("team_id = ?", teamID)).
		Where("email NOT IN (?)",
			s.db.Model(&models.TeamInvitation{}).Select("email").Where("team_id = ?", teamID)).
		Limit(5).
		Find(&users).Error

	return users, err
}
