// services/invitation_service.go - Team invitation lifecycle
package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"taskhive/logger"
	"taskhive/models"
)

const (
	// HourlyInvitationLimit caps how many invitations one user can send
	// per hour across all teams.
	HourlyInvitationLimit = 20

	// InvitationTTL is how long an invitation stays acceptable.
	InvitationTTL = 7 * 24 * time.Hour

	// DefaultMaxMembers bounds members + pending invitations for
	// non-personal teams. Override with TEAM_MAX_MEMBERS.
	DefaultMaxMembers = 10
)

// RateLimiter is the attempt counter the lifecycle consults before
// creating invitations. Backed by middleware.AttemptLimiter in-process;
// the same contract fits a shared key-value store when running multiple
// instances.
type RateLimiter interface {
	TooManyAttempts(key string, max int) bool
	Hit(key string)
	AvailableIn(key string) int
}

// InvitationService drives the invitation state machine: pending is the
// only mutable state, accepted/declined/expired are terminal, and
// cancellation deletes the row. All transitions go through conditional
// updates so concurrent callers serialize per invitation row.
type InvitationService struct {
	db         *gorm.DB
	teams      *TeamService
	notifier   *NotificationService
	mailer     Mailer
	limiter    RateLimiter
	log        *logger.Logger
	maxMembers int
	now        func() time.Time
}

func NewInvitationService(db *gorm.DB, teams *TeamService, notifier *NotificationService, mailer Mailer, limiter RateLimiter) *InvitationService {
	maxMembers := DefaultMaxMembers
	if val := os.Getenv("TEAM_MAX_MEMBERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			maxMembers = n
		}
	}

	return &InvitationService{
		db:         db,
		teams:      teams,
		notifier:   notifier,
		mailer:     mailer,
		limiter:    limiter,
		log:        logger.NewLogger("invitation-service"),
		maxMembers: maxMembers,
		now:        time.Now,
	}
}

func rateLimitKey(userID uint) string {
	return fmt.Sprintf("team_invitations:%d", userID)
}

// ================== INVITE ==================

// Invite creates a pending invitation for the email address. Validation
// order: management capability, rate limit, existing membership, duplicate
// pending invitation, capacity. The first failing check wins.
func (s *InvitationService) Invite(actorID, teamID uint, email string, role models.TeamRole) (*models.TeamInvitation, error) {
	team, err := s.teams.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}

	if !s.teams.CanManageTeam(actorID, team) {
		return nil, ErrForbidden
	}

	if role == "" {
		role = models.TeamRoleMember
	}
	if !role.IsAssignable() {
		return nil, ErrInvalidRole
	}

	email = normalizeEmail(email)

	key := rateLimitKey(actorID)
	if s.limiter.TooManyAttempts(key, HourlyInvitationLimit) {
		return nil, &RateLimitError{RetryAfter: s.limiter.AvailableIn(key)}
	}

	if s.isMemberEmail(teamID, email) {
		return nil, ErrAlreadyMember
	}

	if s.hasPendingInvitation(teamID, email) {
		return nil, ErrDuplicateInvitation
	}

	if !team.PersonalTeam {
		if s.memberCount(teamID)+s.pendingCount(teamID)+1 > int64(s.maxMembers) {
			return nil, ErrCapacityExceeded
		}
	}

	invitation, err := s.createInvitation(teamID, email, role, actorID)
	if err != nil {
		return nil, err
	}

	s.limiter.Hit(key)
	s.dispatchInvitation(invitation, team, false)

	return invitation, nil
}

// BulkInviteResult is the partition of a bulk invite: number of addresses
// invited plus per-address error messages. The operation is not
// transactional across addresses.
type BulkInviteResult struct {
	SuccessCount int      `json:"success_count"`
	Errors       []string `json:"errors"`
}

// BulkInvite applies the per-email invite checks to each address. Unlike
// Invite, an expired invitation is reactivated with a fresh token and
// expiry rather than treated as a duplicate. The rate limit is checked once
// up front against the batch and hit once after processing.
func (s *InvitationService) BulkInvite(actorID, teamID uint, emails []string, role models.TeamRole) (*BulkInviteResult, error) {
	team, err := s.teams.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}

	if !s.teams.CanManageTeam(actorID, team) {
		return nil, ErrForbidden
	}

	if role == "" {
		role = models.TeamRoleMember
	}
	if !role.IsAssignable() {
		return nil, ErrInvalidRole
	}

	key := rateLimitKey(actorID)
	if s.limiter.TooManyAttempts(key, HourlyInvitationLimit) {
		return nil, &RateLimitError{RetryAfter: s.limiter.AvailableIn(key)}
	}

	if !team.PersonalTeam {
		if s.memberCount(teamID)+s.pendingCount(teamID)+int64(len(emails)) > int64(s.maxMembers) {
			return nil, ErrCapacityExceeded
		}
	}

	result := &BulkInviteResult{}

	for _, email := range emails {
		email = normalizeEmail(email)

		if s.isMemberEmail(teamID, email) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s is already a member of the team.", email))
			continue
		}

		var existing models.TeamInvitation
		err := s.db.Where("team_id = ? AND email = ? AND status IN ?",
			teamID, email, []models.InvitationStatus{models.InvitationPending, models.InvitationExpired}).
			First(&existing).Error

		switch {
		case err == nil && existing.Status == models.InvitationPending:
			result.Errors = append(result.Errors, fmt.Sprintf("An invitation has already been sent to %s.", email))
			continue

		case err == nil:
			reactivated, rerr := s.reactivateInvitation(&existing, actorID)
			if rerr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to invite %s.", email))
				continue
			}
			s.dispatchInvitation(reactivated, team, false)
			result.SuccessCount++

		default:
			invitation, cerr := s.createInvitation(teamID, email, role, actorID)
			if cerr != nil {
				if errors.Is(cerr, ErrDuplicateInvitation) {
					result.Errors = append(result.Errors, fmt.Sprintf("An invitation has already been sent to %s.", email))
				} else {
					result.Errors = append(result.Errors, fmt.Sprintf("Failed to invite %s.", email))
				}
				continue
			}
			s.dispatchInvitation(invitation, team, false)
			result.SuccessCount++
		}
	}

	s.limiter.Hit(key)

	return result, nil
}

// createInvitation inserts a fresh pending invitation. The partial unique
// index on (team_id, email, pending) closes the race between the pre-check
// and the insert; the loser maps to ErrDuplicateInvitation.
func (s *InvitationService) createInvitation(teamID uint, email string, role models.TeamRole, inviterID uint) (*models.TeamInvitation, error) {
	token, err := generateInvitationToken()
	if err != nil {
		return nil, err
	}

	invitation := &models.TeamInvitation{
		TeamID:    teamID,
		Email:     email,
		Role:      role,
		Token:     token,
		Status:    models.InvitationPending,
		ExpiresAt: s.now().Add(InvitationTTL),
		InvitedBy: inviterID,
	}

	if err := s.db.Create(invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateInvitation
		}
		return nil, err
	}

	return invitation, nil
}

// reactivateInvitation turns an expired invitation back into a pending one
// with a fresh token and expiry and reset reminder counters. Conditional on
// the row still being expired.
func (s *InvitationService) reactivateInvitation(invitation *models.TeamInvitation, inviterID uint) (*models.TeamInvitation, error) {
	token, err := generateInvitationToken()
	if err != nil {
		return nil, err
	}

	res := s.db.Model(&models.TeamInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationExpired).
		Updates(map[string]interface{}{
			"status":           models.InvitationPending,
			"token":            token,
			"expires_at":       s.now().Add(InvitationTTL),
			"invited_by":       inviterID,
			"reminder_count":   0,
			"reminder_sent_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateInvitation
	}

	var refreshed models.TeamInvitation
	if err := s.db.First(&refreshed, invitation.ID).Error; err != nil {
		return nil, err
	}

	return &refreshed, nil
}

// ================== ACCEPT / DECLINE ==================

// Accept adds the invitation's recipient to the team. Safe under
// concurrent calls with the same token: the pending->accepted transition
// is a conditional update and the loser gets ErrAlreadyProcessed. The
// membership write is an upsert, tolerating a user who was separately
// added to the team.
func (s *InvitationService) Accept(token string, userID uint) (*models.Team, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	invitation, err := s.findByToken(token)
	if err != nil {
		return nil, err
	}

	if invitation.Status != models.InvitationPending {
		return nil, ErrAlreadyProcessed
	}

	if !strings.EqualFold(invitation.Email, user.Email) {
		return nil, ErrWrongRecipient
	}

	if err := s.expireIfPast(invitation); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TeamInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":      models.InvitationAccepted,
				"accepted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyProcessed
		}

		return s.upsertMembership(tx, invitation.TeamID, userID, invitation.Role)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.DeleteInvitationNotifications(token)

	team, err := s.teams.GetTeamByID(invitation.TeamID)
	if err != nil {
		return nil, err
	}

	s.notifyAdmins(team, userID, fmt.Sprintf("%s has joined %s as a %s.", user.Name, team.Name, invitation.Role), map[string]interface{}{
		"team_id":     team.ID,
		"team_name":   team.Name,
		"member_id":   user.ID,
		"member_name": user.Name,
		"role":        invitation.Role,
	})

	return team, nil
}

// Decline moves a pending invitation to declined and tells the inviter.
// The token alone authorizes the decline: the invitee may not have an
// account, so no recipient-identity check is enforced.
func (s *InvitationService) Decline(token string) error {
	invitation, err := s.findByToken(token)
	if err != nil {
		return err
	}

	if invitation.Status != models.InvitationPending {
		return ErrAlreadyProcessed
	}

	if err := s.expireIfPast(invitation); err != nil {
		return err
	}

	res := s.db.Model(&models.TeamInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
		Update("status", models.InvitationDeclined)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyProcessed
	}

	s.notifier.DeleteInvitationNotifications(token)

	var team models.Team
	if err := s.db.First(&team, invitation.TeamID).Error; err == nil {
		s.notifier.Notify(invitation.InvitedBy, models.NotificationTeamInvitationDeclined, map[string]interface{}{
			"message":   fmt.Sprintf("%s declined the invitation to join %s.", invitation.Email, team.Name),
			"team_id":   team.ID,
			"team_name": team.Name,
			"email":     invitation.Email,
		}, "")
	}

	return nil
}

// ================== CANCEL / REMIND ==================

// Cancel deletes the invitation outright. Cancellation is terminal but is
// not a status transition: the row is removed. The invitee is notified if
// they have an account.
func (s *InvitationService) Cancel(actorID, teamID, invitationID uint) error {
	team, err := s.teams.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !s.teams.CanManageTeam(actorID, team) {
		return ErrForbidden
	}

	var invitation models.TeamInvitation
	if err := s.db.Where("id = ? AND team_id = ?", invitationID, teamID).
		First(&invitation).Error; err != nil {
		return ErrInvitationNotFound
	}

	if err := s.db.Delete(&models.TeamInvitation{}, invitation.ID).Error; err != nil {
		return err
	}

	s.notifier.DeleteInvitationNotifications(invitation.Token)

	if invitee := s.userByEmail(invitation.Email); invitee != nil {
		s.notifier.Notify(invitee.ID, models.NotificationTeamInvitationCancelled, map[string]interface{}{
			"message":   fmt.Sprintf("Your invitation to join %s has been cancelled.", team.Name),
			"team_name": team.Name,
		}, "")
	}

	if err := s.mailer.SendInvitationCancelled(invitation.Email, team.Name); err != nil {
		s.log.Error("cancellation mail failed", "team_id", teamID, "error", err)
	}

	return nil
}

// Remind resends the invitation mail. At most 3 reminders per invitation,
// at least 24 hours apart, enforced across all admins. The counter bump is
// conditional on the count the caller saw, so two concurrent reminders
// cannot both get through.
func (s *InvitationService) Remind(actorID, teamID, invitationID uint) error {
	team, err := s.teams.GetTeamByID(teamID)
	if err != nil {
		return err
	}

	if !s.teams.CanManageTeam(actorID, team) {
		return ErrForbidden
	}

	var invitation models.TeamInvitation
	if err := s.db.Where("id = ? AND team_id = ?", invitationID, teamID).
		First(&invitation).Error; err != nil {
		return ErrInvitationNotFound
	}

	if invitation.Status != models.InvitationPending {
		return ErrNotPending
	}

	now := s.now()
	if !invitation.CanSendReminder(now) {
		return ErrReminderThrottled
	}

	res := s.db.Model(&models.TeamInvitation{}).
		Where("id = ? AND status = ? AND reminder_count = ?",
			invitation.ID, models.InvitationPending, invitation.ReminderCount).
		Updates(map[string]interface{}{
			"reminder_count":   invitation.ReminderCount + 1,
			"reminder_sent_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReminderThrottled
	}

	inviterName := s.inviterName(invitation.InvitedBy)
	if err := s.mailer.SendInvitation(&invitation, team.Name, inviterName, true); err != nil {
		s.log.Error("reminder mail failed", "team_id", teamID, "invitation_id", invitationID, "error", err)
	}

	return nil
}

// ListInvitations returns the team's invitation history for the settings
// page (pending and terminal statuses, newest first).
func (s *InvitationService) ListInvitations(actorID, teamID uint) ([]models.TeamInvitation, error) {
	team, err := s.teams.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}

	if !s.teams.CanManageTeam(actorID, team) {
		return nil, ErrForbidden
	}

	var invitations []models.TeamInvitation
	err = s.db.Where("team_id = ?", teamID).
		Preload("Inviter").
		Order("created_at DESC").
		Find(&invitations).Error

	return invitations, err
}

// ================== HELPER FUNCTIONS ==================

func (s *InvitationService) findByToken(token string) (*models.TeamInvitation, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var invitation models.TeamInvitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, ErrInvalidToken
	}

	return &invitation, nil
}

// expireIfPast applies lazy expiry: a pending invitation past its deadline
// transitions to expired the moment it is touched. The transition is
// conditional so a concurrent accept cannot be clobbered.
func (s *InvitationService) expireIfPast(invitation *models.TeamInvitation) error {
	if !invitation.IsExpired(s.now()) {
		return nil
	}

	s.db.Model(&models.TeamInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
		Update("status", models.InvitationExpired)

	return ErrInvitationExpired
}

// upsertMembership adds the user to the team, or updates the role of an
// existing row. Exactly one membership row per (team, user) ever exists.
func (s *InvitationService) upsertMembership(tx *gorm.DB, teamID, userID uint, role models.TeamRole) error {
	var member models.TeamMember
	err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err == nil {
		return tx.Model(&member).Update("role", role).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	member = models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: s.now(),
	}
	if err := tx.Create(&member).Error; err != nil {
		// Lost the insert race, the unique index on (team, user) held.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return tx.Model(&models.TeamMember{}).
				Where("team_id = ? AND user_id = ?", teamID, userID).
				Update("role", role).Error
		}
		return err
	}

	return nil
}

// dispatchInvitation sends the invitation mail and, when the address
// belongs to a registered account, an in-app notification. Runs after the
// invitation is committed; failures are logged and never unwind the state
// change.
func (s *InvitationService) dispatchInvitation(invitation *models.TeamInvitation, team *models.Team, reminder bool) {
	inviterName := s.inviterName(invitation.InvitedBy)

	if err := s.mailer.SendInvitation(invitation, team.Name, inviterName, reminder); err != nil {
		s.log.Error("invitation mail failed", "team_id", team.ID, "email", invitation.Email, "error", err)
	}

	if invitee := s.userByEmail(invitation.Email); invitee != nil {
		s.notifier.Notify(invitee.ID, models.NotificationTeamInvitation, map[string]interface{}{
			"message":   fmt.Sprintf("You have been invited to join %s as a %s.", team.Name, invitation.Role),
			"team_name": team.Name,
			"role":      invitation.Role,
		}, invitation.Token)
	}
}

// notifyAdmins notifies every owner/admin of the team except the excluded
// user (the member who just joined).
func (s *InvitationService) notifyAdmins(team *models.Team, excludeUserID uint, message string, data map[string]interface{}) {
	var admins []models.TeamMember
	if err := s.db.Where("team_id = ? AND role IN ?", team.ID,
		[]models.TeamRole{models.TeamRoleOwner, models.TeamRoleAdmin}).
		Find(&admins).Error; err != nil {
		s.log.Error("failed to load team admins", "team_id", team.ID, "error", err)
		return
	}

	data["message"] = message
	for _, admin := range admins {
		if admin.UserID == excludeUserID {
			continue
		}
		s.notifier.Notify(admin.UserID, models.NotificationTeamMemberAdded, data, "")
	}
}

func (s *InvitationService) isMemberEmail(teamID uint, email string) bool {
	var count int64
	s.db.Model(&models.TeamMember{}).
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ? AND LOWER(users.email) = ?", teamID, email).
		Count(&count)
	return count > 0
}

func (s *InvitationService) hasPendingInvitation(teamID uint, email string) bool {
	var count int64
	s.db.Model(&models.TeamInvitation{}).
		Where("team_id = ? AND email = ? AND status = ?", teamID, email, models.InvitationPending).
		Count(&count)
	return count > 0
}

func (s *InvitationService) memberCount(teamID uint) int64 {
	var count int64
	s.db.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count)
	return count
}

func (s *InvitationService) pendingCount(teamID uint) int64 {
	var count int64
	s.db.Model(&models.TeamInvitation{}).
		Where("team_id = ? AND status = ?", teamID, models.InvitationPending).
		Count(&count)
	return count
}

func (s *InvitationService) userByEmail(email string) *models.User {
	var user models.User
	if err := s.db.Where("LOWER(email) = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil
	}
	return &user
}

func (s *InvitationService) inviterName(inviterID uint) string {
	var inviter models.User
	if err := s.db.First(&inviter, inviterID).Error; err != nil {
		return "A team administrator"
	}
	return inviter.Name
}

// normalizeEmail lowercases addresses so the pending-uniqueness index and
// recipient matching are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
