package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/models"
)

func TestCreateTeamAddsOwnerMembership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@x.com")

	team, err := env.teams.CreateTeam("Acme", "the team", false, owner.ID)
	require.NoError(t, err)

	var member models.TeamMember
	require.NoError(t, env.db.Where("team_id = ? AND user_id = ?", team.ID, owner.ID).
		First(&member).Error)
	assert.Equal(t, models.TeamRoleOwner, member.Role)
}

func TestCreatePersonalTeam(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")

	team, err := env.teams.CreatePersonalTeam(user)
	require.NoError(t, err)
	assert.True(t, team.PersonalTeam)
	assert.Equal(t, "Dana's Team", team.Name)

	// Becomes the user's active team context.
	var refreshed models.User
	require.NoError(t, env.db.First(&refreshed, user.ID).Error)
	require.NotNil(t, refreshed.CurrentTeamID)
	assert.Equal(t, team.ID, *refreshed.CurrentTeamID)
}

func TestUpdateMemberRole(t *testing.T) {
	env := newTestEnv(t)
	team, owner := env.createTeamWithOwner(t, "Acme")
	user := env.createUser(t, "Bob", "bob@x.com")
	member := env.addMember(t, team, user, models.TeamRoleMember)

	require.NoError(t, env.teams.UpdateMemberRole(owner.ID, team.ID, member.ID, models.TeamRoleAdmin))

	var refreshed models.TeamMember
	require.NoError(t, env.db.First(&refreshed, member.ID).Error)
	assert.Equal(t, models.TeamRoleAdmin, refreshed.Role)

	// Owner role is never assignable.
	err := env.teams.UpdateMemberRole(owner.ID, team.ID, member.ID, models.TeamRoleOwner)
	assert.ErrorIs(t, err, ErrInvalidRole)

	// Plain members hold no management capability.
	other := env.createUser(t, "Eve", "eve@x.com")
	otherMember := env.addMember(t, team, other, models.TeamRoleMember)
	err = env.teams.UpdateMemberRole(other.ID, team.ID, otherMember.ID, models.TeamRoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOwnerRowIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	team, owner := env.createTeamWithOwner(t, "Acme")
	admin := env.createUser(t, "Carol", "carol@x.com")
	env.addMember(t, team, admin, models.TeamRoleAdmin)

	var ownerRow models.TeamMember
	require.NoError(t, env.db.Where("team_id = ? AND user_id = ?", team.ID, owner.ID).
		First(&ownerRow).Error)

	err := env.teams.UpdateMemberRole(admin.ID, team.ID, ownerRow.ID, models.TeamRoleMember)
	assert.ErrorIs(t, err, ErrOwnerImmutable)

	err = env.teams.RemoveMember(admin.ID, team.ID, ownerRow.ID)
	assert.ErrorIs(t, err, ErrOwnerImmutable)
}

func TestRemoveMemberForbidsSelfRemoval(t *testing.T) {
	env := newTestEnv(t)
	team, _ := env.createTeamWithOwner(t, "Acme")
	admin := env.createUser(t, "Carol", "carol@x.com")
	adminRow := env.addMember(t, team, admin, models.TeamRoleAdmin)

	err := env.teams.RemoveMember(admin.ID, team.ID, adminRow.ID)
	assert.ErrorIs(t, err, ErrSelfRemovalForbidden)
}

func TestRemoveMemberReassignsCurrentTeam(t *testing.T) {
	env := newTestEnv(t)
	team, owner := env.createTeamWithOwner(t, "Acme")
	user := env.createUser(t, "Bob", "bob@x.com")
	personal, err := env.teams.CreatePersonalTeam(user)
	require.NoError(t, err)
	memberRow := env.addMember(t, team, user, models.TeamRoleMember)

	require.NoError(t, env.teams.SwitchTeam(user.ID, team.ID))

	require.NoError(t, env.teams.RemoveMember(owner.ID, team.ID, memberRow.ID))

	// Membership row is gone and the active context fell back to the
	// personal team.
	var count int64
	env.db.Model(&models.TeamMember{}).Where("id = ?", memberRow.ID).Count(&count)
	assert.Zero(t, count)

	var refreshed models.User
	require.NoError(t, env.db.First(&refreshed, user.ID).Error)
	require.NotNil(t, refreshed.CurrentTeamID)
	assert.Equal(t, personal.ID, *refreshed.CurrentTeamID)

	// The removed user was told.
	notifications := env.notificationsFor(t, user.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTeamMemberRemoved, notifications[0].Type)
}

func TestDeleteTeamCascades(t *testing.T) {
	env := newTestEnv(t)
	team, owner := env.createTeamWithOwner(t, "Acme")
	user := env.createUser(t, "Bob", "bob@x.com")
	_, err := env.teams.CreatePersonalTeam(user)
	require.NoError(t, err)
	env.addMember(t, team, user, models.TeamRoleMember)
	require.NoError(t, env.teams.SwitchTeam(user.ID, team.ID))

	_, err = env.invites.Invite(owner.ID, team.ID, "pending@x.com", models.TeamRoleMember)
	require.NoError(t, err)

	require.NoError(t, env.teams.DeleteTeam(owner.ID, team.ID))

	var teams, members, invitations int64
	env.db.Model(&models.Team{}).Where("id = ?", team.ID).Count(&teams)
	env.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&members)
	env.db.Model(&models.TeamInvitation{}).Where("team_id = ?", team.ID).Count(&invitations)
	assert.Zero(t, teams)
	assert.Zero(t, members)
	assert.Zero(t, invitations)

	// Displaced member fell back to their personal team and heard about it.
	var refreshed models.User
	require.NoError(t, env.db.First(&refreshed, user.ID).Error)
	require.NotNil(t, refreshed.CurrentTeamID)
	assert.NotEqual(t, team.ID, *refreshed.CurrentTeamID)

	deleted := false
	for _, n := range env.notificationsFor(t, user.ID) {
		if n.Type == models.NotificationTeamDeleted {
			deleted = true
		}
	}
	assert.True(t, deleted)

	// The owner does not notify themselves.
	for _, n := range env.notificationsFor(t, owner.ID) {
		assert.NotEqual(t, models.NotificationTeamDeleted, n.Type)
	}
}

func TestDeleteTeamRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	team, _ := env.createTeamWithOwner(t, "Acme")
	admin := env.createUser(t, "Carol", "carol@x.com")
	env.addMember(t, team, admin, models.TeamRoleAdmin)

	// Admins manage the team but may not delete it.
	assert.ErrorIs(t, env.teams.DeleteTeam(admin.ID, team.ID), ErrForbidden)
}

func TestDeleteTeamRejectsPersonalTeam(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")
	personal, err := env.teams.CreatePersonalTeam(user)
	require.NoError(t, err)

	assert.ErrorIs(t, env.teams.DeleteTeam(user.ID, personal.ID), ErrPersonalTeam)
}

func TestSwitchTeamRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	team, _ := env.createTeamWithOwner(t, "Acme")
	outsider := env.createUser(t, "Eve", "eve@x.com")

	assert.ErrorIs(t, env.teams.SwitchTeam(outsider.ID, team.ID), ErrForbidden)
}

func TestUpdateStatusRejectsDeactivatingPersonalTeam(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")
	personal, err := env.teams.CreatePersonalTeam(user)
	require.NoError(t, err)

	err = env.teams.UpdateStatus(user.ID, personal.ID, false)
	assert.ErrorIs(t, err, ErrPersonalTeam)
}

func TestSearchInvitableUsersExcludesMembersAndInvited(t *testing.T) {
	env := newTestEnv(t)
	team, owner := env.createTeamWithOwner(t, "Acme")

	member := env.createUser(t, "Taylor Member", "taylor.member@x.com")
	env.addMember(t, team, member, models.TeamRoleMember)
	invited := env.createUser(t, "Taylor Invited", "taylor.invited@x.com")
	_, err := env.invites.Invite(owner.ID, team.ID, invited.Email, models.TeamRoleMember)
	require.NoError(t, err)
	free := env.createUser(t, "Taylor Free", "taylor.free@x.com")

	users, err := env.teams.SearchInvitableUsers(team.ID, "taylor")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, free.ID, users[0].ID)
}
