package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskhive/database"
	"taskhive/models"
)

// testMailer records sends instead of delivering them.
type testMailer struct {
	mu    sync.Mutex
	sends []testMailSend
}

type testMailSend struct {
	Email    string
	TeamName string
	Reminder bool
	Kind     string // "invitation" or "cancelled"
}

func (m *testMailer) SendInvitation(invitation *models.TeamInvitation, teamName, inviterName string, reminder bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, testMailSend{
		Email:    invitation.Email,
		TeamName: teamName,
		Reminder: reminder,
		Kind:     "invitation",
	})
	return nil
}

func (m *testMailer) SendInvitationCancelled(email, teamName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, testMailSend{Email: email, TeamName: teamName, Kind: "cancelled"})
	return nil
}

func (m *testMailer) sent() []testMailSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]testMailSend, len(m.sends))
	copy(out, m.sends)
	return out
}

// testLimiter is an attempt counter without windows, enough for asserting
// the lifecycle consults and hits it.
type testLimiter struct {
	mu    sync.Mutex
	hits  map[string]int
	retry int
}

func newTestLimiter() *testLimiter {
	return &testLimiter{hits: make(map[string]int), retry: 120}
}

func (l *testLimiter) TooManyAttempts(key string, max int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits[key] >= max
}

func (l *testLimiter) Hit(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[key]++
}

func (l *testLimiter) AvailableIn(key string) int {
	return l.retry
}

type testEnv struct {
	db       *gorm.DB
	teams    *TeamService
	notifier *NotificationService
	invites  *InvitationService
	mailer   *testMailer
	limiter  *testLimiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// One connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))

	notifier := NewNotificationService(db)
	teams := NewTeamService(db, notifier)
	mailer := &testMailer{}
	limiter := newTestLimiter()
	invites := NewInvitationService(db, teams, notifier, mailer, limiter)

	return &testEnv{
		db:       db,
		teams:    teams,
		notifier: notifier,
		invites:  invites,
		mailer:   mailer,
		limiter:  limiter,
	}
}

func (e *testEnv) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    email,
		Password: "hashed",
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// createTeamWithOwner makes a non-personal team plus its owner user with a
// personal team, so current-team reassignment has somewhere to land.
func (e *testEnv) createTeamWithOwner(t *testing.T, teamName string) (*models.Team, *models.User) {
	t.Helper()
	owner := e.createUser(t, teamName+" Owner", fmt.Sprintf("owner+%s@example.com", teamName))
	_, err := e.teams.CreatePersonalTeam(owner)
	require.NoError(t, err)

	team, err := e.teams.CreateTeam(teamName, "", false, owner.ID)
	require.NoError(t, err)
	return team, owner
}

func (e *testEnv) addMember(t *testing.T, team *models.Team, user *models.User, role models.TeamRole) *models.TeamMember {
	t.Helper()
	member := &models.TeamMember{
		TeamID:   team.ID,
		UserID:   user.ID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	require.NoError(t, e.db.Create(member).Error)
	return member
}

func (e *testEnv) pendingInvitations(t *testing.T, teamID uint, email string) []models.TeamInvitation {
	t.Helper()
	var invitations []models.TeamInvitation
	require.NoError(t, e.db.Where("team_id = ? AND email = ? AND status = ?",
		teamID, email, models.InvitationPending).Find(&invitations).Error)
	return invitations
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var notifications []models.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Find(&notifications).Error)
	return notifications
}
