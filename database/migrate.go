// database/migrate.go - Database Migration Runner
package database

import (
	"log"
	"taskhive/models"

	"gorm.io/gorm"
)

// RunMigrations migrates all tables and creates the indexes the
// invitation lifecycle depends on. Takes the connection as a parameter
// so tests can migrate an in-memory database.
func RunMigrations(db *gorm.DB) error {
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamInvitation{},
		&models.Notification{},
	); err != nil {
		return err
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	log.Println("✅ Migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	// At most one pending invitation per (team, email). The partial unique
	// index closes the race between the application-level pre-check and the
	// insert; a losing inserter gets a unique violation. Supported by both
	// PostgreSQL and SQLite.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_team_invitations_pending
		ON team_invitations(team_id, email) WHERE status = 'pending'`).Error; err != nil {
		return err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_owner ON teams(owner_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_teams_active ON teams(active)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_members_team ON team_members(team_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_members_role ON team_members(role)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_invitations_team ON team_invitations(team_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_invitations_status ON team_invitations(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_invitations_email ON team_invitations(email)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_token ON notifications(invitation_token)")

	return nil
}
