// models/team_member.go
package models

import "time"

type TeamRole string

const (
	TeamRoleOwner  TeamRole = "owner"
	TeamRoleAdmin  TeamRole = "admin"
	TeamRoleMember TeamRole = "member"
)

// AssignableRoles are the roles an admin can grant. The owner role is
// held by exactly one membership row and never assigned through the API.
var AssignableRoles = []TeamRole{TeamRoleAdmin, TeamRoleMember}

// IsAssignable reports whether the role may be granted via invitations
// or member-role updates.
func (r TeamRole) IsAssignable() bool {
	return r == TeamRoleAdmin || r == TeamRoleMember
}

type TeamMember struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TeamID    uint      `json:"team_id" gorm:"not null;uniqueIndex:idx_team_members_team_user"`
	Team      *Team     `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_team_members_team_user"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role      TeamRole  `json:"role" gorm:"not null;default:'member'"`
	JoinedAt  time.Time `json:"joined_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
