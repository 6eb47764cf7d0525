// models/team.go
package models

import "time"

type Team struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	Name         string           `json:"name" gorm:"not null;size:255"`
	Description  string           `json:"description" gorm:"type:text"`
	OwnerID      uint             `json:"owner_id" gorm:"not null;index"`
	Owner        *User            `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	PersonalTeam bool             `json:"personal_team" gorm:"default:false"`
	Active       bool             `json:"active" gorm:"default:true;index"`
	Members      []TeamMember     `json:"members,omitempty" gorm:"foreignKey:TeamID"`
	Invitations  []TeamInvitation `json:"invitations,omitempty" gorm:"foreignKey:TeamID"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

// IsOwnedBy reports whether the given user owns the team.
func (t *Team) IsOwnedBy(userID uint) bool {
	return t.OwnerID == userID
}
