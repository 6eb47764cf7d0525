// models/user.go
package models

import (
	"time"
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	Password      string    `gorm:"not null" json:"-"`
	Avatar        string    `json:"avatar"`
	CurrentTeamID *uint     `gorm:"index" json:"current_team_id,omitempty"`
	CurrentTeam   *Team     `gorm:"foreignKey:CurrentTeamID" json:"current_team,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastLogin     time.Time `json:"last_login"`

	Memberships []TeamMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
}

func (User) TableName() string {
	return "users"
}
