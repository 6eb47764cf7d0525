// models/team_invitation.go
package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// TeamInvitation is a time-bounded, token-authenticated offer for an email
// address to join a team at a given role. The token is the sole capability
// to accept or decline. Cancellation deletes the row instead of moving it
// to a terminal status.
type TeamInvitation struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	TeamID         uint             `json:"team_id" gorm:"not null;index"`
	Team           *Team            `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	Email          string           `json:"email" gorm:"not null;index;size:255"`
	Role           TeamRole         `json:"role" gorm:"not null;default:'member'"`
	Token          string           `json:"-" gorm:"uniqueIndex;not null;size:64"`
	Status         InvitationStatus `json:"status" gorm:"not null;default:'pending';index"`
	ExpiresAt      time.Time        `json:"expires_at" gorm:"not null"`
	InvitedBy      uint             `json:"invited_by" gorm:"not null"`
	Inviter        *User            `json:"inviter,omitempty" gorm:"foreignKey:InvitedBy"`
	ReminderCount  int              `json:"reminder_count" gorm:"default:0"`
	ReminderSentAt *time.Time       `json:"reminder_sent_at"`
	AcceptedAt     *time.Time       `json:"accepted_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (TeamInvitation) TableName() string {
	return "team_invitations"
}

// IsExpired reports whether the invitation's deadline has passed. Expiry is
// applied lazily when the invitation is touched, there is no background sweep.
func (i *TeamInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// CanSendReminder reports whether another reminder may go out: at most
// three in total, at least 24 hours apart.
func (i *TeamInvitation) CanSendReminder(now time.Time) bool {
	if i.ReminderCount >= 3 {
		return false
	}
	if i.ReminderSentAt != nil && now.Sub(*i.ReminderSentAt) < 24*time.Hour {
		return false
	}
	return true
}
