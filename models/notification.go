// models/notification.go
package models

import "time"

// Notification types delivered to the in-app inbox.
const (
	NotificationTeamInvitation          = "team.invitation"
	NotificationTeamInvitationCancelled = "team.invitation_cancelled"
	NotificationTeamInvitationDeclined  = "team.invitation_declined"
	NotificationTeamMemberAdded         = "team.member_added"
	NotificationTeamMemberRemoved       = "team.member_removed"
	NotificationTeamDeleted             = "team.deleted"
)

type Notification struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID uint   `json:"user_id" gorm:"not null;index"`
	User   *User  `json:"-" gorm:"foreignKey:UserID"`
	Type   string `json:"type" gorm:"not null;index;size:64"`
	// Data is the JSON payload rendered by the inbox UI.
	Data string `json:"data" gorm:"type:text"`
	// InvitationToken links invitation notifications to their invitation so
	// accepting or declining can purge the stale actionable item.
	InvitationToken string     `json:"-" gorm:"index;size:64"`
	ReadAt          *time.Time `json:"read_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// IsRead reports whether the notification has been opened.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
