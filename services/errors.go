package services

import (
	"errors"
	"fmt"
)

// Validation failures are recovered at the service boundary and returned as
// typed errors; handlers map them to HTTP statuses. Messages are user-facing.
var (
	ErrForbidden            = errors.New("you do not have permission to manage this team")
	ErrTeamNotFound         = errors.New("team not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAlreadyMember        = errors.New("this user is already a member of the team")
	ErrDuplicateInvitation  = errors.New("an invitation has already been sent to this email")
	ErrCapacityExceeded     = errors.New("team has reached maximum member capacity")
	ErrInvalidToken         = errors.New("invitation not found or no longer valid")
	ErrWrongRecipient       = errors.New("this invitation was not meant for you")
	ErrInvitationExpired    = errors.New("this invitation has expired")
	ErrAlreadyProcessed     = errors.New("this invitation has already been processed")
	ErrNotPending           = errors.New("this invitation is no longer pending")
	ErrReminderThrottled    = errors.New("cannot send reminder at this time, please wait 24 hours between reminders")
	ErrOwnerImmutable       = errors.New("cannot modify the team owner's membership")
	ErrSelfRemovalForbidden = errors.New("you cannot remove yourself from the team")
	ErrPersonalTeam         = errors.New("personal teams cannot be deactivated or deleted")
	ErrInvalidRole          = errors.New("invalid role")
)

// RateLimitError reports how long the caller has to wait before the
// invitation allowance resets.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Too many invitations. Please try again in %d seconds.", e.RetryAfter)
}
