package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/models"
)

func TestNotifyPersistsAndPushes(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")

	ch := env.notifier.Subscribe(user.ID)
	defer env.notifier.Unsubscribe(user.ID, ch)

	env.notifier.Notify(user.ID, models.NotificationTeamInvitation,
		map[string]interface{}{"message": "hello"}, "some-token")

	select {
	case n := <-ch:
		assert.Equal(t, models.NotificationTeamInvitation, n.Type)
		assert.Contains(t, n.Data, "hello")
	case <-time.After(time.Second):
		t.Fatal("no live notification delivered")
	}

	stored, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "some-token", stored[0].InvitationToken)
	assert.Nil(t, stored[0].ReadAt)
}

func TestNotifyDoesNotBlockOnSlowSubscriber(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")

	ch := env.notifier.Subscribe(user.ID)
	defer env.notifier.Unsubscribe(user.ID, ch)

	// Never read from ch; fill the buffer and then some.
	for i := 0; i < 20; i++ {
		env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
			map[string]interface{}{"i": i}, "")
	}

	// Every notification still landed in the inbox.
	stored, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	assert.Len(t, stored, 20)
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")

	env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
		map[string]interface{}{"message": "one"}, "")
	env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
		map[string]interface{}{"message": "two"}, "")

	all, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, env.notifier.MarkRead(user.ID, all[0].ID))

	unread, err := env.notifier.ListForUser(user.ID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	require.NoError(t, env.notifier.MarkAllRead(user.ID))
	unread, err = env.notifier.ListForUser(user.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestDeleteNotificationScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")
	other := env.createUser(t, "Eve", "eve@x.com")

	env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
		map[string]interface{}{"message": "one"}, "")

	stored, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// Another user cannot delete it.
	assert.ErrorIs(t, env.notifier.Delete(other.ID, stored[0].ID), ErrNotificationNotFound)

	require.NoError(t, env.notifier.Delete(user.ID, stored[0].ID))
	assert.ErrorIs(t, env.notifier.Delete(user.ID, stored[0].ID), ErrNotificationNotFound)
}

func TestDeleteInvitationNotifications(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")

	env.notifier.Notify(user.ID, models.NotificationTeamInvitation,
		map[string]interface{}{"message": "join us"}, "token-a")
	env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
		map[string]interface{}{"message": "unrelated"}, "")

	env.notifier.DeleteInvitationNotifications("token-a")

	stored, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.NotificationTeamMemberAdded, stored[0].Type)
}

func TestPurgeReadHonorsRetention(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Dana", "dana@x.com")

	env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
		map[string]interface{}{"message": "old read"}, "")
	env.notifier.Notify(user.ID, models.NotificationTeamMemberAdded,
		map[string]interface{}{"message": "old unread"}, "")

	require.NoError(t, env.notifier.MarkAllRead(user.ID))

	// Only the first one is read AND old; unmark the second and age both.
	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("user_id = ?", user.ID).Update("created_at", old).Error)
	stored, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("id = ?", stored[1].ID).Update("read_at", nil).Error)

	purged, err := env.notifier.PurgeRead(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := env.notifier.ListForUser(user.ID, false)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
