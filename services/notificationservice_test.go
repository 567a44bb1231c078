package services

import (
	"testing"
	"time"

	"teamdash/backend"
	"teamdash/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadNotifications(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, f.mem.Set(f.ctx, backend.Join(notificationsPath("bob"), id), model.Notification{
			Message:   id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	bob := f.as("bob")

	unread, err := ListUnreadNotifications(f.ctx, bob, "bob")
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Equal(t, "n3", unread[0].ID, "newest first")

	require.NoError(t, MarkNotificationRead(f.ctx, bob, "bob", "n3"))
	unread, err = ListUnreadNotifications(f.ctx, bob, "bob")
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "n2", unread[0].ID)

	assert.True(t, backend.IsNotFound(MarkNotificationRead(f.ctx, bob, "bob", "missing")))

	_, err = ListUnreadNotifications(f.ctx, f.as("alice"), "bob")
	assert.True(t, backend.IsPermissionDenied(err))

	// anyone may notify anyone
	require.NoError(t, CreateNotification(f.ctx, f.as("alice"), "bob", "hello"))
	assert.Error(t, CreateNotification(f.ctx, f.as("alice"), "bob", " "))
}
