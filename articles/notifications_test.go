package articles

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserNotification(t *testing.T) {
	s := newTestService(nil)

	n, ok := s.CreateUserNotification("alex", "ABC-1", "Login fails on Safari")
	require.True(t, ok)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, NotificationArticleReady, n.Type)
	assert.Equal(t, "An article has been generated for: Login fails on Safari", n.Message)
	assert.False(t, n.Read)

	_, ok = s.CreateUserNotification("", "ABC-1", "x")
	assert.False(t, ok)
}

func TestNotificationsOrderingAndLimit(t *testing.T) {
	s := New(nil)
	clock := time.UnixMilli(1_000_000)
	s.now = func() time.Time { return clock }

	for i := 0; i < 12; i++ {
		s.CreateUserNotification("alex", fmt.Sprintf("ABC-%d", i), "x")
		clock = clock.Add(time.Second)
	}

	got := s.Notifications("alex")
	require.Len(t, got, 10)
	assert.Equal(t, "ABC-11", got[0].IssueKey)
	assert.Equal(t, "ABC-2", got[9].IssueKey)
	assert.Empty(t, s.Notifications("sam"))
}

func TestNotificationsHideOldReadEntries(t *testing.T) {
	s := New(nil)
	clock := time.UnixMilli(1_000_000_000)
	s.now = func() time.Time { return clock }

	old, _ := s.CreateUserNotification("alex", "ABC-1", "x")
	stale, _ := s.CreateUserNotification("alex", "ABC-2", "x")
	require.True(t, s.MarkNotificationRead("alex", old.ID))
	assert.False(t, s.MarkNotificationRead("alex", "missing"))

	clock = clock.Add(25 * time.Hour)
	fresh, _ := s.CreateUserNotification("alex", "ABC-3", "x")
	require.True(t, s.MarkNotificationRead("alex", fresh.ID))

	got := s.Notifications("alex")
	require.Len(t, got, 2)
	assert.Equal(t, fresh.ID, got[0].ID)
	assert.True(t, got[0].Read)
	assert.Equal(t, stale.ID, got[1].ID)
	assert.False(t, got[1].Read)
}
