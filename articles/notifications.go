package articles

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"jurix/logging"
	"jurix/types"
)

const (
	// NotificationArticleReady is the type of notifications announcing a new article
	NotificationArticleReady = "article_ready"

	notificationLimit     = 10
	notificationRecentAge = 24 * time.Hour
)

// CreateUserNotification tells recipient that an article is ready for the issue
func (s *Service) CreateUserNotification(recipient, issueKey, issueSummary string) (types.Notification, bool) {
	if recipient == "" {
		logging.Warn("no recipient for article notification", "issue", issueKey)
		return types.Notification{}, false
	}

	n := types.Notification{
		ID:        uuid.NewString(),
		IssueKey:  issueKey,
		Recipient: recipient,
		Title:     "AI Article Generated",
		Message:   "An article has been generated for: " + issueSummary,
		Timestamp: s.now().UnixMilli(),
		Type:      NotificationArticleReady,
	}

	s.notifyMu.Lock()
	s.notifications[recipient] = append(s.notifications[recipient], n)
	s.notifyMu.Unlock()

	logging.Info("created notification", "recipient", recipient, "issue", issueKey)
	return n, true
}

// Notifications lists a user's unread or recent notifications, newest first
func (s *Service) Notifications(user string) []types.Notification {
	cutoff := s.now().Add(-notificationRecentAge).UnixMilli()

	s.notifyMu.Lock()
	all := append([]types.Notification(nil), s.notifications[user]...)
	s.notifyMu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})

	out := make([]types.Notification, 0, notificationLimit)
	for _, n := range all {
		if n.Read && n.Timestamp <= cutoff {
			continue
		}
		out = append(out, n)
		if len(out) == notificationLimit {
			break
		}
	}
	return out
}

// MarkNotificationRead marks one of a user's notifications read
func (s *Service) MarkNotificationRead(user, id string) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for i := range s.notifications[user] {
		if s.notifications[user][i].ID == id {
			s.notifications[user][i].Read = true
			return true
		}
	}
	return false
}
