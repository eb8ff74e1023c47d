package tracker

import (
	"context"
	"time"
)

// Key layout shared by every Store implementation
const (
	GeneratedPrefix  = "article_generated:"
	InProgressPrefix = "article_in_progress:"
	StartupTimeKey   = "listener_startup_time"
)

// Store is the key-value backing of the tracker. SetIfAbsent is the only
// operation that must be atomic; everything else may be eventually consistent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// SetIfAbsent writes key only when key and every guard key are absent
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration, guards ...string) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetAndDelete writes setKey and removes delKey as one unit
	SetAndDelete(ctx context.Context, setKey, value string, ttl time.Duration, delKey string) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteIfValue removes key only while it still holds value
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
	// ScanPrefix returns every live key starting with prefix and its value
	ScanPrefix(ctx context.Context, prefix string) (map[string]string, error)
	Close() error
}

func generatedKey(issueKey string) string {
	return GeneratedPrefix + issueKey
}

func inProgressKey(issueKey string) string {
	return InProgressPrefix + issueKey
}
