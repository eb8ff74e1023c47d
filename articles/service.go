// Package articles stores generated knowledge-base articles, generation
// errors, reviewer feedback and the per-user notifications that announce them.
package articles

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"jurix/logging"
	"jurix/types"
)

// Feedback actions
const (
	ActionRefine  = "refine"
	ActionApprove = "approve"
)

// ErrNoArticle is returned when feedback targets a record without article content
var ErrNoArticle = errors.New("article has no content")

// Service is the article storage collaborator. Records are cached in memory
// and written through to the backend.
type Service struct {
	backend Backend
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]types.ArticleData

	// serializes the read-modify-write in ApplyFeedback
	feedbackMu sync.Mutex

	notifyMu      sync.Mutex
	notifications map[string][]types.Notification
}

// New creates a service over the given backend. A nil backend keeps records
// in memory only.
func New(backend Backend) *Service {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Service{
		backend:       backend,
		now:           time.Now,
		cache:         make(map[string]types.ArticleData),
		notifications: make(map[string][]types.Notification),
	}
}

func (s *Service) put(ctx context.Context, data types.ArticleData) error {
	s.mu.Lock()
	s.cache[data.IssueKey] = data
	s.mu.Unlock()

	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist article for %s: %w", data.IssueKey, err)
	}
	return nil
}

// Store records a successfully generated article
func (s *Service) Store(ctx context.Context, issueKey string, article map[string]interface{}) error {
	data := types.ArticleData{
		IssueKey:  issueKey,
		Article:   maps.Clone(article),
		Status:    types.ArticleSuccess,
		CreatedAt: s.now().UnixMilli(),
		Version:   articleVersion(article),
	}
	if err := s.put(ctx, data); err != nil {
		return err
	}
	logging.Info("stored article", "issue", issueKey, "version", data.Version)
	return nil
}

// StoreError records a failed generation attempt
func (s *Service) StoreError(ctx context.Context, issueKey, message string) error {
	data := types.ArticleData{
		IssueKey:  issueKey,
		Status:    types.ArticleError,
		Error:     message,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.put(ctx, data); err != nil {
		return err
	}
	logging.Info("stored article generation error", "issue", issueKey, "error", message)
	return nil
}

// Get returns the record for an issue, reading through to the backend on a
// cache miss. Missing records return ErrNotFound.
func (s *Service) Get(ctx context.Context, issueKey string) (types.ArticleData, error) {
	s.mu.RLock()
	data, ok := s.cache[issueKey]
	s.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := s.backend.Load(ctx, issueKey)
	if err != nil {
		return types.ArticleData{}, err
	}

	s.mu.Lock()
	s.cache[issueKey] = data
	s.mu.Unlock()
	return data, nil
}

// Exists reports whether a successful article is stored for the issue
func (s *Service) Exists(ctx context.Context, issueKey string) (bool, error) {
	data, err := s.Get(ctx, issueKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return data.Status == types.ArticleSuccess, nil
}

// ApplyFeedback records a reviewer action on an article. Refine bumps the
// version; approve marks the article approved.
func (s *Service) ApplyFeedback(ctx context.Context, issueKey string, entry types.FeedbackEntry) (types.ArticleData, error) {
	s.feedbackMu.Lock()
	defer s.feedbackMu.Unlock()

	data, err := s.Get(ctx, issueKey)
	if err != nil {
		return types.ArticleData{}, err
	}
	if data.Article == nil {
		return types.ArticleData{}, ErrNoArticle
	}

	now := s.now().UnixMilli()
	if entry.Timestamp == 0 {
		entry.Timestamp = now
	}
	if entry.User == "" {
		entry.User = "System"
	}

	// Cached records share their map with readers; mutate a copy.
	article := maps.Clone(data.Article)
	history, _ := article["feedback_history"].([]interface{})
	history = append(append([]interface{}(nil), history...), map[string]interface{}{
		"feedback":  entry.Feedback,
		"action":    entry.Action,
		"timestamp": entry.Timestamp,
		"user":      entry.User,
	})
	article["feedback_history"] = history

	switch entry.Action {
	case ActionRefine:
		data.Version++
		article["version"] = data.Version
	case ActionApprove:
		article["approval_status"] = "approved"
		article["approved_at"] = now
	}
	data.Article = article

	if err := s.put(ctx, data); err != nil {
		return data, err
	}
	logging.Info("applied article feedback", "issue", issueKey, "action", entry.Action, "version", data.Version)
	return data, nil
}

func articleVersion(article map[string]interface{}) int {
	switch v := article["version"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 1
}
