package articles

import (
	"context"
	"errors"
	"sync"

	"jurix/types"
)

// ErrNotFound is returned when no article record exists for an issue
var ErrNotFound = errors.New("article not found")

// Backend persists article records beyond the in-process cache
type Backend interface {
	Save(ctx context.Context, data types.ArticleData) error
	Load(ctx context.Context, issueKey string) (types.ArticleData, error)
}

// MemoryBackend keeps records for the lifetime of the process
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]types.ArticleData
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]types.ArticleData)}
}

func (m *MemoryBackend) Save(_ context.Context, data types.ArticleData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[data.IssueKey] = data
	return nil
}

func (m *MemoryBackend) Load(_ context.Context, issueKey string) (types.ArticleData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[issueKey]
	if !ok {
		return types.ArticleData{}, ErrNotFound
	}
	return data, nil
}
