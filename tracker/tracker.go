// Package tracker implements the per-issue article generation dedup state
// machine: absent -> in_progress -> generated, with expiring claims.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"jurix/config"
	"jurix/logging"
	"jurix/types"
)

// ArticleLookup reports whether a successful article is already stored for an issue
type ArticleLookup func(ctx context.Context, issueKey string) (bool, error)

// Tracker gates article generation so each issue is generated at most once
type Tracker struct {
	store         Store
	degraded      bool
	inProgressTTL time.Duration
	generatedTTL  time.Duration
	articleExists ArticleLookup
	now           func() time.Time
}

// Option customizes a Tracker
type Option func(*Tracker)

// WithTTLs overrides the claim and generated marker lifetimes
func WithTTLs(inProgress, generated time.Duration) Option {
	return func(t *Tracker) {
		if inProgress > 0 {
			t.inProgressTTL = inProgress
		}
		if generated > 0 {
			t.generatedTTL = generated
		}
	}
}

// WithArticleLookup makes HasBeenGenerated also consult stored articles
func WithArticleLookup(lookup ArticleLookup) Option {
	return func(t *Tracker) {
		t.articleExists = lookup
	}
}

// WithClock replaces time.Now, used for claim timestamps and sweeps
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates a tracker over the given store
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:         store,
		inProgressTTL: config.DefaultInProgressTTL,
		generatedTTL:  config.DefaultGeneratedTTL,
		now:           time.Now,
	}
	_, t.degraded = store.(*MemoryStore)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open selects the store once: Redis when enabled and reachable, otherwise
// the in-memory fallback for the rest of the process lifetime.
func Open(ctx context.Context, cfg config.RedisConfig, opts ...Option) *Tracker {
	if !cfg.Enabled {
		logging.Info("redis disabled, tracking article generation in memory")
		return New(NewMemoryStore(), opts...)
	}

	store, err := NewRedisStore(ctx, cfg)
	if err != nil {
		logging.Warn("redis unavailable, falling back to in-memory generation tracking",
			"addr", cfg.Addr, "error", err)
		return New(NewMemoryStore(), opts...)
	}

	logging.Info("tracking article generation in redis", "addr", cfg.Addr)
	return New(store, opts...)
}

// Degraded reports whether the process-local memory store is active
func (t *Tracker) Degraded() bool {
	return t.degraded
}

// InProgressTTL returns the claim lifetime
func (t *Tracker) InProgressTTL() time.Duration {
	return t.inProgressTTL
}

// HasBeenGenerated reports whether an article exists for the issue. Storage
// errors count as generated so a flaky store never causes duplicate generation.
func (t *Tracker) HasBeenGenerated(ctx context.Context, issueKey string) bool {
	exists, err := t.store.Exists(ctx, generatedKey(issueKey))
	if err != nil {
		logging.Error("failed to check generated marker, assuming generated",
			"issue", issueKey, "error", err)
		return true
	}
	if exists || t.articleExists == nil {
		return exists
	}

	stored, err := t.articleExists(ctx, issueKey)
	if err != nil {
		logging.Error("failed to check stored article, assuming generated",
			"issue", issueKey, "error", err)
		return true
	}
	return stored
}

// TryMarkInProgress claims the issue. Only the caller that receives true may
// generate; it must later call ClearInProgress or MarkGenerated. A claim is
// refused while the generated marker is present.
func (t *Tracker) TryMarkInProgress(ctx context.Context, issueKey string) bool {
	now := strconv.FormatInt(t.now().UnixMilli(), 10)
	ok, err := t.store.SetIfAbsent(ctx, inProgressKey(issueKey), now, t.inProgressTTL, generatedKey(issueKey))
	if err != nil {
		logging.Error("failed to claim generation", "issue", issueKey, "error", err)
		return false
	}
	return ok
}

// ClearInProgress releases the claim without marking the issue generated
func (t *Tracker) ClearInProgress(ctx context.Context, issueKey string) {
	if err := t.store.Delete(ctx, inProgressKey(issueKey)); err != nil {
		logging.Error("failed to clear generation claim", "issue", issueKey, "error", err)
	}
}

// MarkGenerated sets the generated marker and releases the claim together
func (t *Tracker) MarkGenerated(ctx context.Context, issueKey string) {
	now := strconv.FormatInt(t.now().UnixMilli(), 10)
	err := t.store.SetAndDelete(ctx, generatedKey(issueKey), now, t.generatedTTL, inProgressKey(issueKey))
	if err != nil {
		logging.Error("failed to mark article generated", "issue", issueKey, "error", err)
	}
}

// SweepStale deletes claims older than maxAge and returns how many were
// removed. A claim re-taken after the scan holds a new timestamp and survives.
func (t *Tracker) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	claims, err := t.store.ScanPrefix(ctx, InProgressPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list generation claims: %w", err)
	}

	cutoff := t.now().Add(-maxAge).UnixMilli()
	removed := 0
	for key, val := range claims {
		ts, err := strconv.ParseInt(val, 10, 64)
		if err == nil && ts >= cutoff {
			continue
		}
		ok, err := t.store.DeleteIfValue(ctx, key, val)
		if err != nil {
			return removed, fmt.Errorf("failed to delete stale claim %s: %w", key, err)
		}
		if ok {
			removed++
			logging.Info("cleared stale generation claim", "issue", strings.TrimPrefix(key, InProgressPrefix))
		}
	}
	return removed, nil
}

// RecordStartup stores the listener startup time
func (t *Tracker) RecordStartup(ctx context.Context, startup time.Time) error {
	return t.store.Set(ctx, StartupTimeKey, strconv.FormatInt(startup.UnixMilli(), 10), 0)
}

// State reads the current generation state of an issue
func (t *Tracker) State(ctx context.Context, issueKey string) (types.GenerationStatus, error) {
	status := types.GenerationStatus{IssueKey: issueKey, State: types.StateAbsent}

	val, ok, err := t.store.Get(ctx, generatedKey(issueKey))
	if err != nil {
		return status, fmt.Errorf("failed to read generated marker: %w", err)
	}
	if ok {
		status.State = types.StateGenerated
		status.Since, _ = strconv.ParseInt(val, 10, 64)
		return status, nil
	}

	val, ok, err = t.store.Get(ctx, inProgressKey(issueKey))
	if err != nil {
		return status, fmt.Errorf("failed to read generation claim: %w", err)
	}
	if ok {
		status.State = types.StateInProgress
		status.Since, _ = strconv.ParseInt(val, 10, 64)
	}
	return status, nil
}

// Close releases the underlying store
func (t *Tracker) Close() error {
	return t.store.Close()
}
