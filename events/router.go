// Package events routes Jira issue events: every event updates the dashboard
// ledger and the AI backend, and newly resolved issues trigger exactly one
// knowledge-base article generation.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jurix/jira"
	"jurix/logging"
	"jurix/types"
)

// Recorder stores dashboard updates
type Recorder interface {
	RecordUpdate(projectKey string, event types.UpdateEvent)
}

// Backend is the AI backend
type Backend interface {
	NotifyUpdate(ctx context.Context, projectKey string, eventType types.EventType, issue types.IssueSnapshot)
	RequestArticleGeneration(ctx context.Context, issue types.IssueSnapshot) types.GenerationOutcome
}

// Gate is the generation dedup state machine
type Gate interface {
	HasBeenGenerated(ctx context.Context, issueKey string) bool
	TryMarkInProgress(ctx context.Context, issueKey string) bool
	ClearInProgress(ctx context.Context, issueKey string)
	MarkGenerated(ctx context.Context, issueKey string)
}

// ArticleSink stores generation results
type ArticleSink interface {
	Store(ctx context.Context, issueKey string, article map[string]interface{}) error
	StoreError(ctx context.Context, issueKey, message string) error
	CreateUserNotification(recipient, issueKey, issueSummary string) (types.Notification, bool)
}

// Commenter posts generation progress on the issue
type Commenter interface {
	GenerationStarted(ctx context.Context, issueKey string)
	GenerationComplete(ctx context.Context, issueKey, title string)
	GenerationFailed(ctx context.Context, issueKey string)
	GenerationTimedOut(ctx context.Context, issueKey string)
}

// Deps are the router collaborators. Comments is optional.
type Deps struct {
	Ledger   Recorder
	Backend  Backend
	Tracker  Gate
	Articles ArticleSink
	Comments Commenter
}

// Config is the router policy
type Config struct {
	ResolvedStatuses   []string
	EligibleIssueTypes []string
	Workers            int
	QueueSize          int
}

// TriggerResult is the outcome of a manual generation request
type TriggerResult string

const (
	TriggerStarted          TriggerResult = "started"
	TriggerAlreadyGenerated TriggerResult = "already_generated"
	TriggerInProgress       TriggerResult = "in_progress"
)

// ErrQueueFull is returned when the worker pool cannot take more work
var ErrQueueFull = errors.New("worker queue is full")

// Router dispatches issue events to the ledger, the backend and generation
type Router struct {
	deps     Deps
	resolved map[string]struct{}
	eligible map[string]struct{}
	pool     *Pool
	startup  time.Time
	now      func() time.Time

	mu   sync.Mutex
	subs []Subscription
}

// NewRouter creates a router and starts its worker pool. The startup time
// used by the pre-existing resolution guard is fixed here.
func NewRouter(deps Deps, cfg Config) *Router {
	return newRouter(deps, cfg, time.Now)
}

func newRouter(deps Deps, cfg Config, now func() time.Time) *Router {
	return &Router{
		deps:     deps,
		resolved: lowerSet(cfg.ResolvedStatuses),
		eligible: lowerSet(cfg.EligibleIssueTypes),
		pool:     NewPool(cfg.Workers, cfg.QueueSize),
		startup:  now(),
		now:      now,
	}
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

// StartupTime is when this listener session began
func (r *Router) StartupTime() time.Time {
	return r.startup
}

// Pending returns the number of queued tasks
func (r *Router) Pending() int {
	return r.pool.Pending()
}

// Start subscribes to every bus. If one subscription fails, those already
// acquired are released.
func (r *Router) Start(buses ...Bus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var acquired []Subscription
	for _, bus := range buses {
		sub, err := bus.Subscribe(r.OnEvent)
		if err != nil {
			for _, s := range acquired {
				_ = s.Close()
			}
			return fmt.Errorf("failed to subscribe to event bus: %w", err)
		}
		acquired = append(acquired, sub)
	}
	r.subs = append(r.subs, acquired...)
	logging.Info("event router started", "buses", len(buses), "startup", r.startup.UnixMilli())
	return nil
}

// Stop releases all subscriptions, then drains the worker pool
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.pool.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool did not drain: %w", err))
	}
	logging.Info("event router stopped")
	return errors.Join(errs...)
}

// OnEvent handles one issue event. It never blocks on I/O: the dashboard
// update and any generation run on the worker pool.
func (r *Router) OnEvent(_ context.Context, ev *IssueEvent) {
	if ev == nil {
		return
	}
	snap, ok := jira.Snapshot(ev.Issue)
	if !ok {
		logging.Debug("discarding event without issue key or project")
		return
	}
	eventType := ev.Type()

	update := types.UpdateEvent{
		IssueKey:  snap.Key,
		Status:    snap.Status,
		EventType: eventType,
		Timestamp: r.now().UnixMilli(),
	}
	if !r.pool.TrySubmit(func(ctx context.Context) { r.publishUpdate(ctx, snap, update) }) {
		logging.Warn("worker queue full, dropping dashboard update", "issue", snap.Key)
	}

	if !r.eligibleForGeneration(snap, eventType) {
		return
	}

	if !r.pool.TrySubmit(func(ctx context.Context) { r.claimAndGenerate(ctx, snap) }) {
		logging.Warn("worker queue full, dropping article generation", "issue", snap.Key)
	}
}

func (r *Router) publishUpdate(ctx context.Context, snap types.IssueSnapshot, update types.UpdateEvent) {
	r.deps.Ledger.RecordUpdate(snap.ProjectKey, update)
	r.deps.Backend.NotifyUpdate(ctx, snap.ProjectKey, update.EventType, snap)
}

// eligibleForGeneration runs the checks that need no storage access
func (r *Router) eligibleForGeneration(snap types.IssueSnapshot, eventType types.EventType) bool {
	if !r.IsResolvedStatus(snap.Status) {
		return false
	}

	// Issues already resolved before this session started are backfill, not
	// fresh resolutions, unless the event itself is the resolving transition.
	if !eventType.IsTransition() {
		if snap.ResolvedAt.IsZero() || snap.ResolvedAt.Before(r.startup) {
			logging.Debug("skipping issue resolved before startup", "issue", snap.Key, "type", eventType)
			return false
		}
	}

	if len(r.eligible) > 0 {
		if _, ok := r.eligible[strings.ToLower(snap.Type)]; !ok {
			logging.Debug("skipping ineligible issue type", "issue", snap.Key, "issueType", snap.Type)
			return false
		}
	}
	return true
}

// IsResolvedStatus reports whether status is one of the resolved statuses
func (r *Router) IsResolvedStatus(status string) bool {
	_, ok := r.resolved[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// claim runs the storage-backed checks: already generated, then the claim
func (r *Router) claim(ctx context.Context, issueKey string) (TriggerResult, bool) {
	if r.deps.Tracker.HasBeenGenerated(ctx, issueKey) {
		logging.Debug("article already generated", "issue", issueKey)
		return TriggerAlreadyGenerated, false
	}
	if !r.deps.Tracker.TryMarkInProgress(ctx, issueKey) {
		logging.Debug("article generation already in progress", "issue", issueKey)
		return TriggerInProgress, false
	}
	return TriggerStarted, true
}

func (r *Router) claimAndGenerate(ctx context.Context, snap types.IssueSnapshot) {
	if _, ok := r.claim(ctx, snap.Key); !ok {
		return
	}
	r.generate(ctx, snap)
}

// TriggerGeneration starts generation for an issue on request, skipping the
// resolved-status and startup checks. The claim is taken before returning.
func (r *Router) TriggerGeneration(ctx context.Context, snap types.IssueSnapshot) (TriggerResult, error) {
	result, ok := r.claim(ctx, snap.Key)
	if !ok {
		return result, nil
	}
	if !r.pool.TrySubmit(func(ctx context.Context) { r.generate(ctx, snap) }) {
		r.deps.Tracker.ClearInProgress(context.WithoutCancel(ctx), snap.Key)
		return "", ErrQueueFull
	}
	logging.Info("manual article generation queued", "issue", snap.Key)
	return TriggerStarted, nil
}

// generate runs one generation while holding the claim. The claim is always
// released: marked generated on success, cleared otherwise, including when
// the work panics.
func (r *Router) generate(ctx context.Context, snap types.IssueSnapshot) {
	releaseCtx := context.WithoutCancel(ctx)
	generated := false
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("article generation panicked", "issue", snap.Key, "panic", rec)
		}
		if generated {
			r.deps.Tracker.MarkGenerated(releaseCtx, snap.Key)
		} else {
			r.deps.Tracker.ClearInProgress(releaseCtx, snap.Key)
		}
	}()

	logging.Info("starting article generation", "issue", snap.Key, "status", snap.Status)
	if r.deps.Comments != nil {
		r.deps.Comments.GenerationStarted(ctx, snap.Key)
	}

	started := r.now()
	outcome := r.deps.Backend.RequestArticleGeneration(ctx, snap)
	elapsed := r.now().Sub(started)

	if !outcome.Success {
		logging.Warn("article generation failed", "issue", snap.Key,
			"timedOut", outcome.TimedOut, "error", outcome.ErrorMessage, "elapsed", elapsed)
		if err := r.deps.Articles.StoreError(releaseCtx, snap.Key, outcome.ErrorMessage); err != nil {
			logging.Error("failed to store generation error", "issue", snap.Key, "error", err)
		}
		if r.deps.Comments != nil {
			if outcome.TimedOut {
				r.deps.Comments.GenerationTimedOut(releaseCtx, snap.Key)
			} else {
				r.deps.Comments.GenerationFailed(releaseCtx, snap.Key)
			}
		}
		return
	}

	if err := r.deps.Articles.Store(releaseCtx, snap.Key, outcome.Article); err != nil {
		logging.Error("failed to persist article", "issue", snap.Key, "error", err)
	}
	generated = true
	logging.Info("article generated", "issue", snap.Key, "elapsed", elapsed)

	r.deps.Articles.CreateUserNotification(snap.Assignee, snap.Key, snap.Summary)
	if r.deps.Comments != nil {
		title, _ := outcome.Article["title"].(string)
		r.deps.Comments.GenerationComplete(releaseCtx, snap.Key, title)
	}
}
