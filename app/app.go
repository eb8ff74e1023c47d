// Package app wires the listener: configuration in, HTTP server, event
// buses, generation router and the stale claim sweep out.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/robfig/cron/v3"

	"jurix/api"
	"jurix/articles"
	"jurix/config"
	"jurix/events"
	"jurix/jira"
	"jurix/ledger"
	"jurix/logging"
	"jurix/notifier"
	"jurix/shared/kafka"
	"jurix/tracker"
)

// App owns every long-lived component of the service
type App struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	tracker  *tracker.Tracker
	articles *articles.Service
	backend  *notifier.Client
	jira     *jira.Client
	router   *events.Router
	webhook  *events.LocalBus
	buses    []events.Bus
	handler  http.Handler
	server   *api.Server
	cron     *cron.Cron
}

// New builds the service from configuration. Redis, S3, Jira and Kafka are
// optional; missing ones are logged and skipped.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:     cfg,
		ledger:  ledger.New(cfg.Ledger.Cap),
		backend: notifier.New(cfg.Backend),
		webhook: events.NewLocalBus(),
		cron:    cron.New(),
	}

	var store articles.Backend
	if cfg.S3.Bucket != "" {
		s3Backend, err := articles.NewS3Backend(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize article storage: %w", err)
		}
		logging.Info("persisting articles to s3", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
		store = s3Backend
	} else {
		logging.Info("S3_BUCKET not set, articles are kept in memory")
	}
	a.articles = articles.New(store)

	a.tracker = tracker.Open(ctx, cfg.Redis,
		tracker.WithTTLs(cfg.Tracker.InProgressTTL, cfg.Tracker.GeneratedTTL),
		tracker.WithArticleLookup(a.articles.Exists))

	deps := events.Deps{
		Ledger:   a.ledger,
		Backend:  a.backend,
		Tracker:  a.tracker,
		Articles: a.articles,
	}
	if cfg.Jira.Enabled() {
		client, err := jira.NewClient(cfg.Jira)
		if err != nil {
			return nil, err
		}
		a.jira = client
		deps.Comments = client
	} else {
		logging.Info("jira credentials not set, progress comments and issue lookups disabled")
	}

	a.router = events.NewRouter(deps, events.Config{
		ResolvedStatuses:   cfg.Router.ResolvedStatuses,
		EligibleIssueTypes: cfg.Router.EligibleIssueTypes,
		Workers:            cfg.Router.Workers,
		QueueSize:          cfg.Router.QueueSize,
	})

	a.buses = []events.Bus{a.webhook}
	if len(cfg.Kafka.Brokers) > 0 {
		a.buses = append(a.buses, kafka.NewBus(kafka.BusConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}))
	}

	apiDeps := api.Deps{
		Updates:  a.ledger,
		Articles: a.articles,
		Tracker:  a.tracker,
		Trigger:  a.router,
		Webhook:  a.webhook,
		Backend:  a.backend,
	}
	if a.jira != nil {
		apiDeps.Issues = a.jira
	}
	a.handler = api.NewRouter(apiDeps)
	a.server = api.NewServer(a.handler, cfg.Port)
	return a, nil
}

// Handler returns the HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Start records the session startup, recovers claims left by a previous
// process, subscribes to the buses and starts serving. Listener errors are
// sent on the returned channel.
func (a *App) Start(ctx context.Context) (<-chan error, error) {
	if err := a.tracker.RecordStartup(ctx, a.router.StartupTime()); err != nil {
		logging.Warn("failed to record startup time", "error", err)
	}
	a.sweep(ctx)

	if err := a.router.Start(a.buses...); err != nil {
		return nil, err
	}
	if err := a.startSweep(a.cfg.Tracker.SweepSchedule); err != nil {
		_ = a.router.Stop(ctx)
		return nil, err
	}
	return a.server.Start(), nil
}

// startSweep schedules the stale claim sweep
func (a *App) startSweep(schedule string) error {
	if schedule == "" {
		logging.Info("stale claim sweep disabled")
		return nil
	}
	if _, err := a.cron.AddFunc(schedule, func() { a.sweep(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule stale claim sweep: %w", err)
	}
	a.cron.Start()
	logging.Info("stale claim sweep scheduled", "schedule", schedule)
	return nil
}

func (a *App) sweep(ctx context.Context) {
	removed, err := a.tracker.SweepStale(ctx, a.tracker.InProgressTTL())
	if err != nil {
		logging.Error("stale claim sweep failed", "error", err)
		return
	}
	if removed > 0 {
		logging.Info("stale claim sweep finished", "removed", removed)
	}
}

// Shutdown stops the sweep, the HTTP server and the router, then closes the
// tracker store. Queued generations get until ctx ends to finish.
func (a *App) Shutdown(ctx context.Context) error {
	select {
	case <-a.cron.Stop().Done():
	case <-ctx.Done():
	}

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.router.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("event router: %w", err))
	}
	if err := a.tracker.Close(); err != nil {
		errs = append(errs, fmt.Errorf("tracker: %w", err))
	}
	return errors.Join(errs...)
}
