package api

import (
	"context"
	"net/http"
	"time"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/gin-gonic/gin"

	"jurix/events"
	"jurix/logging"
	"jurix/types"
)

// UpdatesReader serves the dashboard update ledger
type UpdatesReader interface {
	GetUpdatesSince(projectKey string, since int64) types.UpdatesSince
	GetProjectSummary(projectKey string) types.ProjectSummary
}

// ArticleStore serves stored articles and user notifications
type ArticleStore interface {
	Get(ctx context.Context, issueKey string) (types.ArticleData, error)
	ApplyFeedback(ctx context.Context, issueKey string, entry types.FeedbackEntry) (types.ArticleData, error)
	Notifications(user string) []types.Notification
	MarkNotificationRead(user, id string) bool
}

// GenerationTracker exposes the generation state machine
type GenerationTracker interface {
	State(ctx context.Context, issueKey string) (types.GenerationStatus, error)
	SweepStale(ctx context.Context, maxAge time.Duration) (int, error)
	Degraded() bool
	InProgressTTL() time.Duration
}

// GenerationTrigger starts generation on request
type GenerationTrigger interface {
	TriggerGeneration(ctx context.Context, snap types.IssueSnapshot) (events.TriggerResult, error)
	Pending() int
}

// IssueFetcher loads issues from Jira
type IssueFetcher interface {
	FetchIssue(ctx context.Context, issueKey string) (*gojira.Issue, error)
}

// EventPublisher accepts events received on the webhook
type EventPublisher interface {
	Publish(ctx context.Context, ev *events.IssueEvent) int
}

// HealthChecker checks the AI backend
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators behind the HTTP API. Issues and Backend are optional.
type Deps struct {
	Updates  UpdatesReader
	Articles ArticleStore
	Tracker  GenerationTracker
	Trigger  GenerationTrigger
	Issues   IssueFetcher
	Webhook  EventPublisher
	Backend  HealthChecker
	Now      func() time.Time
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	RegisterHealthRoutes(r, d)
	RegisterUpdateRoutes(r, d.Updates, d.Now)
	RegisterArticleRoutes(r, d)
	RegisterNotificationRoutes(r, d.Articles)
	RegisterAdminRoutes(r, d.Tracker)
	RegisterWebhookRoutes(r, d.Webhook)
	return r
}

// requestLogger logs each request at debug level
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func errorResponse(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// Server wraps the HTTP listener so it can be shut down gracefully
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server for handler on :port
func NewServer(handler http.Handler, port string) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens in the background. Listener errors are sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	logging.Info("starting API server", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
