package config

import "time"

// Backend Constants
const (
	// DefaultBackendURL is the AI backend the plugin talked to by default
	DefaultBackendURL = "http://localhost:5001"

	// DefaultNotifyTimeout bounds the fire-and-forget dashboard notification
	DefaultNotifyTimeout = 5 * time.Second

	// DefaultGenerationTimeout bounds a single article generation call (LLM backed)
	DefaultGenerationTimeout = 10 * time.Minute
)

// Tracker Constants
const (
	// DefaultInProgressTTL is how long a generation claim survives without release
	DefaultInProgressTTL = 15 * time.Minute

	// DefaultGeneratedTTL bounds how long the generated marker is remembered
	DefaultGeneratedTTL = 30 * 24 * time.Hour

	// DefaultSweepSchedule is the cron schedule of the stale claim sweep
	DefaultSweepSchedule = "@every 5m"
)

// Ledger Constants
const (
	// DefaultLedgerCap is the number of update events retained per project
	DefaultLedgerCap = 100

	// SummaryRecentUpdates is the number of events returned in a project summary
	SummaryRecentUpdates = 50

	// DefaultUpdatesWindow is used when a dashboard poll omits "since"
	DefaultUpdatesWindow = 5 * time.Minute
)

// Worker Constants
const (
	// DefaultWorkerCount is the number of event workers
	DefaultWorkerCount = 8

	// DefaultQueueSize is the number of tasks buffered before events are dropped
	DefaultQueueSize = 256
)

// Bus Constants
const (
	// DefaultKafkaTopic carries Jira issue events
	DefaultKafkaTopic = "jira-issue-events"

	// DefaultKafkaGroupID is the consumer group of the listener
	DefaultKafkaGroupID = "jurix-listener"
)

// DefaultResolvedStatuses are the statuses that count as a resolution
var DefaultResolvedStatuses = []string{"Done", "Resolved", "Closed", "Complete", "Fixed"}
