// Package config provides centralized configuration management for the service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the service.
type Config struct {
	Port     string
	LogLevel string
	Backend  BackendConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Jira     JiraConfig
	S3       S3Config
	Router   RouterConfig
	Tracker  TrackerConfig
	Ledger   LedgerConfig
}

// BackendConfig holds the AI backend settings.
type BackendConfig struct {
	URL               string
	Token             string
	NotifyTimeout     time.Duration
	GenerationTimeout time.Duration
}

// RedisConfig holds the generation tracker store settings.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the event bus settings. No brokers disables the bus.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// JiraConfig holds the Jira REST credentials used for issue lookups and comments.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// Enabled reports whether all Jira credentials are present.
func (j JiraConfig) Enabled() bool {
	return j.URL != "" && j.Username != "" && j.Token != ""
}

// S3Config holds the optional article persistence bucket.
type S3Config struct {
	Bucket       string
	Region       string
	Profile      string
	Prefix       string
	UsePathStyle bool
}

// RouterConfig holds the event router policy.
type RouterConfig struct {
	ResolvedStatuses   []string
	EligibleIssueTypes []string
	Workers            int
	QueueSize          int
}

// TrackerConfig holds the dedup marker lifetimes.
type TrackerConfig struct {
	InProgressTTL time.Duration
	GeneratedTTL  time.Duration
	SweepSchedule string
}

// LedgerConfig holds the update ledger limits.
type LedgerConfig struct {
	Cap int
}

// Load reads configuration from the environment and an optional jurix.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("jurix")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/jurix")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	cfg := &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log.level"),
		Backend: BackendConfig{
			URL:               strings.TrimRight(v.GetString("backend.url"), "/"),
			Token:             v.GetString("backend.token"),
			NotifyTimeout:     v.GetDuration("backend.notify_timeout"),
			GenerationTimeout: v.GetDuration("backend.generation_timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Jira: JiraConfig{
			URL:      v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		S3: S3Config{
			Bucket:       strings.TrimSpace(v.GetString("s3.bucket")),
			Region:       strings.TrimSpace(v.GetString("s3.region")),
			Profile:      strings.TrimSpace(v.GetString("s3.profile")),
			Prefix:       normalizePrefix(v.GetString("s3.prefix")),
			UsePathStyle: v.GetBool("s3.use_path_style"),
		},
		Router: RouterConfig{
			ResolvedStatuses:   splitList(v.GetString("router.resolved_statuses")),
			EligibleIssueTypes: splitList(v.GetString("router.eligible_issue_types")),
			Workers:            v.GetInt("router.workers"),
			QueueSize:          v.GetInt("router.queue_size"),
		},
		Tracker: TrackerConfig{
			InProgressTTL: v.GetDuration("tracker.in_progress_ttl"),
			GeneratedTTL:  v.GetDuration("tracker.generated_ttl"),
			SweepSchedule: v.GetString("tracker.sweep_schedule"),
		},
		Ledger: LedgerConfig{
			Cap: v.GetInt("ledger.cap"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("backend.notify_timeout", DefaultNotifyTimeout)
	v.SetDefault("backend.generation_timeout", DefaultGenerationTimeout)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.topic", DefaultKafkaTopic)
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("router.resolved_statuses", strings.Join(DefaultResolvedStatuses, ","))
	v.SetDefault("router.workers", DefaultWorkerCount)
	v.SetDefault("router.queue_size", DefaultQueueSize)
	v.SetDefault("tracker.in_progress_ttl", DefaultInProgressTTL)
	v.SetDefault("tracker.generated_ttl", DefaultGeneratedTTL)
	v.SetDefault("tracker.sweep_schedule", DefaultSweepSchedule)
	v.SetDefault("ledger.cap", DefaultLedgerCap)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("port", "PORT")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("backend.url", "BACKEND_URL")
	v.BindEnv("backend.token", "BACKEND_TOKEN")
	v.BindEnv("backend.notify_timeout", "NOTIFY_TIMEOUT")
	v.BindEnv("backend.generation_timeout", "GENERATION_TIMEOUT")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASS")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS", "KAFKA_BOOTSTRAP_SERVERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.profile", "S3_PROFILE")
	v.BindEnv("s3.prefix", "S3_PREFIX")
	v.BindEnv("s3.use_path_style", "S3_USE_PATH_STYLE")
	v.BindEnv("router.resolved_statuses", "RESOLVED_STATUSES")
	v.BindEnv("router.eligible_issue_types", "ELIGIBLE_ISSUE_TYPES")
	v.BindEnv("router.workers", "WORKER_COUNT")
	v.BindEnv("router.queue_size", "QUEUE_SIZE")
	v.BindEnv("tracker.in_progress_ttl", "IN_PROGRESS_TTL")
	v.BindEnv("tracker.generated_ttl", "GENERATED_TTL")
	v.BindEnv("tracker.sweep_schedule", "SWEEP_SCHEDULE")
	v.BindEnv("ledger.cap", "LEDGER_CAP")
}

// Validate ensures every value the service depends on is usable.
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("BACKEND_URL %q is not an absolute URL", c.Backend.URL))
	}
	if c.Backend.NotifyTimeout <= 0 {
		problems = append(problems, "NOTIFY_TIMEOUT must be positive")
	}
	if c.Backend.GenerationTimeout <= 0 {
		problems = append(problems, "GENERATION_TIMEOUT must be positive")
	}
	if len(c.Router.ResolvedStatuses) == 0 {
		problems = append(problems, "RESOLVED_STATUSES must name at least one status")
	}
	if c.Router.Workers <= 0 {
		problems = append(problems, "WORKER_COUNT must be positive")
	}
	if c.Router.QueueSize <= 0 {
		problems = append(problems, "QUEUE_SIZE must be positive")
	}
	if c.Tracker.InProgressTTL <= 0 {
		problems = append(problems, "IN_PROGRESS_TTL must be positive")
	}
	if c.Tracker.GeneratedTTL <= 0 {
		problems = append(problems, "GENERATED_TTL must be positive")
	}
	if c.Ledger.Cap <= 0 {
		problems = append(problems, "LEDGER_CAP must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		problems = append(problems, "KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	var missingJira []string
	if c.Jira.URL != "" || c.Jira.Username != "" || c.Jira.Token != "" {
		if c.Jira.URL == "" {
			missingJira = append(missingJira, "JIRA_URL")
		}
		if c.Jira.Username == "" {
			missingJira = append(missingJira, "JIRA_USERNAME")
		}
		if c.Jira.Token == "" {
			missingJira = append(missingJira, "JIRA_TOKEN")
		}
	}
	if len(missingJira) > 0 {
		problems = append(problems, fmt.Sprintf("missing required environment variables: %v", missingJira))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	return strings.Trim(prefix, "/") + "/"
}
