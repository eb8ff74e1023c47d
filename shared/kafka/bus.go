package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"jurix/events"
	"jurix/logging"
)

// BusConfig selects the topic and consumer group issue events are read from
type BusConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Bus is an events.Bus backed by a Kafka consumer group. Each subscription
// joins the group with its own consumer.
type Bus struct {
	config   BusConfig
	newGroup func(brokers []string, groupID string) (sarama.ConsumerGroup, error)
}

// NewBus creates a Kafka event bus
func NewBus(config BusConfig) *Bus {
	return &Bus{
		config: config,
		newGroup: func(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
			return sarama.NewConsumerGroup(brokers, groupID, newSaramaConfig())
		},
	}
}

// IssueEventHandler adapts an events.Handler to Kafka messages. Undecodable
// messages and events without an issue are marked and skipped.
func IssueEventHandler(h events.Handler) *TypedMessageHandler[events.IssueEvent] {
	return &TypedMessageHandler[events.IssueEvent]{
		Validate: func(msg *events.IssueEvent) bool {
			if msg.Issue == nil {
				logging.Debug("skipping kafka event without issue")
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *events.IssueEvent) error {
			h(ctx, msg)
			return nil
		},
		AlwaysMark: true,
	}
}

// Subscribe joins the consumer group and delivers every event to h until the
// subscription is closed.
func (b *Bus) Subscribe(h events.Handler) (events.Subscription, error) {
	group, err := b.newGroup(b.config.Brokers, b.config.GroupID)
	if err != nil {
		return nil, err
	}

	consumer := newConsumer(group, ConsumerConfig{
		Topic:   b.config.Topic,
		GroupID: b.config.GroupID,
		Handler: IssueEventHandler(h),
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	return events.NewSubscription(func() error {
		cancel()
		return consumer.Close()
	}), nil
}
