// Package consumer polls the events topic and hands each record to the
// classifier and the storage router.
package consumer

import (
	"context"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Consumer defines the Kafka consumer operations used by the pipeline.
// *kafka.Consumer satisfies it directly.
type Consumer interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	Poll(timeoutMs int) kafka.Event
	CommitMessage(msg *kafka.Message) ([]kafka.TopicPartition, error)
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	Close() error
}

// Classifier turns raw payloads into routed records
type Classifier interface {
	Classify(raw []byte) (*events.Record, error)
}

// Sink persists routed records
type Sink interface {
	Persist(ctx context.Context, rec *events.Record) error
	CollectionName(target events.Target) string
}

// RecordProcessor handles one polled record. A non-nil error is fatal for
// the loop; per-record failures are reported through the Outcome.
type RecordProcessor interface {
	Process(ctx context.Context, msg *kafka.Message) (Outcome, error)
}

// ClientFactory creates Kafka consumers
type ClientFactory interface {
	CreateConsumer(cfg config.KafkaConfig) (Consumer, error)
}
