package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/Log-Tools/commerce-events-pipeline/internal/metrics"
	"github.com/Log-Tools/commerce-events-pipeline/internal/storage"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Outcome is the result of processing one record
type Outcome string

const (
	OutcomeInserted          Outcome = "inserted"
	OutcomeDecodeError       Outcome = Outcome(metrics.ReasonDecodeError)
	OutcomeUnrecognized      Outcome = Outcome(metrics.ReasonUnrecognizedEvent)
	OutcomeStorageWrite      Outcome = Outcome(metrics.ReasonStorageWrite)
	OutcomeStorageConnection Outcome = Outcome(metrics.ReasonStorageConnection)
	OutcomePanic             Outcome = Outcome(metrics.ReasonPanic)
)

// Processor classifies a record and persists it, logging one line per
// outcome. Every per-record failure is contained here.
type Processor struct {
	classifier Classifier
	sink       Sink
	metrics    metrics.Collector
	logger     *slog.Logger

	// maxConsecutiveFailures > 0 turns a run of connection failures into
	// a fatal error
	maxConsecutiveFailures int
	consecutiveFailures    int
}

// NewProcessor creates a processor; maxConsecutiveFailures of 0 never
// gives up on storage
func NewProcessor(classifier Classifier, sink Sink, collector metrics.Collector, maxConsecutiveFailures int) *Processor {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Processor{
		classifier:             classifier,
		sink:                   sink,
		metrics:                collector,
		logger:                 logging.WithComponent("processor"),
		maxConsecutiveFailures: maxConsecutiveFailures,
	}
}

// Process handles msg. The persist attempt runs on a context detached from
// ctx cancellation so a record already in flight when shutdown starts is
// still written; the sink's write timeout bounds it.
func (p *Processor) Process(ctx context.Context, msg *kafka.Message) (Outcome, error) {
	logger := p.logger.With(messageAttrs(msg)...)

	rec, err := p.classifier.Classify(msg.Value)
	if err != nil {
		var unrecognized *events.UnrecognizedEventError
		if errors.As(err, &unrecognized) {
			p.metrics.IncrementSkipped(metrics.ReasonUnrecognizedEvent)
			logger.Warn("skipping unrecognized event",
				"outcome", OutcomeUnrecognized,
				"event_type", unrecognized.EventType,
				"event_type_present", unrecognized.Present,
			)
			return OutcomeUnrecognized, nil
		}

		p.metrics.IncrementSkipped(metrics.ReasonDecodeError)
		logger.Warn("skipping malformed event",
			"outcome", OutcomeDecodeError,
			"error", err,
		)
		return OutcomeDecodeError, nil
	}

	collection := p.sink.CollectionName(rec.Target)
	logger = logger.With("event_type", rec.Event.Type(), "collection", collection)

	start := time.Now()
	err = p.sink.Persist(context.WithoutCancel(ctx), rec)
	p.metrics.RecordPersistLatency(time.Since(start))

	if err == nil {
		p.consecutiveFailures = 0
		p.metrics.IncrementPersisted(collection)
		logger.Info("event persisted", "outcome", OutcomeInserted)
		return OutcomeInserted, nil
	}

	var connErr *storage.ConnectionError
	if errors.As(err, &connErr) {
		p.consecutiveFailures++
		p.metrics.IncrementSkipped(metrics.ReasonStorageConnection)
		logger.Error("failed to persist event, storage unreachable",
			"outcome", OutcomeStorageConnection,
			"consecutive_failures", p.consecutiveFailures,
			"error", err,
		)
		if p.maxConsecutiveFailures > 0 && p.consecutiveFailures >= p.maxConsecutiveFailures {
			return OutcomeStorageConnection, &FatalError{Reason: "storage connection lost", Err: err}
		}
		return OutcomeStorageConnection, nil
	}

	// A rejected document proves the store is reachable
	p.consecutiveFailures = 0
	p.metrics.IncrementSkipped(metrics.ReasonStorageWrite)
	logger.Error("failed to persist event, document dropped",
		"outcome", OutcomeStorageWrite,
		"error", err,
	)
	return OutcomeStorageWrite, nil
}

func messageAttrs(msg *kafka.Message) []any {
	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}
	attrs := []any{
		"topic", topic,
		"partition", msg.TopicPartition.Partition,
		"offset", int64(msg.TopicPartition.Offset),
	}
	if len(msg.Key) == 0 {
		return attrs
	}
	// keys from other producers are logged as received
	if keyType, keyID, err := events.ParseMessageKey(string(msg.Key)); err == nil {
		return append(attrs, "key_type", string(keyType), "key_id", keyID)
	}
	return append(attrs, "key", string(msg.Key))
}
