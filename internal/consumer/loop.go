package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/Log-Tools/commerce-events-pipeline/internal/metrics"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Loop is the single sequential poll-process loop of a consumer process.
// Records of a partition are processed in delivery order; nothing is
// batched or run concurrently.
type Loop struct {
	consumer         Consumer
	processor        RecordProcessor
	pollTimeout      time.Duration
	commitAfterEvery bool
	metrics          metrics.Collector
	logger           *slog.Logger
}

// LoopOptions configures a Loop
type LoopOptions struct {
	PollTimeout time.Duration

	// CommitAfterPersist commits each record's offset once processing has
	// finished, whatever the outcome. When false the client's periodic
	// auto-commit is relied on.
	CommitAfterPersist bool

	Metrics metrics.Collector
}

// NewLoop creates a poll loop over a subscribed consumer
func NewLoop(consumer Consumer, processor RecordProcessor, opts LoopOptions) *Loop {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	return &Loop{
		consumer:         consumer,
		processor:        processor,
		pollTimeout:      opts.PollTimeout,
		commitAfterEvery: opts.CommitAfterPersist,
		metrics:          opts.Metrics,
		logger:           logging.WithComponent("consumer"),
	}
}

// Run polls until ctx is cancelled or a fatal error occurs. Cancellation
// is checked between polls, so Run returns at most one poll timeout plus
// the in-flight record's processing time after ctx is done. It returns
// nil on cancellation and *FatalError otherwise.
func (l *Loop) Run(ctx context.Context) error {
	timeoutMs := int(l.pollTimeout / time.Millisecond)
	l.logger.Info("polling for events", "poll_timeout", l.pollTimeout, "commit_after_persist", l.commitAfterEvery)

	for {
		if ctx.Err() != nil {
			l.logger.Info("context cancelled, stopping poll loop")
			return nil
		}

		event := l.consumer.Poll(timeoutMs)
		if event == nil {
			continue
		}

		if err := l.dispatch(ctx, event); err != nil {
			return err
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, event kafka.Event) error {
	switch e := event.(type) {
	case *kafka.Message:
		if e.TopicPartition.Error != nil {
			if kerr, ok := e.TopicPartition.Error.(kafka.Error); ok {
				return l.handleBrokerError(kerr)
			}
			l.metrics.IncrementBrokerErrors(false)
			l.logger.Warn("consumer error", "error", e.TopicPartition.Error)
			return nil
		}
		return l.handleMessage(ctx, e)
	case kafka.PartitionEOF:
		l.logger.Info("end of partition reached",
			"topic", topicOf(e.Topic),
			"partition", e.Partition,
			"offset", int64(e.Offset),
		)
	case kafka.Error:
		return l.handleBrokerError(e)
	case kafka.OffsetsCommitted:
		if e.Error != nil {
			l.logger.Warn("offset commit failed", "error", e.Error)
		} else {
			l.logger.Debug("offsets committed", "partitions", len(e.Offsets))
		}
	default:
		l.logger.Debug("ignoring consumer event", "event", fmt.Sprintf("%T", event))
	}
	return nil
}

func (l *Loop) handleBrokerError(err kafka.Error) error {
	if err.Code() == kafka.ErrPartitionEOF {
		l.logger.Info("end of partition reached", "detail", err.Error())
		return nil
	}
	if err.Code() == kafka.ErrTimedOut {
		return nil
	}

	if isFatalBrokerError(err) {
		l.metrics.IncrementBrokerErrors(true)
		l.logger.Error("fatal consumer error", "code", err.Code().String(), "error", err)
		return &FatalError{Reason: "broker error", Err: err}
	}

	l.metrics.IncrementBrokerErrors(false)
	l.logger.Warn("consumer error", "code", err.Code().String(), "error", err)
	return nil
}

// handleMessage processes one record. A panic in processing is recovered
// here and the record skipped.
func (l *Loop) handleMessage(ctx context.Context, msg *kafka.Message) (err error) {
	l.metrics.IncrementPolled()

	defer func() {
		if r := recover(); r != nil {
			l.metrics.IncrementSkipped(metrics.ReasonPanic)
			l.logger.Error("recovered from panic while processing record",
				append(messageAttrs(msg), "outcome", OutcomePanic, "panic", fmt.Sprint(r))...,
			)
			err = nil
			l.commit(msg)
		}
	}()

	if _, err := l.processor.Process(ctx, msg); err != nil {
		return err
	}
	l.commit(msg)
	return nil
}

func (l *Loop) commit(msg *kafka.Message) {
	if !l.commitAfterEvery {
		return
	}
	if _, err := l.consumer.CommitMessage(msg); err != nil {
		l.logger.Warn("failed to commit offset", append(messageAttrs(msg), "error", err)...)
	}
}

func topicOf(topic *string) string {
	if topic == nil {
		return ""
	}
	return *topic
}
