// Package service wires the consumer loop, the storage router and their
// clients into one supervised pipeline process.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/consumer"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/Log-Tools/commerce-events-pipeline/internal/metrics"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// StartupError reports a failure to reach a dependency before the first
// poll
type StartupError struct {
	Stage State
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed while %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Supervisor owns the lifecycle of one pipeline process
type Supervisor struct {
	cfg       *config.Config
	factory   consumer.ClientFactory
	openStore StoreOpener
	metrics   metrics.Collector
	logger    *slog.Logger

	state   atomic.Int32
	drained atomic.Bool

	mu       sync.Mutex
	consumer consumer.Consumer
	store    Store
	cancel   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// Option customises a Supervisor
type Option func(*Supervisor)

// WithClientFactory replaces the Kafka client factory
func WithClientFactory(factory consumer.ClientFactory) Option {
	return func(s *Supervisor) { s.factory = factory }
}

// WithStoreOpener replaces the MongoDB store
func WithStoreOpener(open StoreOpener) Option {
	return func(s *Supervisor) { s.openStore = open }
}

// WithMetrics sets the metrics collector
func WithMetrics(collector metrics.Collector) Option {
	return func(s *Supervisor) { s.metrics = collector }
}

// New creates a supervisor for an already validated configuration
func New(cfg *config.Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		factory:   &consumer.DefaultClientFactory{},
		openStore: OpenMongo,
		metrics:   metrics.Noop{},
		logger:    logging.WithComponent("supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setState(StateStarting)
	return s
}

// State returns the current lifecycle stage
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// setState moves to state. Once draining, only draining and closed are
// accepted; closed is final.
func (s *Supervisor) setState(state State) {
	var previous State
	for {
		previous = State(s.state.Load())
		if previous == StateClosed || (previous == StateDraining && state < StateDraining) {
			return
		}
		if s.state.CompareAndSwap(int32(previous), int32(state)) {
			break
		}
	}
	s.metrics.SetState(int(state))
	if previous != state {
		s.logger.Info("pipeline state changed", "from", previous.String(), "to", state.String())
	}
}

// Start connects the broker and the store and subscribes to the topic.
// Any failure is a *StartupError; resources acquired so far are released
// by Close.
func (s *Supervisor) Start(ctx context.Context) error {
	s.setState(StateConnectingBroker)
	c, err := s.factory.CreateConsumer(s.cfg.Kafka)
	if err != nil {
		return &StartupError{Stage: StateConnectingBroker, Err: fmt.Errorf("failed to create consumer: %w", err)}
	}
	s.mu.Lock()
	s.consumer = c
	s.mu.Unlock()

	if err := s.probeBroker(c); err != nil {
		return &StartupError{Stage: StateConnectingBroker, Err: err}
	}

	s.setState(StateConnectingStorage)
	store, err := s.openStore(ctx, s.cfg.Storage)
	if err != nil {
		return &StartupError{Stage: StateConnectingStorage, Err: err}
	}
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
	s.logger.Info("storage connected",
		"database", s.cfg.Storage.Database,
		"activity_collection", store.Router().CollectionName(events.TargetActivity),
		"orders_collection", store.Router().CollectionName(events.TargetOrders),
	)

	if err := c.SubscribeTopics([]string{s.cfg.Kafka.Topic}, nil); err != nil {
		return &StartupError{Stage: StateSubscribed, Err: fmt.Errorf("failed to subscribe to topic %s: %w", s.cfg.Kafka.Topic, err)}
	}
	s.setState(StateSubscribed)
	s.logger.Info("subscribed", "topic", s.cfg.Kafka.Topic, "consumer_group", s.cfg.Kafka.ConsumerGroup)
	return nil
}

// probeBroker fetches the topic's metadata within the connect timeout
func (s *Supervisor) probeBroker(c consumer.Consumer) error {
	topic := s.cfg.Kafka.Topic
	timeoutMs := int(s.cfg.Kafka.ConnectTimeout / time.Millisecond)

	md, err := c.GetMetadata(&topic, false, timeoutMs)
	if err != nil {
		return fmt.Errorf("failed to reach brokers %s: %w", s.cfg.Kafka.Brokers, err)
	}

	if tm, ok := md.Topics[topic]; ok {
		switch tm.Error.Code() {
		case kafka.ErrNoError:
			s.logger.Info("broker connected", "brokers", len(md.Brokers), "topic", topic, "partitions", len(tm.Partitions))
		case kafka.ErrTopicAuthorizationFailed:
			return fmt.Errorf("not authorized for topic %s: %w", topic, tm.Error)
		default:
			s.logger.Warn("topic metadata reported an error", "topic", topic, "error", tm.Error)
		}
	} else {
		s.logger.Warn("topic not present in metadata", "topic", topic, "brokers", len(md.Brokers))
	}
	return nil
}

// Run starts the pipeline and polls until ctx is cancelled, Drain is
// called or a fatal error occurs, then closes. It returns nil on a
// requested shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.drained.Load() {
		s.logger.Info("drain requested before start")
		return s.Close()
	}

	if err := s.Start(runCtx); err != nil {
		s.logger.Error("startup failed", "error", err)
		return errors.Join(err, s.Close())
	}
	if s.drained.Load() {
		s.logger.Info("drain requested during startup")
		return s.Close()
	}

	processor := consumer.NewProcessor(
		events.NewClassifier(s.cfg.Processing.StrictDecode),
		s.store.Router(),
		s.metrics,
		s.cfg.Storage.MaxConsecutiveFailures,
	)
	loop := consumer.NewLoop(s.consumer, processor, consumer.LoopOptions{
		PollTimeout:        s.cfg.Kafka.PollTimeout,
		CommitAfterPersist: s.cfg.Kafka.CommitMode == config.CommitModeAfterPersist,
		Metrics:            s.metrics,
	})

	s.setState(StateRunning)
	runErr := loop.Run(runCtx)
	if runErr != nil {
		s.logger.Error("pipeline stopped on fatal error", "error", runErr)
	}

	return errors.Join(runErr, s.Close())
}

// Drain asks the pipeline to stop polling. The record in flight finishes
// first. A drain requested before Run makes Run close without polling.
// Calling it more than once is a no-op.
func (s *Supervisor) Drain() {
	s.drained.Store(true)

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.setState(StateDraining)
}

// Close releases the consumer, then the store. Only the first call does
// any work; later calls return the same result.
func (s *Supervisor) Close() error {
	s.closeOnce.Do(func() {
		s.setState(StateDraining)

		s.mu.Lock()
		c, store := s.consumer, s.store
		s.mu.Unlock()

		var errs []error
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
			}
		}
		if store != nil {
			timeout := s.cfg.Storage.ConnectTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			if err := store.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
			}
			cancel()
		}
		s.closeErr = errors.Join(errs...)

		s.setState(StateClosed)
		if s.closeErr != nil {
			s.logger.Error("pipeline closed with errors", "error", s.closeErr)
		} else {
			s.logger.Info("pipeline closed")
		}
	})
	return s.closeErr
}

// Check runs the startup probes and closes again without polling
func (s *Supervisor) Check(ctx context.Context) error {
	err := s.Start(ctx)
	return errors.Join(err, s.Close())
}
