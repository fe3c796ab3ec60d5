package storefront

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer defines the Kafka producer operations used by the publisher.
// *kafka.Producer satisfies it directly.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// NewKafkaProducer creates a confluent producer from the broker and
// security settings in cfg
func NewKafkaProducer(cfg config.KafkaConfig) (*kafka.Producer, error) {
	kafkaConfig := kafka.ConfigMap{}
	for key, value := range cfg.ProducerProperties() {
		kafkaConfig[key] = value
	}

	producer, err := kafka.NewProducer(&kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// Publisher serialises storefront events and produces them to the topic
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger

	delivered atomic.Int64
	failed    atomic.Int64

	reporter  sync.WaitGroup
	closeOnce sync.Once
	remaining int
}

// NewPublisher starts reporting deliveries from the producer's events
// channel
func NewPublisher(producer Producer, topic string) *Publisher {
	p := &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logging.WithComponent("publisher"),
	}
	p.reporter.Add(1)
	go p.handleProducerEvents()
	return p
}

// PublishAddToCart produces an add_to_cart event keyed by product
func (p *Publisher) PublishAddToCart(ev *events.AddToCart) error {
	return p.publish(events.ProductKey(ev.ProductID), ev)
}

// PublishCheckout produces a checkout event keyed by session
func (p *Publisher) PublishCheckout(sessionID string, ev *events.Checkout) error {
	return p.publish(events.MessageKey(events.EventTypeCheckout, sessionID), ev)
}

func (p *Publisher) publish(key string, ev events.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Type(), err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}
	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce %s event: %w", ev.Type(), err)
	}
	return nil
}

// handleProducerEvents logs delivery reports until the producer closes
// its events channel
func (p *Publisher) handleProducerEvents() {
	defer p.reporter.Done()
	for event := range p.producer.Events() {
		switch e := event.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				p.failed.Add(1)
				p.logger.Error("failed to deliver event", "key", string(e.Key), "error", e.TopicPartition.Error)
				continue
			}
			p.delivered.Add(1)
			p.logger.Debug("event delivered",
				"key", string(e.Key),
				"partition", e.TopicPartition.Partition,
				"offset", int64(e.TopicPartition.Offset),
			)
		case kafka.Error:
			p.logger.Warn("producer error", "code", e.Code().String(), "error", e)
		}
	}
}

// Delivered returns the number of acknowledged events
func (p *Publisher) Delivered() int64 {
	return p.delivered.Load()
}

// Failed returns the number of events the broker did not accept
func (p *Publisher) Failed() int64 {
	return p.failed.Load()
}

// Close flushes outstanding events within timeout and closes the
// producer. It returns the number of events still undelivered.
func (p *Publisher) Close(timeout time.Duration) int {
	p.closeOnce.Do(func() {
		p.remaining = p.producer.Flush(int(timeout / time.Millisecond))
		if p.remaining > 0 {
			p.logger.Warn("events still undelivered after flush", "remaining", p.remaining, "timeout", timeout)
		}
		p.producer.Close()
		p.reporter.Wait()
		p.logger.Info("publisher closed", "delivered", p.Delivered(), "failed", p.Failed())
	})
	return p.remaining
}
