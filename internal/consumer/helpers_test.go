package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/Log-Tools/commerce-events-pipeline/internal/storage"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTopic = "customer_events"

func newMessage(partition int32, offset int64, value string) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &testTopic,
			Partition: partition,
			Offset:    kafka.Offset(offset),
		},
		Value: []byte(value),
	}
}

// scriptedConsumer replays a fixed list of events, then behaves like an
// idle topic: every poll blocks for the full timeout and returns nil
type scriptedConsumer struct {
	mu      sync.Mutex
	events  []kafka.Event
	onIdle  func()
	commits []*kafka.Message
	polls   int
	closed  int
}

func (c *scriptedConsumer) SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error {
	return nil
}

func (c *scriptedConsumer) Poll(timeoutMs int) kafka.Event {
	c.mu.Lock()
	c.polls++
	if len(c.events) > 0 {
		ev := c.events[0]
		c.events = c.events[1:]
		c.mu.Unlock()
		return ev
	}
	onIdle := c.onIdle
	c.mu.Unlock()

	if onIdle != nil {
		onIdle()
	}
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	return nil
}

func (c *scriptedConsumer) CommitMessage(msg *kafka.Message) ([]kafka.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits = append(c.commits, msg)
	return []kafka.TopicPartition{msg.TopicPartition}, nil
}

func (c *scriptedConsumer) GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error) {
	return &kafka.Metadata{}, nil
}

func (c *scriptedConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *scriptedConsumer) committed() []*kafka.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*kafka.Message(nil), c.commits...)
}

// memoryInserter stores documents in insertion order
type memoryInserter struct {
	mu   sync.Mutex
	docs []interface{}
	err  error
}

func (m *memoryInserter) InsertOne(ctx context.Context, document interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, document)
	return nil
}

func (m *memoryInserter) documents() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interface{}(nil), m.docs...)
}

func newMemoryRouter() (*storage.Router, *memoryInserter, *memoryInserter) {
	activity := &memoryInserter{}
	orders := &memoryInserter{}
	return storage.NewRouter(storage.Collections{
		Activity:     activity,
		ActivityName: "activity",
		Orders:       orders,
		OrdersName:   "orders",
	}, time.Second), activity, orders
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Persist(ctx context.Context, rec *events.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockSink) CollectionName(target events.Target) string {
	return target.String()
}

// captureLogs redirects the default logger to a JSON buffer for the test
func captureLogs(t *testing.T) *logBuffer {
	t.Helper()
	buf := &logBuffer{}
	previous := slog.Default()
	slog.SetDefault(logging.New(buf, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return buf
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// entries returns every decoded log line carrying the given outcome
func (b *logBuffer) entries(t *testing.T, outcome Outcome) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["outcome"] == string(outcome) {
			out = append(out, entry)
		}
	}
	return out
}

const (
	addToCartPayload = `{"event_type":"add_to_cart","product_id":11,"product_name":"iPhone 15","category":"Electronics","timestamp":"2024-01-01T00:00:00Z"}`
	checkoutPayload  = `{"event_type":"checkout","cart_items":[{"product_id":11,"product_name":"iPhone 15","quantity":1,"price":999.99}],"total_price":999.99,"timestamp":"2024-01-01T00:05:00Z"}`
)
