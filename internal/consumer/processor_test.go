package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/metrics"
	"github.com/Log-Tools/commerce-events-pipeline/internal/storage"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Inserted(t *testing.T) {
	logs := captureLogs(t)
	m := metrics.New()
	router, activity, orders := newMemoryRouter()
	p := NewProcessor(events.NewClassifier(true), router, m, 0)

	outcome, err := p.Process(context.Background(), newMessage(0, 7, addToCartPayload))

	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	assert.Len(t, activity.documents(), 1)
	assert.Empty(t, orders.documents())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPersisted.WithLabelValues("activity")))

	entries := logs.entries(t, OutcomeInserted)
	require.Len(t, entries, 1)
	assert.Equal(t, "activity", entries[0]["collection"])
	assert.Equal(t, "add_to_cart", entries[0]["event_type"])
	assert.Equal(t, float64(7), entries[0]["offset"])
}

func TestProcessor_LogsMessageKey(t *testing.T) {
	logs := captureLogs(t)
	router, _, _ := newMemoryRouter()
	p := NewProcessor(events.NewClassifier(true), router, nil, 0)

	keyed := newMessage(0, 1, addToCartPayload)
	keyed.Key = []byte(events.ProductKey(11))
	legacy := newMessage(0, 2, checkoutPayload)
	legacy.Key = []byte("checkout")
	unkeyed := newMessage(0, 3, addToCartPayload)

	for _, msg := range []*kafka.Message{keyed, legacy, unkeyed} {
		_, err := p.Process(context.Background(), msg)
		require.NoError(t, err)
	}

	entries := logs.entries(t, OutcomeInserted)
	require.Len(t, entries, 3)
	assert.Equal(t, "add_to_cart", entries[0]["key_type"])
	assert.Equal(t, "11", entries[0]["key_id"])
	assert.Equal(t, "checkout", entries[1]["key"])
	assert.NotContains(t, entries[1], "key_type")
	assert.NotContains(t, entries[2], "key")
	assert.NotContains(t, entries[2], "key_type")
}

func TestProcessor_UnrecognizedNeverPersists(t *testing.T) {
	logs := captureLogs(t)
	sink := &MockSink{}
	p := NewProcessor(events.NewClassifier(true), sink, nil, 0)

	for _, payload := range []string{`{"event_type":"wishlist_add","product_id":5}`, `{"product_id":5}`} {
		outcome, err := p.Process(context.Background(), newMessage(0, 1, payload))
		require.NoError(t, err)
		assert.Equal(t, OutcomeUnrecognized, outcome)
	}

	sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	entries := logs.entries(t, OutcomeUnrecognized)
	require.Len(t, entries, 2)
	assert.Equal(t, "wishlist_add", entries[0]["event_type"])
	assert.Equal(t, false, entries[1]["event_type_present"])
}

func TestProcessor_DecodeErrorNeverPersists(t *testing.T) {
	logs := captureLogs(t)
	sink := &MockSink{}
	p := NewProcessor(events.NewClassifier(true), sink, nil, 0)

	outcome, err := p.Process(context.Background(), newMessage(0, 1, `{"event_type":"checkout","cart_it`))

	require.NoError(t, err)
	assert.Equal(t, OutcomeDecodeError, outcome)
	sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	assert.Len(t, logs.entries(t, OutcomeDecodeError), 1)
}

func TestProcessor_WriteErrorIsContained(t *testing.T) {
	sink := &MockSink{}
	sink.On("Persist", mock.Anything, mock.Anything).Return(&storage.WriteError{Collection: "orders", Err: errors.New("document failed validation")})
	p := NewProcessor(events.NewClassifier(true), sink, nil, 1)

	for i := 0; i < 5; i++ {
		outcome, err := p.Process(context.Background(), newMessage(0, int64(i), checkoutPayload))
		require.NoError(t, err)
		assert.Equal(t, OutcomeStorageWrite, outcome)
	}
}

func TestProcessor_ConnectionErrorsUnlimitedByDefault(t *testing.T) {
	sink := &MockSink{}
	sink.On("Persist", mock.Anything, mock.Anything).Return(&storage.ConnectionError{Op: "insert", Err: context.DeadlineExceeded})
	p := NewProcessor(events.NewClassifier(true), sink, nil, 0)

	for i := 0; i < 150; i++ {
		outcome, err := p.Process(context.Background(), newMessage(0, int64(i), checkoutPayload))
		require.NoError(t, err)
		assert.Equal(t, OutcomeStorageConnection, outcome)
	}
}

func TestProcessor_ConnectionLostAfterLimit(t *testing.T) {
	sink := &MockSink{}
	connErr := &storage.ConnectionError{Op: "insert", Err: context.DeadlineExceeded}
	sink.On("Persist", mock.Anything, mock.Anything).Return(connErr).Times(2)
	sink.On("Persist", mock.Anything, mock.Anything).Return(nil).Once()
	sink.On("Persist", mock.Anything, mock.Anything).Return(connErr)
	p := NewProcessor(events.NewClassifier(true), sink, nil, 3)

	// a success resets the run
	for i := 0; i < 3; i++ {
		_, err := p.Process(context.Background(), newMessage(0, int64(i), addToCartPayload))
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := p.Process(context.Background(), newMessage(0, int64(i), addToCartPayload))
		require.NoError(t, err)
	}

	outcome, err := p.Process(context.Background(), newMessage(0, 9, addToCartPayload))
	assert.Equal(t, OutcomeStorageConnection, outcome)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, connErr)
}

func TestProcessor_PersistSurvivesCancellation(t *testing.T) {
	sink := &MockSink{}
	sink.On("Persist", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil)
	p := NewProcessor(events.NewClassifier(true), sink, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := p.Process(ctx, newMessage(0, 1, addToCartPayload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	sink.AssertExpectations(t)
}

func TestProcessor_RecordPassedToSink(t *testing.T) {
	sink := &MockSink{}
	sink.On("Persist", mock.Anything, mock.MatchedBy(func(rec *events.Record) bool {
		checkout, ok := rec.Event.(*events.Checkout)
		return ok && rec.Target == events.TargetOrders && checkout.TotalPrice == 999.99
	})).Return(nil)
	p := NewProcessor(events.NewClassifier(true), sink, nil, 0)

	outcome, err := p.Process(context.Background(), newMessage(2, 40, checkoutPayload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	sink.AssertExpectations(t)
}
