package storefront

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/events"
	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every event per session
type recordingPublisher struct {
	mu        sync.Mutex
	adds      []*events.AddToCart
	checkouts map[string]*events.Checkout
	failAdds  bool
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{checkouts: make(map[string]*events.Checkout)}
}

func (r *recordingPublisher) PublishAddToCart(ev *events.AddToCart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAdds {
		return errors.New("queue full")
	}
	r.adds = append(r.adds, ev)
	return nil
}

func (r *recordingPublisher) PublishCheckout(sessionID string, ev *events.Checkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkouts[sessionID] = ev
	return nil
}

func (r *recordingPublisher) checkoutCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checkouts)
}

func newTestSimulator(pub EventPublisher, cfg config.SimulatorConfig) *Simulator {
	s := NewSimulator(pub, DefaultCatalog(), cfg)
	var mu sync.Mutex
	next := 0
	s.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return "session-" + strconv.Itoa(next)
	}
	s.now = func() time.Time { return checkoutTime }
	return s
}

func TestSimulator_StopsAfterCheckoutLimit(t *testing.T) {
	pub := newRecordingPublisher()
	s := newTestSimulator(pub, config.SimulatorConfig{
		Sessions:        4,
		MaxItems:        5,
		SessionsToClose: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	require.NoError(t, ctx.Err(), "simulator should stop on its own")

	assert.Equal(t, 10, pub.checkoutCount())
	assert.Equal(t, int64(10), s.Checkouts())

	for sessionID, checkout := range pub.checkouts {
		assert.NotEmpty(t, checkout.CartItems, "session %s checked out an empty cart", sessionID)
		var total float64
		for _, item := range checkout.CartItems {
			assert.Greater(t, item.Quantity, 0)
			total += item.Price * float64(item.Quantity)
		}
		assert.InDelta(t, total, checkout.TotalPrice, 1e-6)
	}
}

func TestSimulator_EventsAreClassifiable(t *testing.T) {
	pub := newRecordingPublisher()
	s := newTestSimulator(pub, config.SimulatorConfig{Sessions: 2, MaxItems: 3, SessionsToClose: 4})

	require.NoError(t, s.Run(context.Background()))

	require.NotEmpty(t, pub.adds)
	for _, ev := range pub.adds {
		assert.Equal(t, events.TargetActivity, ev.Target())
		_, ok := DefaultCatalog().Lookup(ev.ProductID)
		assert.True(t, ok)
		assert.Equal(t, "2024-01-01T00:05:00.123456", ev.Timestamp)
	}
}

func TestSimulator_StopsOnCancel(t *testing.T) {
	pub := newRecordingPublisher()
	s := newTestSimulator(pub, config.SimulatorConfig{Sessions: 3, MaxItems: 5, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop")
	}
}

func TestSimulator_PublishFailuresDoNotStopSessions(t *testing.T) {
	pub := newRecordingPublisher()
	pub.failAdds = true
	s := newTestSimulator(pub, config.SimulatorConfig{Sessions: 1, MaxItems: 2, SessionsToClose: 3})

	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, pub.adds)
	assert.Equal(t, 3, pub.checkoutCount())
}

func TestSimulator_EmptyCatalog(t *testing.T) {
	s := NewSimulator(newRecordingPublisher(), nil, config.SimulatorConfig{Sessions: 1})

	assert.Error(t, s.Run(context.Background()))
}

func TestSimulator_CheckoutCategories(t *testing.T) {
	s := newTestSimulator(newRecordingPublisher(), config.SimulatorConfig{})

	checkout := &events.Checkout{CartItems: []events.CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 11, Quantity: 1},
		{ProductID: 12, Quantity: 3},
		{ProductID: 99, Quantity: 5},
	}}

	assert.Equal(t, map[string]int{"Books": 2, "Electronics": 4}, s.checkoutCategories(checkout))
}
