package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncrementPolled()
	m.IncrementPolled()
	m.IncrementPersisted("activity")
	m.IncrementSkipped(ReasonDecodeError)
	m.IncrementSkipped(ReasonDecodeError)
	m.IncrementBrokerErrors(false)
	m.RecordPersistLatency(20 * time.Millisecond)
	m.SetState(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPolled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPersisted.WithLabelValues("activity")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsSkipped.WithLabelValues(ReasonDecodeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerErrors.WithLabelValues("false")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.PipelineState))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PersistDuration))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncrementPersisted("orders")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `events_persisted_total{collection="orders"} 1`)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	m := New()
	m.IncrementPolled()
	srv := NewServer(ln.Addr().String(), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, string(body), "events_polled_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
