package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	received  [][]byte
	connected bool
	sendErr   error
}

func newFakeSink() *fakeSink {
	return &fakeSink{connected: true}
}

func (f *fakeSink) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSink) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.received = append(f.received, data)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

type testEvent struct {
	AUVID string `json:"auv_id"`
}

func TestPublishRoutesByKey(t *testing.T) {
	r := NewRegistry(slog.Default())

	specific := newFakeSink()
	wildcard := newFakeSink()
	other := newFakeSink()
	r.Subscribe(ChannelAlert, "AUV-001", specific)
	r.Subscribe(ChannelAlert, "", wildcard) // empty key means all
	r.Subscribe(ChannelAlert, "AUV-002", other)

	r.Publish(ChannelAlert, "AUV-001", testEvent{AUVID: "AUV-001"})

	assert.Equal(t, 1, specific.count())
	assert.Equal(t, 1, wildcard.count())
	assert.Equal(t, 0, other.count())
}

func TestPublishDualSubscriptionDeliversTwice(t *testing.T) {
	r := NewRegistry(slog.Default())

	s := newFakeSink()
	r.Subscribe(ChannelTelemetry, "AUV-001", s)
	r.Subscribe(ChannelTelemetry, KeyAll, s)

	r.Publish(ChannelTelemetry, "AUV-001", testEvent{AUVID: "AUV-001"})

	// One delivery per pass: once for the specific key, once for the wildcard.
	assert.Equal(t, 2, s.count())
}

func TestPublishChannelsAreIndependent(t *testing.T) {
	r := NewRegistry(slog.Default())

	alerts := newFakeSink()
	telemetry := newFakeSink()
	r.Subscribe(ChannelAlert, KeyAll, alerts)
	r.Subscribe(ChannelTelemetry, KeyAll, telemetry)

	r.Publish(ChannelAlert, "AUV-001", testEvent{AUVID: "AUV-001"})

	assert.Equal(t, 1, alerts.count())
	assert.Equal(t, 0, telemetry.count())
}

func TestPublishPrunesDisconnectedSink(t *testing.T) {
	r := NewRegistry(slog.Default())

	dead := newFakeSink()
	dead.connected = false
	live := newFakeSink()
	r.Subscribe(ChannelAlert, "AUV-001", dead)
	r.Subscribe(ChannelAlert, "AUV-001", live)

	r.Publish(ChannelAlert, "AUV-001", testEvent{AUVID: "AUV-001"})

	assert.Equal(t, 0, dead.count())
	assert.Equal(t, 1, live.count())

	alerts, _ := r.Counts()
	assert.Equal(t, 1, alerts)
}

func TestPublishPrunesFailingSink(t *testing.T) {
	r := NewRegistry(slog.Default())

	failing := newFakeSink()
	failing.sendErr = errors.New("broken pipe")
	live := newFakeSink()
	r.Subscribe(ChannelAlert, KeyAll, failing)
	r.Subscribe(ChannelAlert, KeyAll, live)

	r.Publish(ChannelAlert, "AUV-001", testEvent{AUVID: "AUV-001"})

	// The failing sink is dropped without aborting delivery to the rest.
	assert.Equal(t, 1, live.count())
	alerts, _ := r.Counts()
	assert.Equal(t, 1, alerts)

	r.Publish(ChannelAlert, "AUV-001", testEvent{AUVID: "AUV-001"})
	assert.Equal(t, 2, live.count())
}

func TestUnsubscribe(t *testing.T) {
	r := NewRegistry(slog.Default())

	s := newFakeSink()
	r.Subscribe(ChannelTelemetry, "AUV-001", s)
	r.Unsubscribe(ChannelTelemetry, "AUV-001", s)

	r.Publish(ChannelTelemetry, "AUV-001", testEvent{AUVID: "AUV-001"})
	assert.Equal(t, 0, s.count())

	// Removing again is a no-op.
	r.Unsubscribe(ChannelTelemetry, "AUV-001", s)

	_, telemetry := r.Counts()
	assert.Equal(t, 0, telemetry)
}

func TestCounts(t *testing.T) {
	r := NewRegistry(slog.Default())

	r.Subscribe(ChannelAlert, "AUV-001", newFakeSink())
	r.Subscribe(ChannelAlert, KeyAll, newFakeSink())
	r.Subscribe(ChannelTelemetry, "AUV-002", newFakeSink())

	alerts, telemetry := r.Counts()
	assert.Equal(t, 2, alerts)
	assert.Equal(t, 1, telemetry)
}

func TestShutdownIdempotent(t *testing.T) {
	r := NewRegistry(slog.Default())

	s := newFakeSink()
	r.Subscribe(ChannelAlert, KeyAll, s)
	r.Subscribe(ChannelTelemetry, KeyAll, s)

	r.Shutdown()
	r.Shutdown()

	alerts, telemetry := r.Counts()
	assert.Equal(t, 0, alerts)
	assert.Equal(t, 0, telemetry)

	r.Publish(ChannelAlert, "AUV-001", testEvent{AUVID: "AUV-001"})
	assert.Equal(t, 0, s.count())
}

func TestConcurrentPublishAndChurn(t *testing.T) {
	r := NewRegistry(slog.Default())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("AUV-%03d", n)
			for j := 0; j < 100; j++ {
				s := newFakeSink()
				r.Subscribe(ChannelTelemetry, key, s)
				r.Publish(ChannelTelemetry, key, testEvent{AUVID: key})
				r.Unsubscribe(ChannelTelemetry, key, s)
			}
		}(i)
	}
	wg.Wait()

	_, telemetry := r.Counts()
	assert.Equal(t, 0, telemetry)
}

func TestChannelSinkSend(t *testing.T) {
	s := NewChannelSink(2)
	require.True(t, s.Connected())

	require.NoError(t, s.Send([]byte("a")))
	require.NoError(t, s.Send([]byte("b")))

	// Buffer of 2 is full; the laggard gets an error, not a stall.
	err := s.Send([]byte("c"))
	assert.ErrorIs(t, err, ErrSlowConsumer)

	assert.Equal(t, []byte("a"), <-s.Events())
	require.NoError(t, s.Send([]byte("c")))
}

func TestChannelSinkClose(t *testing.T) {
	s := NewChannelSink(2)

	s.Close()
	s.Close() // safe to call twice

	assert.False(t, s.Connected())
	assert.ErrorIs(t, s.Send([]byte("x")), ErrSinkClosed)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}
