package stream

import (
	"errors"
	"sync"

	"go.uber.org/atomic"
)

var (
	// ErrSinkClosed is returned by Send after the subscriber disconnected.
	ErrSinkClosed = errors.New("sink closed")
	// ErrSlowConsumer is returned when the subscriber's buffer is full.
	ErrSlowConsumer = errors.New("sink buffer full")
)

// ChannelSink adapts a per-subscription goroutine to the Sink interface. The
// registry's publish path writes into a buffered channel; the transport
// goroutine drains it at its own pace. Send never blocks: a full buffer
// fails the delivery so the registry prunes the laggard instead of stalling
// ingestion.
type ChannelSink struct {
	events    chan []byte
	done      chan struct{}
	connected atomic.Bool
	closeOnce sync.Once
}

func NewChannelSink(buffer int) *ChannelSink {
	s := &ChannelSink{
		events: make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
	s.connected.Store(true)
	return s
}

// Connected implements Sink.
func (s *ChannelSink) Connected() bool {
	return s.connected.Load()
}

// Send implements Sink.
func (s *ChannelSink) Send(data []byte) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	select {
	case s.events <- data:
		return nil
	case <-s.done:
		return ErrSinkClosed
	default:
		return ErrSlowConsumer
	}
}

// Events is the stream the transport goroutine drains.
func (s *ChannelSink) Events() <-chan []byte {
	return s.events
}

// Done is closed when the sink shuts down.
func (s *ChannelSink) Done() <-chan struct{} {
	return s.done
}

// Close marks the sink disconnected. Safe to call more than once.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		close(s.done)
	})
}
