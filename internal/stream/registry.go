// Package stream implements the in-process fan-out of alert and telemetry
// events to live subscribers. The registry is the only shared mutable state
// in the ingestion core; everything else is request-scoped.
package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"auv-monitor/internal/metrics"
)

// Sink is one subscriber's live connection. The transport layer owns the
// underlying connection; the registry only tracks membership and delivers.
type Sink interface {
	// Connected reports whether the subscriber can still receive events.
	Connected() bool
	// Send delivers one serialized event. A non-nil error marks the sink
	// dead and it will be pruned from the registry.
	Send(data []byte) error
}

// Channel selects which event stream a subscription belongs to.
type Channel string

const (
	ChannelAlert     Channel = "alert"
	ChannelTelemetry Channel = "telemetry"
)

// KeyAll is the wildcard subscription key: subscribers under it receive
// events for every AUV.
const KeyAll = "all"

// Registry maps (channel, key) to the set of live sinks. All map access is
// guarded; delivery happens outside the lock on a snapshot so a slow sink
// can never stall subscribe/unsubscribe.
type Registry struct {
	mu     sync.RWMutex
	sinks  map[Channel]map[string]map[Sink]struct{}
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sinks: map[Channel]map[string]map[Sink]struct{}{
			ChannelAlert:     {},
			ChannelTelemetry: {},
		},
		logger: logger,
	}
}

// normalizeKey maps the empty key to the wildcard.
func normalizeKey(key string) string {
	if key == "" {
		return KeyAll
	}
	return key
}

// Subscribe registers a sink under the given key ("" means all AUVs).
func (r *Registry) Subscribe(ch Channel, key string, s Sink) {
	key = normalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()

	byKey, ok := r.sinks[ch]
	if !ok {
		return
	}
	if byKey[key] == nil {
		byKey[key] = make(map[Sink]struct{})
	}
	byKey[key][s] = struct{}{}
	metrics.ActiveStreams.WithLabelValues(string(ch)).Inc()
}

// Unsubscribe removes a sink; the key vanishes once its set is empty.
// Removing a sink that is not registered is a no-op.
func (r *Registry) Unsubscribe(ch Channel, key string, s Sink) {
	key = normalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(ch, key, s)
}

func (r *Registry) removeLocked(ch Channel, key string, s Sink) {
	byKey, ok := r.sinks[ch]
	if !ok {
		return
	}
	set, ok := byKey[key]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(byKey, key)
	}
	metrics.ActiveStreams.WithLabelValues(string(ch)).Dec()
}

// Publish serializes the event once and delivers it to subscribers of the
// given key and, independently, to subscribers of the wildcard key. A client
// subscribed under both keys receives the event twice; the two passes are
// deliberate.
func (r *Registry) Publish(ch Channel, key string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to serialize stream event", "channel", ch, "error", err)
		return
	}

	key = normalizeKey(key)
	if key != KeyAll {
		r.deliver(ch, key, data)
	}
	r.deliver(ch, KeyAll, data)
}

func (r *Registry) deliver(ch Channel, key string, data []byte) {
	r.mu.RLock()
	var snapshot []Sink
	if set, ok := r.sinks[ch][key]; ok {
		snapshot = make([]Sink, 0, len(set))
		for s := range set {
			snapshot = append(snapshot, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		if !s.Connected() {
			r.prune(ch, key, s, "disconnected")
			continue
		}
		if err := s.Send(data); err != nil {
			r.logger.Warn("dropping stream subscriber", "channel", ch, "key", key, "error", err)
			r.prune(ch, key, s, "send_failed")
		}
	}
}

func (r *Registry) prune(ch Channel, key string, s Sink, reason string) {
	r.mu.Lock()
	r.removeLocked(ch, key, s)
	r.mu.Unlock()
	metrics.PrunedStreams.WithLabelValues(string(ch), reason).Inc()
}

// Counts returns the total number of registered sinks per channel.
func (r *Registry) Counts() (alerts, telemetry int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range r.sinks[ChannelAlert] {
		alerts += len(set)
	}
	for _, set := range r.sinks[ChannelTelemetry] {
		telemetry += len(set)
	}
	return alerts, telemetry
}

// Shutdown drops every subscription on both channels. Idempotent; used once
// at process teardown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch, byKey := range r.sinks {
		for key, set := range byKey {
			metrics.ActiveStreams.WithLabelValues(string(ch)).Sub(float64(len(set)))
			delete(byKey, key)
		}
	}
}
