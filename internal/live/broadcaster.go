package live

import (
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Snapshot is the full counter state at one point in time
type Snapshot map[string]int64

// Subscription receives a snapshot after every increment. Only the most
// recent snapshots are buffered; a slow reader skips intermediate states.
type Subscription struct {
	ch chan Snapshot
}

// C returns the channel snapshots are delivered on
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Broadcaster owns the per-event-name live counters of this process
type Broadcaster struct {
	mu          sync.Mutex
	counts      map[string]int64
	subscribers map[*Subscription]struct{}
	buffer      int

	subscriberGauge prometheus.Gauge
	dropped         prometheus.Counter
}

// NewBroadcaster creates a broadcaster whose subscriptions buffer up to buffer snapshots
func NewBroadcaster(buffer int, reg prometheus.Registerer) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	factory := promauto.With(reg)
	return &Broadcaster{
		counts:      make(map[string]int64),
		subscribers: make(map[*Subscription]struct{}),
		buffer:      buffer,
		subscriberGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "analytics",
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Connected live counter subscribers.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "live",
			Name:      "snapshots_dropped_total",
			Help:      "Stale snapshots discarded because a subscriber fell behind.",
		}),
	}
}

// Increment bumps the counter for eventName and pushes the new snapshot to
// every subscriber. Never blocks on a subscriber.
func (b *Broadcaster) Increment(eventName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts[eventName]++
	snap := maps.Clone(b.counts)

	for sub := range b.subscribers {
		b.deliver(sub, snap)
	}
}

// deliver must be called with b.mu held
func (b *Broadcaster) deliver(sub *Subscription, snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
		}
		// full: discard the oldest pending snapshot and retry
		select {
		case <-sub.ch:
			b.dropped.Inc()
		default:
		}
	}
}

// Snapshot returns a copy of the current counters
func (b *Broadcaster) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.counts)
}

// Subscribe registers a new subscription
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Snapshot, b.buffer)}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	b.subscriberGauge.Inc()
	return sub
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	b.mu.Unlock()

	if ok {
		b.subscriberGauge.Dec()
	}
}
