// Package notify fans audit events out to in-process subscribers, so side
// channels (webhooks, caches, test probes) can observe treasury activity
// without touching the persistence path.
package notify

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hearthvault/hearthvault/internal/treasury/event"
)

// queueSize bounds each subscriber's channel. Delivery never blocks the
// publisher; a full subscriber drops the event.
const queueSize = 32

// SubscriberID identifies a subscription for later removal.
type SubscriberID int

// HandlerFunc receives published events.
type HandlerFunc func(event.Event)

type busMetrics struct {
	publishedTotal *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
}

// Bus delivers audit events to subscribers keyed by event type. Safe for
// concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[event.Type]map[SubscriberID]chan event.Event
	lastSubID   SubscriberID
	metrics     *busMetrics
	logger      *slog.Logger
}

// NewBus returns a bus registering its metrics with reg. Both reg and
// logger may be nil.
func NewBus(reg prometheus.Registerer, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		subscribers: make(map[event.Type]map[SubscriberID]chan event.Event),
		logger:      logger,
	}
	if reg != nil {
		factory := promauto.With(reg)
		b.metrics = &busMetrics{
			publishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "treasury_events_published_total",
				Help: "Number of audit events published, by event type.",
			}, []string{"type"}),
			droppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "treasury_events_dropped_total",
				Help: "Number of audit events dropped by full subscribers, by event type.",
			}, []string{"type"}),
			subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "treasury_event_subscribers",
				Help: "Number of active event subscribers, by event type.",
			}, []string{"type"}),
		}
	}
	return b
}

// Subscribe registers a channel receiver for one event type.
func (b *Bus) Subscribe(eventType event.Type) (SubscriberID, <-chan event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSubID++
	id := b.lastSubID
	ch := make(chan event.Event, queueSize)
	if _, ok := b.subscribers[eventType]; !ok {
		b.subscribers[eventType] = make(map[SubscriberID]chan event.Event)
	}
	b.subscribers[eventType][id] = ch
	if b.metrics != nil {
		b.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return id, ch
}

// SubscribeFunc registers a callback receiver for one event type. The
// callback runs on a dedicated goroutine and stops when unsubscribed.
func (b *Bus) SubscribeFunc(eventType event.Type, handler HandlerFunc) SubscriberID {
	id, ch := b.Subscribe(eventType)
	go func() {
		for evt := range ch {
			handler(evt)
		}
	}()
	return id
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(eventType event.Type, id SubscriberID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[eventType]
	if !ok {
		return
	}
	ch, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(b.subscribers, eventType)
	}
	close(ch)
	if b.metrics != nil {
		b.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
	}
}

// Publish delivers the event to every subscriber of its type without
// blocking. Events to full subscribers are dropped and counted.
func (b *Bus) Publish(evt event.Event) {
	b.mu.RLock()
	subs := b.subscribers[evt.Type]
	channels := make([]chan event.Event, 0, len(subs))
	for _, ch := range subs {
		channels = append(channels, ch)
	}
	b.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- evt:
		default:
			if b.metrics != nil {
				b.metrics.droppedTotal.WithLabelValues(string(evt.Type)).Inc()
			}
			b.logger.Warn("event subscriber queue full, dropping event",
				"type", evt.Type, "family_id", evt.FamilyID, "seq", evt.Seq)
		}
	}
	if b.metrics != nil {
		b.metrics.publishedTotal.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Stop closes all subscriber channels and clears the bus. The bus can be
// reused afterwards.
func (b *Bus) Stop() {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[event.Type]map[SubscriberID]chan event.Event)
	b.mu.Unlock()

	for _, typeSubs := range subs {
		for _, ch := range typeSubs {
			close(ch)
		}
	}
	if b.metrics != nil {
		b.metrics.subscribers.Reset()
	}
}
