package ordersync

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventOrderAdded           EventKind = "order_added"
	EventCancellationApproved EventKind = "order_cancellation_approved"
	EventCancellationRejected EventKind = "order_cancellation_rejected"
)

// OrderEvent is the only cross-component signal in the system. It is
// published on the in-process bus and, for decisions made elsewhere,
// bridged in from Pub/Sub push delivery.
type OrderEvent struct {
	Kind          EventKind `json:"kind"`
	OrderId       string    `json:"order_id"`
	ShiftId       string    `json:"shift_id"`
	ActorId       string    `json:"actor_id,omitempty"`
	CorrelationId string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Bus is a minimal typed pub/sub for OrderEvents. Delivery is
// synchronous in publish order; subscribers must not block.
type Bus struct {
	mu   sync.RWMutex
	subs []func(OrderEvent)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(fn func(OrderEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *Bus) Publish(ev OrderEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	b.mu.RLock()
	subs := make([]func(OrderEvent), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
