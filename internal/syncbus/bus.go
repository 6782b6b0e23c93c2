// Package syncbus fans out change notifications to every observer of the
// reservation engine. Events are hints: observers re-read the ledger and
// inventory when one arrives instead of trusting the payload.
package syncbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventKind string

const (
	BookingCreated   EventKind = "booking.created"
	BookingCancelled EventKind = "booking.cancelled"
	BookingsExpired  EventKind = "bookings.expired"
	LotChanged       EventKind = "lot.changed"
	// Resync replaces whatever an observer fell behind on.
	Resync EventKind = "resync"
)

type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      EventKind `json:"kind"`
	LotID     string    `json:"lot_id,omitempty"`
	BookingID string    `json:"booking_id,omitempty"`
	At        time.Time `json:"at"`
	Origin    string    `json:"origin"`
}

const DefaultQueueSize = 64

// Bus is an in-process publish/subscribe hub. Publish never blocks on a
// subscriber: each subscription owns a bounded queue drained by its own
// goroutine.
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscription
	nextID    uint64
	seq       atomic.Uint64
	origin    string
	queueSize int
	logger    *zap.Logger
}

func New(queueSize int, logger *zap.Logger) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:      make(map[uint64]*Subscription),
		origin:    uuid.NewString(),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Origin identifies events published by this process.
func (b *Bus) Origin() string { return b.origin }

// Publish stamps ev and hands it to every current subscriber.
func (b *Bus) Publish(ev Event) {
	if ev.Origin == "" {
		ev.Origin = b.origin
	}
	b.deliver(ev)
}

// Deliver injects an event that came from another process, keeping its origin.
func (b *Bus) Deliver(ev Event) {
	b.deliver(ev)
}

func (b *Bus) deliver(ev Event) {
	ev.Seq = b.seq.Add(1)
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		s.enqueue(ev)
	}
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscription{
		bus:    b,
		id:     b.nextID,
		max:    b.queueSize,
		signal: make(chan struct{}, 1),
		out:    make(chan Event),
		done:   make(chan struct{}),
	}
	b.subs[s.id] = s
	go s.pump()
	return s
}

// Subscribers reports how many subscriptions are open.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		s.Close()
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

type Subscription struct {
	bus *Bus
	id  uint64
	max int

	mu      sync.Mutex
	pending []Event
	closed  bool

	signal    chan struct{}
	out       chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// C yields events in publish order. It is closed after Close.
func (s *Subscription) C() <-chan Event { return s.out }

func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = nil
		s.mu.Unlock()
		close(s.done)
		s.bus.remove(s.id)
	})
}

func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.pending) >= s.max {
		s.bus.logger.Debug("subscriber_queue_collapsed",
			zap.Uint64("subscription", s.id),
			zap.Int("dropped", len(s.pending)))
		s.pending = append(s.pending[:0], Event{
			Seq:    ev.Seq,
			Kind:   Resync,
			At:     ev.At,
			Origin: ev.Origin,
		})
	} else {
		s.pending = append(s.pending, ev)
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.pending[0]
		s.pending[0] = Event{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}
