package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBufferSize = 64

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrSubscriberBusy     = errors.New("subscriber buffer full")
)

// Event is one message delivered to subscribers.
type Event struct {
	Name      string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription receives events in publish order until it is closed.
type Subscription struct {
	ID string
	C  <-chan Event

	ch  chan Event
	hub *Hub

	// own limits delivery to transactions whose correlation id is this subscription.
	own     bool
	once    sync.Once
	dropped atomic.Int64
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.ID)
	})
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Hub is an in-process publish channel. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	bufferSize  int
	logger      *zap.Logger
	now         func() time.Time
}

func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		subscribers: make(map[string]*Subscription),
		bufferSize:  bufferSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Subscribe returns a subscription to every published event.
func (h *Hub) Subscribe() *Subscription {
	return h.subscribe(false)
}

// SubscribeOwn returns a subscription that only sees events about transactions
// submitted with its id as correlation id, plus results forwarded to it.
func (h *Hub) SubscribeOwn() *Subscription {
	return h.subscribe(true)
}

func (h *Hub) subscribe(own bool) *Subscription {
	ch := make(chan Event, h.bufferSize)
	sub := &Subscription{
		ID:  uuid.NewString(),
		C:   ch,
		ch:  ch,
		own: own,
		hub: h,
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(sub.ch)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish delivers the event to every current subscriber without waiting.
func (h *Hub) Publish(name string, payload any) {
	ev := Event{Name: name, Payload: payload, Timestamp: h.now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		if sub.own && !ownedBy(payload, sub.ID) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			if sub.dropped.Add(1) == 1 {
				h.logger.Warn("subscriber too slow, dropping events",
					zap.String("subscriber_id", sub.ID), zap.String("event", name))
			}
		}
	}
}

func ownedBy(payload any, subscriberID string) bool {
	tx, ok := payload.(*domain.RemoteTransaction)
	return ok && tx.CorrelationID == subscriberID
}

// Forward sends a processing result to a single subscriber. The subscriber id is the
// correlation id recorded on the transaction.
func (h *Hub) Forward(ctx context.Context, correlationID string, msg domain.ResultMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := Event{Name: domain.EventProcessingResult, Payload: msg, Timestamp: h.now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sub, ok := h.subscribers[correlationID]
	if !ok {
		return ErrSubscriberNotFound
	}
	select {
	case sub.ch <- ev:
		return nil
	default:
		return ErrSubscriberBusy
	}
}
