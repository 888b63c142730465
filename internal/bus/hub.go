package bus

import (
	"context"
	"errors"
	"sync"
)

const DefaultBuffer = 64

var ErrHubClosed = errors.New("hub closed")

type SubscribeRequest struct {
	RestaurantID string
	Feed         Feed
	// Buffer overrides the hub's per-subscriber buffer when > 0.
	Buffer int
}

// Subscription is the cancellation handle of one subscriber. Its channel is
// closed when the subscriber calls Close or falls too far behind.
type Subscription struct {
	hub          *Hub
	id           uint64
	restaurantID string
	feed         Feed
	ch           chan Event
	closed       bool // guarded by hub.mu
	lagged       bool // guarded by hub.mu
	once         sync.Once
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Feed() Feed { return s.feed }

func (s *Subscription) RestaurantID() string { return s.restaurantID }

// Close unsubscribes. It is safe to call more than once and from any
// goroutine; other subscriptions are not affected.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Lagged reports whether the hub dropped the subscription because its buffer
// overflowed.
func (s *Subscription) Lagged() bool {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.lagged
}

// Hub delivers events to the subscribers of this process. Delivery never
// blocks the publisher: a subscriber whose buffer is full receives a resync
// event and is closed, and has to subscribe again from a fresh snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: map[uint64]*Subscription{}, buffer: buffer}
}

func (h *Hub) Subscribe(req SubscribeRequest) (*Subscription, error) {
	if req.RestaurantID == "" {
		return nil, errors.New("restaurant id required")
	}
	feed, err := ParseFeed(string(req.Feed))
	if err != nil {
		return nil, err
	}
	size := h.buffer
	if req.Buffer > 0 {
		size = req.Buffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.nextID++
	s := &Subscription{
		hub:          h,
		id:           h.nextID,
		restaurantID: req.RestaurantID,
		feed:         feed,
		ch:           make(chan Event, size),
	}
	h.subs[s.id] = s
	return s, nil
}

// Publish delivers evs to every matching local subscriber. A closed hub
// returns ErrHubClosed.
func (h *Hub) Publish(_ context.Context, evs ...Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, ev := range evs {
		for _, s := range h.subs {
			if ev.RestaurantID != "" && ev.RestaurantID != s.restaurantID {
				continue
			}
			relevant, inView := s.feed.Match(ev)
			if !relevant {
				continue
			}
			out := ev
			out.InView = inView
			h.deliver(s, out)
		}
	}
	return nil
}

// Resync tells the subscribers of restaurantID, or of every restaurant when
// it is empty, to rebuild their view.
func (h *Hub) Resync(restaurantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if restaurantID == "" || s.restaurantID == restaurantID {
			h.deliver(s, ResyncEvent(s.restaurantID))
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, s := range h.subs {
		h.closeLocked(s)
	}
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(s *Subscription, ev Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	// make room for the resync marker, then cut the subscriber off
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- ResyncEvent(s.restaurantID):
	default:
	}
	s.lagged = true
	h.closeLocked(s)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked(s)
}

func (h *Hub) closeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	delete(h.subs, s.id)
	close(s.ch)
}
