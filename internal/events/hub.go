package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event is one entry on the in-process stream.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// Hub fans events out to in-process subscribers (the admin SSE feed).
// Slow subscribers miss events rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int

	done      chan struct{}
	closeOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event), done: make(chan struct{})}
}

// Subscribe registers a subscriber. The channel is closed when ctx ends or the hub is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	select {
	case <-h.done:
		close(ch)
		return ch
	default:
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
		}
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// PublishJSON encodes v and delivers it to every current subscriber.
func (h *Hub) PublishJSON(_ context.Context, key string, v any) error {
	b, err := Encode(v)
	if err != nil {
		return err
	}
	evt := Event{Type: key, Data: b, At: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribers reports the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription and makes later ones end immediately.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
