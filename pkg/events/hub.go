// Package events fans controller state transitions out to HTTP subscribers.
package events

import (
	"encoding/json"
	"sync"
)

// StateChange is the event name for controller state transitions.
const StateChange = "controller.state"

// Event is one SSE event from the daemon.
type Event struct {
	Name string
	Data json.RawMessage
}

// Hub is a broadcast fan-out. A nil Hub drops everything, so publishers
// never need to check.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel receiving all future events. Slow receivers
// lose events rather than blocking the controller.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ev := Event{Name: name, Data: b}
	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.RUnlock()
}
