package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(StateChange, map[string]string{"from": "BOOT", "to": "CALIBRATE"})
	select {
	case ev := <-ch:
		if ev.Name != StateChange {
			t.Fatalf("event name %q", ev.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestNilHubDropsEvents(t *testing.T) {
	var h *Hub
	h.Publish(StateChange, "anything") // must not panic
}

func TestSlowSubscriberLosesEvents(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < 2*cap(ch); i++ {
		h.Publish(StateChange, i)
	}
	if got := len(ch); got != cap(ch) {
		t.Fatalf("buffered %d events, want the channel capacity %d", got, cap(ch))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	h.Unsubscribe(ch) // double unsubscribe must be harmless
}
