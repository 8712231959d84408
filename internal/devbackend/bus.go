package devbackend

import (
	"sync"

	"degradation_monitor/internal/models"
)

// subscriberBuffer is the per-subscriber queue size. Notifications carry no
// payload the client depends on, so a full queue simply drops the newest one.
const subscriberBuffer = 8

// EventBus is an in-process pub/sub used to relay change notifications to
// every open SSE connection.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan models.PushEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan models.PushEvent]struct{})}
}

// Subscribe registers a new listener. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *EventBus) Subscribe() (<-chan models.PushEvent, func()) {
	ch := make(chan models.PushEvent, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers without blocking.
func (b *EventBus) Publish(name, data string) {
	ev := models.PushEvent{Name: name, Data: data}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
