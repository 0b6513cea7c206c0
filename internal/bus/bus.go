package bus

import (
	"strings"
	"sync"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespaces []string
	ch         chan Event
}

func (s *subscription) matches(kind string) bool {
	for _, ns := range s.namespaces {
		if strings.HasPrefix(kind, ns) {
			return true
		}
	}
	return false
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish sends an event to all subscribers with a namespace that is a prefix
// of event.Kind. Slow subscribers miss events instead of blocking the publisher.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.matches(evt.Kind) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel that receives events matching the given namespace prefix.
// bufSize controls the channel buffer. Returns the channel and an unsubscribe function.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	return b.SubscribeMany([]string{namespace}, bufSize)
}

// SubscribeMany is Subscribe for several namespaces at once. An event is
// delivered once even if it matches more than one namespace.
func (b *Bus) SubscribeMany(namespaces []string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespaces: append([]string(nil), namespaces...), ch: ch}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
