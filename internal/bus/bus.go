package bus

import (
	"strings"
	"sync"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
// Kinds are paths of segments separated by '.' or '/', such as "tenant/<id>/update".
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string
	ch        chan Event
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish sends an event to all subscribers whose namespace matches event.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if Matches(sub.namespace, evt.Kind) {
			select {
			case sub.ch <- evt:
			default:
				// Drop event if subscriber is full (non-blocking).
			}
		}
	}
}

// Matches reports whether kind falls under namespace. The namespace must
// cover whole segments: "a.b" matches "a.b" and "a.b.c" but not "a.bc".
func Matches(namespace, kind string) bool {
	if !strings.HasPrefix(kind, namespace) {
		return false
	}
	if len(kind) == len(namespace) || namespace == "" || isSep(namespace[len(namespace)-1]) {
		return true
	}
	return isSep(kind[len(namespace)])
}

func isSep(c byte) bool { return c == '.' || c == '/' }

// Subscribe returns a channel that receives events matching the given namespace.
// bufSize controls the channel buffer. Replay events are queued ahead of anything
// published after the call. Returns the channel and an unsubscribe function that
// only detaches this subscriber.
func (b *Bus) Subscribe(namespace string, bufSize int, replay ...Event) (<-chan Event, func()) {
	ch := make(chan Event, max(bufSize, len(replay)))
	for _, evt := range replay {
		ch <- evt
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespace: namespace, ch: ch}
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
