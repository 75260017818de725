package status

import (
	"sync"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
)

// ConnectionStatus is the last known link state of a tenant. It outlives the
// session that produced it.
type ConnectionStatus struct {
	IsConnected      bool
	LastConnected    *time.Time
	LastDisconnected *time.Time
}

// Tracker holds ConnectionStatus for every tenant seen by the process.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]ConnectionStatus
	bus      *bus.Bus
	now      func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker(b *bus.Bus) *Tracker {
	return &Tracker{
		statuses: make(map[string]ConnectionStatus),
		bus:      b,
		now:      time.Now,
	}
}

// MarkConnected flags the tenant connected and stamps LastConnected.
func (t *Tracker) MarkConnected(tenant string) {
	t.update(tenant, func(s *ConnectionStatus, now time.Time) {
		s.IsConnected = true
		s.LastConnected = &now
	})
}

// MarkDisconnected flags the tenant disconnected and stamps LastDisconnected.
func (t *Tracker) MarkDisconnected(tenant string) {
	t.update(tenant, func(s *ConnectionStatus, now time.Time) {
		s.IsConnected = false
		s.LastDisconnected = &now
	})
}

// Clear forgets the tenant entirely.
func (t *Tracker) Clear(tenant string) {
	t.mu.Lock()
	delete(t.statuses, tenant)
	t.mu.Unlock()
	t.publish(tenant, ConnectionStatus{})
}

// Get returns the tenant's status and whether one is recorded.
func (t *Tracker) Get(tenant string) (ConnectionStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[tenant]
	return s, ok
}

// IsConnected reports whether the tenant is currently connected.
func (t *Tracker) IsConnected(tenant string) bool {
	s, _ := t.Get(tenant)
	return s.IsConnected
}

func (t *Tracker) update(tenant string, fn func(*ConnectionStatus, time.Time)) {
	t.mu.Lock()
	s := t.statuses[tenant]
	fn(&s, t.now())
	t.statuses[tenant] = s
	t.mu.Unlock()
	t.publish(tenant, s)
}

func (t *Tracker) publish(tenant string, s ConnectionStatus) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(bus.Event{
		Kind:      Kind(tenant, KindConnection),
		Timestamp: t.now(),
		Payload:   s,
	})
}
