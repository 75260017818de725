package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
)

// State represents a tenant session lifecycle state.
type State string

const (
	Idle         State = "IDLE"
	Initializing State = "INITIALIZING"
	AwaitingScan State = "AWAITING_SCAN"
	Open         State = "OPEN"
	Closing      State = "CLOSING"
	Reconnecting State = "RECONNECTING"
	LoggedOut    State = "LOGGED_OUT"
	Unauthorized State = "UNAUTHORIZED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Idle:         {Initializing},
	Initializing: {AwaitingScan, Open, Closing},
	AwaitingScan: {Open, Closing},
	Open:         {Closing},
	Closing:      {Reconnecting, Idle, LoggedOut, Unauthorized},
	Reconnecting: {Initializing, Idle},
	LoggedOut:    {Initializing},
	Unauthorized: {Initializing},
}

// Terminal reports whether s ends a session without a scheduled retry.
func (s State) Terminal() bool {
	return s == Idle || s == LoggedOut || s == Unauthorized
}

// Machine tracks and enforces one tenant's lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	tenant  string
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine for tenant starting in Idle.
func NewMachine(tenant string, b *bus.Bus) *Machine {
	return &Machine{
		tenant:  tenant,
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      Kind(m.tenant, KindState),
			Timestamp: time.Now(),
			Payload: StatusChange{
				Tenant: m.tenant,
				From:   from,
				To:     to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for state change events.
type StatusChange struct {
	Tenant string
	From   State
	To     State
}

// Event kind suffixes published per tenant.
const (
	KindState      = "state"
	KindConnection = "connection"
	KindUpdate     = "update"
	KindForward    = "forward"
)

// Kind builds the bus kind for a tenant event. The tenant id sits between
// '/' separators, which valid tenant ids never contain.
func Kind(tenant, suffix string) string {
	return Namespace(tenant) + suffix
}

// Namespace is the bus prefix covering every event of one tenant.
func Namespace(tenant string) string {
	return "tenant/" + tenant + "/"
}
