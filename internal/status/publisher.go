package status

import (
	"sync"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
)

// UpdateKind tags what an Update carries.
type UpdateKind string

const (
	UpdateQR          UpdateKind = "qr"
	UpdatePairingCode UpdateKind = "pairing_code"
	UpdateStatus      UpdateKind = "status"
)

// Status values pushed to subscribers.
const (
	StatusConnected    = "connected"
	StatusReconnecting = "reconnecting"
	StatusExpired      = "expired"
	StatusClosed       = "closed"
)

// Update is one value on a tenant's QR/status stream.
type Update struct {
	Tenant string
	Kind   UpdateKind
	Value  string
	At     time.Time
}

type tenantValues struct {
	last    *Update
	pairing *Update
}

// Publisher fans out QR, pairing code and status values per tenant. New
// subscribers first receive the latest value, then live updates.
type Publisher struct {
	mu     sync.Mutex
	values map[string]*tenantValues
	bus    *bus.Bus
}

// NewPublisher creates a publisher over b.
func NewPublisher(b *bus.Bus) *Publisher {
	return &Publisher{
		values: make(map[string]*tenantValues),
		bus:    b,
	}
}

// Publish records u as the tenant's latest value and broadcasts it.
func (p *Publisher) Publish(tenant string, kind UpdateKind, value string) {
	u := Update{Tenant: tenant, Kind: kind, Value: value, At: time.Now()}

	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.values[tenant]
	if v == nil {
		v = &tenantValues{}
		p.values[tenant] = v
	}
	v.last = &u
	if kind == UpdateQR || kind == UpdatePairingCode {
		v.pairing = &u
	}
	p.bus.Publish(bus.Event{Kind: Kind(tenant, KindUpdate), Timestamp: u.At, Payload: u})
}

// ClearPairing drops the tenant's pending QR or pairing code.
func (p *Publisher) ClearPairing(tenant string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v := p.values[tenant]; v != nil {
		v.pairing = nil
	}
}

// Clear forgets every value for the tenant.
func (p *Publisher) Clear(tenant string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, tenant)
}

// Pairing returns the tenant's current QR or pairing code.
func (p *Publisher) Pairing(tenant string) (Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v := p.values[tenant]; v != nil && v.pairing != nil {
		return *v.pairing, true
	}
	return Update{}, false
}

// Latest returns the last value published for the tenant.
func (p *Publisher) Latest(tenant string) (Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v := p.values[tenant]; v != nil && v.last != nil {
		return *v.last, true
	}
	return Update{}, false
}

// Subscribe streams the tenant's updates, starting with the latest value.
func (p *Publisher) Subscribe(tenant string, bufSize int) (<-chan bus.Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var replay []bus.Event
	if v := p.values[tenant]; v != nil && v.last != nil {
		replay = append(replay, bus.Event{Kind: Kind(tenant, KindUpdate), Timestamp: v.last.At, Payload: *v.last})
	}
	return p.bus.Subscribe(Kind(tenant, KindUpdate), bufSize, replay...)
}
