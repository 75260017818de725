// Package model caches what the monitor shows between refreshes.
package model

import (
	"context"
	"sync"

	"github.com/matheus3301/wprelay/internal/rpc"
)

// Relay is the part of the daemon client the monitor uses.
type Relay interface {
	ListTenants(ctx context.Context) ([]rpc.TenantSummary, error)
	Health(ctx context.Context) (*rpc.HealthResponse, error)
	CreateSession(ctx context.Context, tenantID string) (*rpc.CreateSessionResponse, error)
	CloseSession(ctx context.Context, tenantID string) error
	WatchTenant(ctx context.Context, tenantID string) (*rpc.Watcher, error)
}

// Monitor holds the latest tenant listing and daemon health.
type Monitor struct {
	Relay Relay
	Flash Flash

	mu      sync.RWMutex
	tenants []rpc.TenantSummary
	health  *rpc.HealthResponse
}

// NewMonitor creates a monitor backed by relay.
func NewMonitor(relay Relay) *Monitor {
	return &Monitor{Relay: relay}
}

// Refresh reloads tenants and health. The previous values are kept on error.
func (m *Monitor) Refresh(ctx context.Context) error {
	tenants, err := m.Relay.ListTenants(ctx)
	if err != nil {
		return err
	}
	health, err := m.Relay.Health(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.tenants = tenants
	m.health = health
	m.mu.Unlock()
	return nil
}

// Tenants returns the cached listing.
func (m *Monitor) Tenants() []rpc.TenantSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenants
}

// Health returns the cached health, or nil before the first refresh.
func (m *Monitor) Health() *rpc.HealthResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}

// Tenant returns one tenant from the cached listing.
func (m *Monitor) Tenant(id string) (rpc.TenantSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tenants {
		if t.TenantID == id {
			return t, true
		}
	}
	return rpc.TenantSummary{}, false
}
