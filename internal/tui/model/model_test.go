package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/wprelay/internal/rpc"
)

type fakeRelay struct {
	tenants []rpc.TenantSummary
	err     error
}

func (f *fakeRelay) ListTenants(context.Context) ([]rpc.TenantSummary, error) {
	return f.tenants, f.err
}

func (f *fakeRelay) Health(context.Context) (*rpc.HealthResponse, error) {
	return &rpc.HealthResponse{Status: "ok", Tenants: len(f.tenants)}, nil
}

func (f *fakeRelay) CreateSession(context.Context, string) (*rpc.CreateSessionResponse, error) {
	return &rpc.CreateSessionResponse{Result: "open"}, nil
}

func (f *fakeRelay) CloseSession(context.Context, string) error { return nil }

func (f *fakeRelay) WatchTenant(context.Context, string) (*rpc.Watcher, error) {
	return nil, errors.New("not supported")
}

func TestMonitorRefresh(t *testing.T) {
	relay := &fakeRelay{tenants: []rpc.TenantSummary{{TenantID: "acme", State: "OPEN", IsConnected: true}}}
	m := NewMonitor(relay)

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Tenant("acme"); !ok || !got.IsConnected {
		t.Errorf("Tenant(acme) = %+v, %v", got, ok)
	}
	if h := m.Health(); h == nil || h.Tenants != 1 {
		t.Errorf("health = %+v", h)
	}

	relay.err = errors.New("daemon gone")
	if err := m.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(m.Tenants()) != 1 {
		t.Error("cached tenants dropped on error")
	}
}

func TestFlashExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f := Flash{now: func() time.Time { return now }}

	f.Err(errors.New("boom"))
	if msg, level := f.Get(); msg != "boom" || level != FlashErr {
		t.Errorf("Get() = %q, %v", msg, level)
	}

	now = now.Add(11 * time.Second)
	if msg, _ := f.Get(); msg != "" {
		t.Errorf("Get() after expiry = %q", msg)
	}
}
